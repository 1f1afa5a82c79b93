// Package approval decides whether an evaluated model is promoted to the
// approved storage location.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/evaluation"
	"github.com/modelgate/modelgate/internal/storage"
)

// Decision messages. The copy-failure message is deliberately distinct from the
// evaluation-failure one so downstream notifications can tell them apart.
const (
	msgApproved       = "Model passed evaluation and was approved for deployment"
	msgFailed         = "Model failed evaluation and was not approved for deployment"
	msgPromotionError = "Model passed evaluation but approval copy failed"
)

// approvedKeyTimeFormat stamps promoted keys so repeated approvals of the same
// run never collide.
const approvedKeyTimeFormat = "20060102-150405"

// Decision is the deterministic outcome of the approval workflow.
type Decision struct {
	Approved bool
	// ApprovedPath is the promoted artifact location, set only on successful
	// promotion.
	ApprovedPath string
	Message      string
	// FailedMetrics names the failed or missing metrics, in order, when the
	// evaluation did not pass.
	FailedMetrics []string
	// Err carries the promotion error when a passed evaluation could not be
	// copied to the approved location.
	Err string
}

// WorkflowConfig contains the approval workflow dependencies.
type WorkflowConfig struct {
	Log   logrus.FieldLogger
	Store storage.ObjectStore
	// Now is the clock used for approved-key timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Workflow promotes approved models.
type Workflow struct {
	store storage.ObjectStore
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewWorkflow creates a new approval workflow.
func NewWorkflow(cfg *WorkflowConfig) *Workflow {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Workflow{
		store: cfg.Store,
		log:   cfg.Log.WithField("component", "approval_workflow"),
		now:   now,
	}
}

// Decide derives the approval decision from an evaluation report. A passing
// report triggers exactly one storage copy of the model artifact to the
// approved location keyed by runID and a timestamp; a failing report triggers
// none. A copy failure on the success path still yields Approved=false, with
// the storage error captured separately from evaluation failure.
func (w *Workflow) Decide(ctx context.Context, modelURI string, report *evaluation.Report, runID string) *Decision {
	log := w.log.WithField("run_id", runID)

	if !report.Passed {
		log.Info("model failed evaluation, not approved for deployment")

		return &Decision{
			Approved:      false,
			Message:       msgFailed,
			FailedMetrics: report.FailedMetrics(),
		}
	}

	approvedPath, err := w.promote(ctx, modelURI, runID)
	if err != nil {
		log.WithError(err).Error("failed to promote approved model")

		return &Decision{
			Approved: false,
			Message:  msgPromotionError,
			Err:      err.Error(),
		}
	}

	log.WithField("approved_path", approvedPath).Info("model approved and promoted")

	return &Decision{
		Approved:     true,
		ApprovedPath: approvedPath,
		Message:      msgApproved,
	}
}

// promote copies the model artifact to the canonical approved location.
func (w *Workflow) promote(ctx context.Context, modelURI, runID string) (string, error) {
	bucket, key, err := storage.ParseURI(modelURI)
	if err != nil {
		return "", fmt.Errorf("parsing model uri: %w", err)
	}

	approvedKey := fmt.Sprintf("%s%s-%s/model.tar.gz",
		config.ApprovedModelPrefix, runID, w.now().UTC().Format(approvedKeyTimeFormat))

	if err := w.store.Copy(ctx, bucket, key, bucket, approvedKey); err != nil {
		return "", fmt.Errorf("copying model to approved location: %w", err)
	}

	return storage.URI(bucket, approvedKey), nil
}
