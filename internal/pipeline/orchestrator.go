// Package pipeline wires the evaluation, approval and deployment components
// into the event-driven flows: data upload triggers training, training
// completion triggers evaluation and approval, approved-model upload triggers
// deployment.
package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/approval"
	"github.com/modelgate/modelgate/internal/artifact"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/controlplane"
	"github.com/modelgate/modelgate/internal/deploy"
	"github.com/modelgate/modelgate/internal/evaluation"
	"github.com/modelgate/modelgate/internal/event"
	"github.com/modelgate/modelgate/internal/history"
	"github.com/modelgate/modelgate/internal/notify"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/training"
)

// Run kinds recorded in the history store.
const (
	runKindTraining   = "training"
	runKindEvaluation = "evaluation"
	runKindDeployment = "deployment"
)

// OrchestratorConfig contains the orchestrator dependencies.
type OrchestratorConfig struct {
	Log        logrus.FieldLogger
	Store      storage.ObjectStore
	Trainer    controlplane.TrainingRunner
	Inspector  *artifact.Inspector
	Evaluator  *evaluation.Evaluator
	Thresholds *evaluation.ThresholdLoader
	Approval   *approval.Workflow
	Reconciler *deploy.Reconciler
	GC         *deploy.Collector
	Notifier   notify.Notifier
	History    history.Store
	Template   *training.Template

	Bucket         string
	RoleARN        string
	TrainingPrefix string // defaults to config.TrainingDataPrefix
	OutputPrefix   string // defaults to config.RawModelPrefix
	ThresholdsKey  string // defaults to config.ThresholdsConfigKey
}

// Orchestrator coordinates the pipeline flows. Each handler is one stateless
// unit of work: all state lives in the external control plane and storage.
type Orchestrator struct {
	store      storage.ObjectStore
	trainer    controlplane.TrainingRunner
	inspector  *artifact.Inspector
	evaluator  *evaluation.Evaluator
	thresholds *evaluation.ThresholdLoader
	approval   *approval.Workflow
	reconciler *deploy.Reconciler
	gc         *deploy.Collector
	notifier   notify.Notifier
	history    history.Store
	template   *training.Template
	log        logrus.FieldLogger

	bucket         string
	roleARN        string
	trainingPrefix string
	outputPrefix   string
	thresholdsKey  string
}

// NewOrchestrator creates a new pipeline orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	trainingPrefix := cfg.TrainingPrefix
	if trainingPrefix == "" {
		trainingPrefix = config.TrainingDataPrefix
	}

	outputPrefix := cfg.OutputPrefix
	if outputPrefix == "" {
		outputPrefix = config.RawModelPrefix
	}

	thresholdsKey := cfg.ThresholdsKey
	if thresholdsKey == "" {
		thresholdsKey = config.ThresholdsConfigKey
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	hist := cfg.History
	if hist == nil {
		hist = history.NewNop()
	}

	return &Orchestrator{
		store:          cfg.Store,
		trainer:        cfg.Trainer,
		inspector:      cfg.Inspector,
		evaluator:      cfg.Evaluator,
		thresholds:     cfg.Thresholds,
		approval:       cfg.Approval,
		reconciler:     cfg.Reconciler,
		gc:             cfg.GC,
		notifier:       notifier,
		history:        hist,
		template:       cfg.Template,
		log:            cfg.Log.WithField("component", "orchestrator"),
		bucket:         cfg.Bucket,
		roleARN:        cfg.RoleARN,
		trainingPrefix: trainingPrefix,
		outputPrefix:   outputPrefix,
		thresholdsKey:  thresholdsKey,
	}
}

// TrainingSubmission is the outcome of the data-upload flow.
type TrainingSubmission struct {
	// Ignored is true when the upload was outside the training data prefix.
	Ignored bool
	JobName string
	JobID   string
}

// HandleDataUpload submits a training job for newly uploaded training data.
// Evaluation is not performed here: it runs from the independent
// training-completion event.
func (o *Orchestrator) HandleDataUpload(ctx context.Context, ev *event.UploadEvent) (*TrainingSubmission, error) {
	runID := uuid.NewString()
	log := o.log.WithFields(logrus.Fields{"run_id": runID, "key": ev.Key})

	if !strings.HasPrefix(ev.Key, o.trainingPrefix) {
		log.Info("ignoring upload outside training data path")
		return &TrainingSubmission{Ignored: true}, nil
	}

	// Train on the whole directory the file landed in, not the single object.
	inputURI := storage.URI(ev.Bucket, path.Dir(ev.Key)) + "/"
	outputURI := storage.URI(ev.Bucket, o.outputPrefix)

	spec := o.template.JobSpec(time.Now(), o.roleARN, inputURI, outputURI)

	jobID, err := o.trainer.SubmitJob(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("submitting training job: %w", err)
	}

	log.WithFields(logrus.Fields{
		"job":   spec.Name,
		"input": inputURI,
	}).Info("training job submitted")

	o.record(ctx, &history.Record{
		RunID:   runID,
		Kind:    runKindTraining,
		Subject: spec.Name,
		Outcome: "submitted",
		Detail:  inputURI,
	})

	return &TrainingSubmission{JobName: spec.Name, JobID: jobID}, nil
}

// EvaluationOutcome is the outcome of the training-completion flow.
type EvaluationOutcome struct {
	JobName string
	Status  controlplane.JobStatus
	// Skipped is true when the job did not complete, so no evaluation ran.
	Skipped  bool
	Report   *evaluation.Report
	Decision *approval.Decision
}

// HandleTrainingCompletion evaluates a completed training job's model against
// the quality thresholds and runs the approval workflow. Failed or stopped
// jobs send a failure notification and skip evaluation.
func (o *Orchestrator) HandleTrainingCompletion(ctx context.Context, ev *event.TrainingEvent) (*EvaluationOutcome, error) {
	runID := uuid.NewString()
	log := o.log.WithFields(logrus.Fields{"run_id": runID, "job": ev.JobName})

	if ev.Status != controlplane.JobCompleted {
		log.WithField("status", ev.Status).Info("training job did not complete, skipping evaluation")

		if ev.Status == controlplane.JobFailed || ev.Status == controlplane.JobStopped {
			o.notify(ctx, notify.SubjectTrainingFailed,
				notify.TrainingFailureBody(ev.JobName, failureReason(ev)))
		}

		o.record(ctx, &history.Record{
			RunID:   runID,
			Kind:    runKindEvaluation,
			Subject: ev.JobName,
			Outcome: "skipped",
			Detail:  string(ev.Status),
		})

		return &EvaluationOutcome{JobName: ev.JobName, Status: ev.Status, Skipped: true}, nil
	}

	report, decision := o.evaluateAndDecide(ctx, log, ev)

	o.notify(ctx, notify.EvaluationSubject(decision.Approved),
		notify.EvaluationBody(ev.JobName, report, decision))

	outcome := "not_approved"
	if decision.Approved {
		outcome = "approved"
	}

	o.record(ctx, &history.Record{
		RunID:   runID,
		Kind:    runKindEvaluation,
		Subject: ev.JobName,
		Outcome: outcome,
		Detail:  decision.Message,
	})

	return &EvaluationOutcome{
		JobName:  ev.JobName,
		Status:   ev.Status,
		Report:   report,
		Decision: decision,
	}, nil
}

// evaluateAndDecide runs inspection, evaluation and approval. Inspection and
// evaluation failures are translated into a failing report and an unapproved
// decision rather than propagated: a broken artifact is a business outcome,
// not an infrastructure failure.
func (o *Orchestrator) evaluateAndDecide(
	ctx context.Context,
	log logrus.FieldLogger,
	ev *event.TrainingEvent,
) (*evaluation.Report, *approval.Decision) {
	report, err := o.evaluateArtifact(ctx, ev.ArtifactURI)
	if err != nil {
		log.WithError(err).Error("model evaluation failed")

		// Sentinel report for "evaluation never ran": zero checks yet not
		// passed, which no real evaluation produces. Decision.Err carries
		// the cause.
		return &evaluation.Report{Results: map[string]evaluation.CheckResult{}},
			&approval.Decision{
				Approved: false,
				Message:  "Model evaluation failed before threshold checks",
				Err:      err.Error(),
			}
	}

	return report, o.approval.Decide(ctx, ev.ArtifactURI, report, ev.JobName)
}

// evaluateArtifact fetches the model archive, extracts its metrics and checks
// them against the configured thresholds.
func (o *Orchestrator) evaluateArtifact(ctx context.Context, artifactURI string) (*evaluation.Report, error) {
	bucket, key, err := storage.ParseURI(artifactURI)
	if err != nil {
		return nil, fmt.Errorf("parsing artifact uri: %w", err)
	}

	archive, err := o.store.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetching model artifact: %w", err)
	}

	metrics, err := o.inspector.ExtractMetrics(archive)
	if err != nil {
		return nil, fmt.Errorf("extracting metrics: %w", err)
	}

	thresholds := o.thresholds.Load(ctx, o.bucket, o.thresholdsKey)

	report, err := o.evaluator.Evaluate(metrics, thresholds)
	if err != nil {
		return nil, fmt.Errorf("evaluating metrics: %w", err)
	}

	return report, nil
}

// HandleModelUpload reconciles an approved-model upload onto the serving
// endpoint. Succeeded and terminal failure outcomes each emit exactly one
// notification; ignored and skipped attempts emit none.
func (o *Orchestrator) HandleModelUpload(ctx context.Context, ev *event.UploadEvent) (*deploy.Result, error) {
	runID := uuid.NewString()
	log := o.log.WithFields(logrus.Fields{"run_id": runID, "key": ev.Key})

	result, err := o.reconciler.Deploy(ctx, ev.Bucket, ev.Key)
	if err != nil {
		log.WithError(err).Error("deployment attempt failed")

		o.notify(ctx, notify.SubjectDeploySystemError,
			notify.DeploymentErrorBody(o.reconciler.EndpointName(), err))

		o.record(ctx, &history.Record{
			RunID:   runID,
			Kind:    runKindDeployment,
			Subject: o.reconciler.EndpointName(),
			Outcome: "error",
			Detail:  err.Error(),
		})

		return nil, err
	}

	switch result.Outcome {
	case deploy.OutcomeSucceeded:
		if o.gc != nil {
			// Best-effort cleanup of superseded models and configs; never
			// affects the deployment outcome.
			o.gc.Sweep(ctx, result.ModelName, result.ConfigName)
		}

		o.notify(ctx, notify.DeploymentSubject(result.Outcome), notify.DeploymentBody(result))

	case deploy.OutcomeValidationFailed, deploy.OutcomeRolledBack, deploy.OutcomeFailedNoRollback:
		o.notify(ctx, notify.DeploymentSubject(result.Outcome), notify.DeploymentBody(result))

	case deploy.OutcomeIgnored, deploy.OutcomeSkipped:
		// Intentional no-ops: nothing was deployed and nothing failed.
	}

	if result.Outcome != deploy.OutcomeIgnored {
		o.record(ctx, &history.Record{
			RunID:   runID,
			Kind:    runKindDeployment,
			Subject: result.EndpointName,
			Outcome: string(result.Outcome),
			Detail:  result.ModelURI,
		})
	}

	return result, nil
}

// notify delivers a notification best-effort, logging failures.
func (o *Orchestrator) notify(ctx context.Context, subject, body string) {
	if err := o.notifier.Notify(ctx, subject, body); err != nil {
		o.log.WithError(err).WithField("subject", subject).Error("failed to send notification")
		return
	}

	o.log.WithField("subject", subject).Info("notification sent")
}

// record writes a run record best-effort.
func (o *Orchestrator) record(ctx context.Context, rec *history.Record) {
	o.history.Record(ctx, rec)
}

func failureReason(ev *event.TrainingEvent) string {
	if ev.FailureReason != "" {
		return ev.FailureReason
	}

	return "Unknown"
}
