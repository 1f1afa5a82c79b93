// Package deploy reconciles approved model artifacts onto a managed serving
// endpoint: register model, build a serving configuration, create or update
// the endpoint, verify health, and roll back when a prior configuration is
// known.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/artifact"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/controlplane"
	"github.com/modelgate/modelgate/internal/storage"
)

// Name prefixes shared by the reconciler and the garbage collector.
const (
	modelNamePrefix  = "model-"
	configNamePrefix = "cfg-" + modelNamePrefix
)

// Outcome is the terminal state of a single deployment attempt.
type Outcome string

const (
	// OutcomeSucceeded means the endpoint reached InService with the new config.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeIgnored means the trigger key was outside the approved prefix;
	// the event is intentionally a no-op, not an error.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeSkipped means the endpoint had an operation in flight; the
	// attempt was abandoned without error rather than racing the transition.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeValidationFailed means the model artifact failed the readiness
	// check and nothing was deployed.
	OutcomeValidationFailed Outcome = "validation_failed"
	// OutcomeRolledBack means the health check failed and the endpoint was
	// reverted to its prior configuration.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeFailedNoRollback means the health check failed on a freshly
	// created endpoint, where no prior configuration exists to revert to.
	OutcomeFailedNoRollback Outcome = "failed_no_rollback"
)

// Branch records which reconciliation path an attempt took.
type Branch string

const (
	// BranchNone means reconciliation was not reached.
	BranchNone Branch = "none"
	// BranchCreate means the endpoint did not exist and was created.
	BranchCreate Branch = "create"
	// BranchUpdate means the existing endpoint was pointed at the new config.
	BranchUpdate Branch = "update"
	// BranchSkip means a concurrent transition was in flight.
	BranchSkip Branch = "skip"
)

// PriorConfig captures whether a pre-deployment endpoint configuration is
// known. Rollback is only possible with a known prior.
type PriorConfig interface {
	priorConfig()
}

// NoPriorConfig means the endpoint did not exist before this attempt.
type NoPriorConfig struct{}

func (NoPriorConfig) priorConfig() {}

// KnownPriorConfig names the configuration the endpoint ran before this
// attempt.
type KnownPriorConfig struct {
	Name string
}

func (KnownPriorConfig) priorConfig() {}

// Result describes a finished deployment attempt.
type Result struct {
	Outcome      Outcome
	Branch       Branch
	EndpointName string
	ModelName    string
	ConfigName   string
	ModelURI     string
	Detail       string
}

// ReconcilerConfig contains the reconciler dependencies.
type ReconcilerConfig struct {
	Log       logrus.FieldLogger
	Store     storage.ObjectStore
	Inspector *artifact.Inspector
	Registry  controlplane.ModelRegistry
	Endpoints controlplane.EndpointAPI
	Health    *HealthChecker
	Clock     clock.Clock

	EndpointName   string
	ApprovedPrefix string
	InferenceImage string
	RoleARN        string
	Variant        controlplane.ServingVariant
}

// Reconciler drives a single deployment attempt for an approved model.
type Reconciler struct {
	store     storage.ObjectStore
	inspector *artifact.Inspector
	registry  controlplane.ModelRegistry
	endpoints controlplane.EndpointAPI
	health    *HealthChecker
	clk       clock.Clock
	log       logrus.FieldLogger

	endpointName   string
	approvedPrefix string
	inferenceImage string
	roleARN        string
	variant        controlplane.ServingVariant
}

// NewReconciler creates a new deployment reconciler.
func NewReconciler(cfg *ReconcilerConfig) *Reconciler {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	approvedPrefix := cfg.ApprovedPrefix
	if approvedPrefix == "" {
		approvedPrefix = config.ApprovedModelPrefix
	}

	return &Reconciler{
		store:          cfg.Store,
		inspector:      cfg.Inspector,
		registry:       cfg.Registry,
		endpoints:      cfg.Endpoints,
		health:         cfg.Health,
		clk:            clk,
		log:            cfg.Log.WithField("component", "deployment_reconciler"),
		endpointName:   cfg.EndpointName,
		approvedPrefix: approvedPrefix,
		inferenceImage: cfg.InferenceImage,
		roleARN:        cfg.RoleARN,
		variant:        cfg.Variant,
	}
}

// EndpointName returns the name of the endpoint this reconciler manages.
func (r *Reconciler) EndpointName() string {
	return r.endpointName
}

// Deploy runs one deployment attempt for the artifact at bucket/key.
//
// Business outcomes (ignored event, validation failure, skip, rollback,
// no-rollback failure, success) are reported in the Result; a non-nil error is
// reserved for fatal infrastructure failures during registration or endpoint
// reconfiguration, where the attempt aborts without a partial update.
func (r *Reconciler) Deploy(ctx context.Context, bucket, key string) (*Result, error) {
	log := r.log.WithFields(logrus.Fields{
		"endpoint": r.endpointName,
		"key":      key,
	})

	result := &Result{
		Outcome:      OutcomeIgnored,
		Branch:       BranchNone,
		EndpointName: r.endpointName,
		ModelURI:     storage.URI(bucket, key),
	}

	// Only artifacts under the approved prefix are deployable; anything else
	// is a benign event for some other part of the bucket.
	if !strings.HasPrefix(key, r.approvedPrefix) {
		log.Info("ignoring event outside approved model path")
		return result, nil
	}

	// Validating.
	if err := r.validate(ctx, bucket, key); err != nil {
		log.WithError(err).Error("model artifact validation failed")

		result.Outcome = OutcomeValidationFailed
		result.Detail = err.Error()

		return result, nil
	}

	// Registering.
	modelName := r.modelNameFromKey(key)
	configName := "cfg-" + modelName
	result.ModelName = modelName
	result.ConfigName = configName

	log = log.WithField("model", modelName)

	if _, err := r.registry.RegisterModel(ctx, modelName, result.ModelURI, r.inferenceImage, r.roleARN); err != nil {
		return nil, fmt.Errorf("registering model %s: %w", modelName, err)
	}

	// ConfiguringEndpoint.
	if _, err := r.endpoints.CreateEndpointConfig(ctx, configName, modelName, r.variant); err != nil {
		return nil, fmt.Errorf("creating endpoint config %s: %w", configName, err)
	}

	// Reconciling.
	branch, prior, err := r.reconcile(ctx, log, configName)
	if err != nil {
		return nil, err
	}

	result.Branch = branch
	if branch == BranchSkip {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	// HealthChecking.
	if err := r.health.Wait(ctx, r.endpointName); err != nil {
		log.WithError(err).Error("endpoint failed health check")
		return r.failHealthCheck(ctx, log, result, prior, err), nil
	}

	result.Outcome = OutcomeSucceeded
	log.Info("model deployed and endpoint in service")

	return result, nil
}

// validate fetches the artifact and runs the readiness check.
func (r *Reconciler) validate(ctx context.Context, bucket, key string) error {
	archive, err := r.store.Fetch(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("fetching model artifact: %w", err)
	}

	if err := r.inspector.Validate(archive); err != nil {
		return fmt.Errorf("inspecting model artifact: %w", err)
	}

	return nil
}

// reconcile queries the endpoint and selects the create, update, or skip
// branch, issuing the corresponding control-plane call.
func (r *Reconciler) reconcile(
	ctx context.Context,
	log logrus.FieldLogger,
	configName string,
) (Branch, PriorConfig, error) {
	state, err := r.endpoints.DescribeEndpoint(ctx, r.endpointName)

	switch {
	case errors.Is(err, controlplane.ErrNotFound):
		log.Info("endpoint does not exist, creating")

		if err := r.endpoints.CreateEndpoint(ctx, r.endpointName, configName); err != nil {
			return BranchNone, nil, fmt.Errorf("creating endpoint %s: %w", r.endpointName, err)
		}

		return BranchCreate, NoPriorConfig{}, nil

	case err != nil:
		return BranchNone, nil, fmt.Errorf("describing endpoint %s: %w", r.endpointName, err)

	case state.Status.Transitioning():
		// A concurrent deployment owns the endpoint; let it finish instead of
		// racing the in-flight transition.
		log.WithField("status", state.Status).Info("endpoint transition in flight, skipping attempt")

		return BranchSkip, nil, nil

	default:
		log.WithFields(logrus.Fields{
			"status":       state.Status,
			"prior_config": state.ConfigName,
		}).Info("updating endpoint to new config")

		if err := r.endpoints.UpdateEndpoint(ctx, r.endpointName, configName); err != nil {
			return BranchNone, nil, fmt.Errorf("updating endpoint %s: %w", r.endpointName, err)
		}

		return BranchUpdate, KnownPriorConfig{Name: state.ConfigName}, nil
	}
}

// failHealthCheck resolves a failed health check into rollback or a
// no-rollback failure depending on whether a prior configuration is known.
func (r *Reconciler) failHealthCheck(
	ctx context.Context,
	log logrus.FieldLogger,
	result *Result,
	prior PriorConfig,
	healthErr error,
) *Result {
	result.Detail = healthErr.Error()

	switch p := prior.(type) {
	case KnownPriorConfig:
		log.WithField("prior_config", p.Name).Warn("rolling back endpoint to prior config")

		if err := r.endpoints.UpdateEndpoint(ctx, r.endpointName, p.Name); err != nil {
			// The revert itself continues server-side only if it was accepted;
			// record the issuance failure but the attempt is still a rollback.
			log.WithError(err).Error("rollback update failed")
			result.Detail = fmt.Sprintf("%s (rollback update failed: %s)", result.Detail, err)
		}

		result.Outcome = OutcomeRolledBack

	case NoPriorConfig:
		log.Warn("no prior config available, cannot roll back")
		result.Outcome = OutcomeFailedNoRollback

	default:
		// Unreachable: reconcile always returns one of the two variants for
		// the create and update branches.
		result.Outcome = OutcomeFailedNoRollback
	}

	return result
}

// modelNameFromKey derives a unique model resource name from the artifact key
// plus a timestamp, so repeated deployments of the same key never collide.
func (r *Reconciler) modelNameFromKey(key string) string {
	base := strings.NewReplacer("/", "-", ".", "-").Replace(key)
	return fmt.Sprintf("%s%s-%d", modelNamePrefix, base, r.clk.Now().Unix())
}
