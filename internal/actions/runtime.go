// Package actions contains the core business logic for modelgate operations
package actions

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/approval"
	"github.com/modelgate/modelgate/internal/artifact"
	"github.com/modelgate/modelgate/internal/awscloud"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/deploy"
	"github.com/modelgate/modelgate/internal/evaluation"
	"github.com/modelgate/modelgate/internal/history"
	"github.com/modelgate/modelgate/internal/notify"
	"github.com/modelgate/modelgate/internal/pipeline"
	"github.com/modelgate/modelgate/internal/training"
)

var (
	// ErrBucketNotSet is returned when the pipeline bucket is not configured
	ErrBucketNotSet = errors.New("BUCKET_NAME is not set")
	// ErrEndpointNotSet is returned when the endpoint name is not configured
	ErrEndpointNotSet = errors.New("ENDPOINT_NAME is not set")
	// ErrRoleNotSet is returned when the execution role is not configured
	ErrRoleNotSet = errors.New("EXECUTION_ROLE_ARN is not set")
	// ErrImageNotSet is returned when the inference image is not configured
	ErrImageNotSet = errors.New("INFERENCE_IMAGE is not set")
	// ErrHistoryNotConfigured is returned when a history operation is requested
	// without a ClickHouse host configured
	ErrHistoryNotConfigured = errors.New("CLICKHOUSE_HOST is not set, run history is disabled")
)

// runtime is a fully wired pipeline plus the components that need an explicit
// shutdown.
type runtime struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	control      *awscloud.SageMaker
	history      history.Store
}

// buildRuntime loads config, validates it and wires the pipeline components.
func buildRuntime(ctx context.Context, log logrus.FieldLogger) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if valErr := validateConfig(cfg); valErr != nil {
		return nil, valErr
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	store := awscloud.NewS3Store(log, awsCfg)
	control := awscloud.NewSageMaker(log, awsCfg)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.SNSTopicARN != "" {
		notifier = awscloud.NewSNSNotifier(log, awsCfg, cfg.SNSTopicARN)
	}

	hist := history.NewNop()
	if cfg.HistoryEnabled() {
		hist = history.NewStore(log, cfg)
		if startErr := hist.Start(ctx); startErr != nil {
			return nil, fmt.Errorf("failed to start history store: %w", startErr)
		}
	}

	tmpl := training.DefaultTemplate()
	if cfg.TrainingTemplatePath != "" {
		tmpl, err = training.LoadTemplate(cfg.TrainingTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load training template: %w", err)
		}
	}

	inspector := artifact.NewInspector(log)

	health := deploy.NewHealthChecker(&deploy.HealthCheckerConfig{
		Log:       log,
		Endpoints: control,
		Interval:  cfg.HealthCheckInterval,
		Timeout:   cfg.HealthCheckTimeout,
	})

	reconciler := deploy.NewReconciler(&deploy.ReconcilerConfig{
		Log:            log,
		Store:          store,
		Inspector:      inspector,
		Registry:       control,
		Endpoints:      control,
		Health:         health,
		EndpointName:   cfg.EndpointName,
		InferenceImage: cfg.InferenceImage,
		RoleARN:        cfg.ExecutionRoleARN,
		Variant:        deploy.VariantFromConfig(cfg),
	})

	orchestrator := pipeline.NewOrchestrator(&pipeline.OrchestratorConfig{
		Log:        log,
		Store:      store,
		Trainer:    control,
		Inspector:  inspector,
		Evaluator:  evaluation.NewEvaluator(log),
		Thresholds: evaluation.NewThresholdLoader(log, store),
		Approval: approval.NewWorkflow(&approval.WorkflowConfig{
			Log:   log,
			Store: store,
		}),
		Reconciler: reconciler,
		GC: deploy.NewCollector(&deploy.CollectorConfig{
			Log:       log,
			Registry:  control,
			Endpoints: control,
		}),
		Notifier:     notifier,
		History:      hist,
		Template:     tmpl,
		Bucket:       cfg.Bucket,
		RoleARN:      cfg.ExecutionRoleARN,
		OutputPrefix: cfg.TrainingOutputPrefix,
	})

	return &runtime{
		cfg:          cfg,
		orchestrator: orchestrator,
		control:      control,
		history:      hist,
	}, nil
}

func (r *runtime) close() {
	if err := r.history.Stop(); err != nil {
		fmt.Printf("Warning: failed to stop history store: %v\n", err)
	}
}

// validateConfig checks if the configuration is valid for pipeline operations
func validateConfig(cfg *config.Config) error {
	if cfg.Bucket == "" {
		return ErrBucketNotSet
	}

	if cfg.EndpointName == "" {
		return ErrEndpointNotSet
	}

	if cfg.ExecutionRoleARN == "" {
		return ErrRoleNotSet
	}

	if cfg.InferenceImage == "" {
		return ErrImageNotSet
	}

	return nil
}
