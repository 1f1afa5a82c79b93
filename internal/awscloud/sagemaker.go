package awscloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/controlplane"
)

// variantName is the single production variant carried by every endpoint
// config this pipeline creates.
const variantName = "AllTraffic"

// SageMaker implements controlplane.TrainingRunner, controlplane.ModelRegistry
// and controlplane.EndpointAPI against the SageMaker control plane.
type SageMaker struct {
	client *sagemaker.Client
	log    logrus.FieldLogger
}

// NewSageMaker creates a SageMaker-backed control plane client.
func NewSageMaker(log logrus.FieldLogger, cfg aws.Config) *SageMaker {
	return &SageMaker{
		client: sagemaker.NewFromConfig(cfg),
		log:    log.WithField("component", "sagemaker"),
	}
}

// SubmitJob starts a training job from the given spec and returns its ARN.
func (s *SageMaker) SubmitJob(ctx context.Context, spec controlplane.JobSpec) (string, error) {
	out, err := s.client.CreateTrainingJob(ctx, &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(spec.Name),
		RoleArn:         aws.String(spec.RoleARN),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(spec.Image),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		InputDataConfig: []types.Channel{
			{
				ChannelName: aws.String("training"),
				ContentType: aws.String(spec.ContentType),
				DataSource: &types.DataSource{
					S3DataSource: &types.S3DataSource{
						S3DataType:             types.S3DataTypeS3Prefix,
						S3Uri:                  aws.String(spec.InputDataURI),
						S3DataDistributionType: types.S3DataDistributionFullyReplicated,
					},
				},
			},
		},
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(spec.OutputPathURI),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(spec.InstanceType),
			InstanceCount:  aws.Int32(spec.InstanceCount),
			VolumeSizeInGB: aws.Int32(spec.VolumeSizeGB),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(spec.MaxRuntime / time.Second)),
		},
		HyperParameters: spec.Hyperparameters,
		Tags:            tagsFromMap(spec.Tags),
	})
	if err != nil {
		return "", fmt.Errorf("creating training job %s: %w", spec.Name, err)
	}

	s.log.WithField("job", spec.Name).Info("training job created")

	return aws.ToString(out.TrainingJobArn), nil
}

// DescribeJob returns the current status of a training job.
func (s *SageMaker) DescribeJob(ctx context.Context, name string) (*controlplane.JobDescription, error) {
	out, err := s.client.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("training job %s: %w", name, controlplane.ErrNotFound)
		}

		return nil, fmt.Errorf("describing training job %s: %w", name, err)
	}

	desc := &controlplane.JobDescription{
		Status:        jobStatus(out.TrainingJobStatus),
		FailureReason: aws.ToString(out.FailureReason),
	}
	if out.ModelArtifacts != nil {
		desc.ArtifactURI = aws.ToString(out.ModelArtifacts.S3ModelArtifacts)
	}

	return desc, nil
}

// RegisterModel creates a model resource pointing at the artifact.
func (s *SageMaker) RegisterModel(ctx context.Context, name, artifactURI, image, roleARN string) (string, error) {
	out, err := s.client.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(name),
		ExecutionRoleArn: aws.String(roleARN),
		PrimaryContainer: &types.ContainerDefinition{
			Image:        aws.String(image),
			ModelDataUrl: aws.String(artifactURI),
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating model %s: %w", name, err)
	}

	return aws.ToString(out.ModelArn), nil
}

// DeleteModel removes a model resource.
func (s *SageMaker) DeleteModel(ctx context.Context, name string) error {
	_, err := s.client.DeleteModel(ctx, &sagemaker.DeleteModelInput{
		ModelName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("deleting model %s: %w", name, mapResourceErr(err))
	}

	return nil
}

// ListModels returns the names of models whose name contains namePrefix.
func (s *SageMaker) ListModels(ctx context.Context, namePrefix string) ([]string, error) {
	var names []string

	input := &sagemaker.ListModelsInput{
		NameContains: aws.String(namePrefix),
	}

	for {
		out, err := s.client.ListModels(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", err)
		}

		for _, m := range out.Models {
			names = append(names, aws.ToString(m.ModelName))
		}

		if aws.ToString(out.NextToken) == "" {
			break
		}

		input.NextToken = out.NextToken
	}

	return names, nil
}

// CreateEndpointConfig creates an endpoint config with a single variant built
// from the serving variant.
func (s *SageMaker) CreateEndpointConfig(
	ctx context.Context,
	name, modelName string,
	variant controlplane.ServingVariant,
) (string, error) {
	pv := types.ProductionVariant{
		VariantName: aws.String(variantName),
		ModelName:   aws.String(modelName),
	}

	switch v := variant.(type) {
	case controlplane.ServerlessVariant:
		pv.ServerlessConfig = &types.ProductionVariantServerlessConfig{
			MemorySizeInMB: aws.Int32(v.MemoryMB),
			MaxConcurrency: aws.Int32(v.MaxConcurrency),
		}
	case controlplane.ProvisionedVariant:
		pv.InstanceType = types.ProductionVariantInstanceType(v.InstanceType)
		pv.InitialInstanceCount = aws.Int32(v.InstanceCount)
		pv.InitialVariantWeight = aws.Float32(1.0)
	default:
		return "", fmt.Errorf("unsupported serving variant %T", variant)
	}

	out, err := s.client.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(name),
		ProductionVariants: []types.ProductionVariant{pv},
	})
	if err != nil {
		return "", fmt.Errorf("creating endpoint config %s: %w", name, err)
	}

	return aws.ToString(out.EndpointConfigArn), nil
}

// DeleteEndpointConfig removes an endpoint config.
func (s *SageMaker) DeleteEndpointConfig(ctx context.Context, name string) error {
	_, err := s.client.DeleteEndpointConfig(ctx, &sagemaker.DeleteEndpointConfigInput{
		EndpointConfigName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("deleting endpoint config %s: %w", name, mapResourceErr(err))
	}

	return nil
}

// ListEndpointConfigs returns the names of endpoint configs whose name
// contains namePrefix.
func (s *SageMaker) ListEndpointConfigs(ctx context.Context, namePrefix string) ([]string, error) {
	var names []string

	input := &sagemaker.ListEndpointConfigsInput{
		NameContains: aws.String(namePrefix),
	}

	for {
		out, err := s.client.ListEndpointConfigs(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("listing endpoint configs: %w", err)
		}

		for _, c := range out.EndpointConfigs {
			names = append(names, aws.ToString(c.EndpointConfigName))
		}

		if aws.ToString(out.NextToken) == "" {
			break
		}

		input.NextToken = out.NextToken
	}

	return names, nil
}

// DescribeEndpoint returns the endpoint state, or controlplane.ErrNotFound
// when the endpoint does not exist.
func (s *SageMaker) DescribeEndpoint(ctx context.Context, name string) (*controlplane.EndpointState, error) {
	out, err := s.client.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("endpoint %s: %w", name, controlplane.ErrNotFound)
		}

		return nil, fmt.Errorf("describing endpoint %s: %w", name, err)
	}

	return &controlplane.EndpointState{
		Status:     endpointStatus(out.EndpointStatus),
		ConfigName: aws.ToString(out.EndpointConfigName),
	}, nil
}

// CreateEndpoint creates an endpoint from the named config.
func (s *SageMaker) CreateEndpoint(ctx context.Context, name, configName string) error {
	_, err := s.client.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(configName),
	})
	if err != nil {
		return fmt.Errorf("creating endpoint %s: %w", name, err)
	}

	return nil
}

// UpdateEndpoint points an existing endpoint at a different config.
func (s *SageMaker) UpdateEndpoint(ctx context.Context, name, configName string) error {
	_, err := s.client.UpdateEndpoint(ctx, &sagemaker.UpdateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(configName),
	})
	if err != nil {
		return fmt.Errorf("updating endpoint %s: %w", name, err)
	}

	return nil
}

// jobStatus maps the SageMaker training job status onto the pipeline's.
func jobStatus(s types.TrainingJobStatus) controlplane.JobStatus {
	switch s {
	case types.TrainingJobStatusInProgress, types.TrainingJobStatusStopping:
		return controlplane.JobRunning
	case types.TrainingJobStatusCompleted:
		return controlplane.JobCompleted
	case types.TrainingJobStatusFailed:
		return controlplane.JobFailed
	case types.TrainingJobStatusStopped:
		return controlplane.JobStopped
	default:
		return controlplane.JobPending
	}
}

// endpointStatus maps the SageMaker endpoint status onto the pipeline's.
func endpointStatus(s types.EndpointStatus) controlplane.EndpointStatus {
	switch s {
	case types.EndpointStatusInService:
		return controlplane.EndpointInService
	case types.EndpointStatusCreating:
		return controlplane.EndpointCreating
	case types.EndpointStatusUpdating, types.EndpointStatusSystemUpdating, types.EndpointStatusRollingBack:
		return controlplane.EndpointUpdating
	case types.EndpointStatusFailed, types.EndpointStatusDeleting:
		return controlplane.EndpointFailed
	case types.EndpointStatusOutOfService:
		return controlplane.EndpointOutOfService
	default:
		return controlplane.EndpointOutOfService
	}
}

// isNotFound reports whether err is the control plane's way of saying the
// resource does not exist. Describe calls surface this as a ValidationException
// with a "Could not find" message rather than a typed not-found error.
func isNotFound(err error) bool {
	var rnf *types.ResourceNotFound
	if errors.As(err, &rnf) {
		return true
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		return strings.Contains(ae.ErrorMessage(), "Could not find")
	}

	return false
}

// mapResourceErr translates in-use conflicts into controlplane.ErrResourceInUse
// so callers can treat them as benign.
func mapResourceErr(err error) error {
	var riu *types.ResourceInUse
	if errors.As(err, &riu) {
		return controlplane.ErrResourceInUse
	}

	var ae smithy.APIError
	if errors.As(err, &ae) && strings.Contains(strings.ToLower(ae.ErrorMessage()), "in use") {
		return controlplane.ErrResourceInUse
	}

	return err
}

func tagsFromMap(m map[string]string) []types.Tag {
	if len(m) == 0 {
		return nil
	}

	tags := make([]types.Tag, 0, len(m))
	for k, v := range m {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	return tags
}
