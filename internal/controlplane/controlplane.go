// Package controlplane defines the compute control-plane capabilities the
// pipeline consumes: training job submission, model registration and endpoint
// management. Implementations live in internal/awscloud; tests use fakes.
package controlplane

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the named resource has never been created.
	// Callers treat this as an expected state, not a failure.
	ErrNotFound = errors.New("resource not found")
	// ErrResourceInUse indicates a delete was refused because the resource is
	// still referenced, typically by an endpoint mid-transition.
	ErrResourceInUse = errors.New("resource is in use")
)

// JobStatus is the lifecycle status of a training job.
type JobStatus string

const (
	// JobPending means the job is queued but not yet running.
	JobPending JobStatus = "Pending"
	// JobRunning means the job is executing.
	JobRunning JobStatus = "Running"
	// JobCompleted means the job finished and produced an artifact.
	JobCompleted JobStatus = "Completed"
	// JobFailed means the job terminated with an error.
	JobFailed JobStatus = "Failed"
	// JobStopped means the job was stopped before completion.
	JobStopped JobStatus = "Stopped"
)

// Terminal reports whether the status is a final one.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobStopped
}

// JobSpec describes a training job submission.
type JobSpec struct {
	Name            string
	RoleARN         string
	Image           string
	InputDataURI    string
	OutputPathURI   string
	ContentType     string
	InstanceType    string
	InstanceCount   int32
	VolumeSizeGB    int32
	MaxRuntime      time.Duration
	Hyperparameters map[string]string
	Tags            map[string]string
}

// JobDescription is the observed state of a training job.
type JobDescription struct {
	Status JobStatus
	// ArtifactURI is set once the job completed.
	ArtifactURI string
	// FailureReason is set for failed or stopped jobs.
	FailureReason string
}

// TrainingRunner submits and observes managed training jobs.
type TrainingRunner interface {
	SubmitJob(ctx context.Context, spec JobSpec) (jobID string, err error)
	DescribeJob(ctx context.Context, name string) (*JobDescription, error)
}

// EndpointStatus is the lifecycle status of a serving endpoint.
type EndpointStatus string

const (
	// EndpointCreating means endpoint creation is in flight.
	EndpointCreating EndpointStatus = "Creating"
	// EndpointInService means the endpoint is healthy and serving.
	EndpointInService EndpointStatus = "InService"
	// EndpointUpdating means an endpoint update is in flight.
	EndpointUpdating EndpointStatus = "Updating"
	// EndpointFailed means the endpoint is in a failed state.
	EndpointFailed EndpointStatus = "Failed"
	// EndpointOutOfService means the endpoint is not serving traffic.
	EndpointOutOfService EndpointStatus = "OutOfService"
)

// Transitioning reports whether the endpoint has an operation in flight.
func (s EndpointStatus) Transitioning() bool {
	return s == EndpointCreating || s == EndpointUpdating
}

// EndpointState is the observed state of a serving endpoint.
type EndpointState struct {
	Status     EndpointStatus
	ConfigName string
}

// ServingVariant is the capacity shape of an endpoint configuration. Exactly
// one concrete variant is used per configuration generation.
type ServingVariant interface {
	servingVariant()
}

// ServerlessVariant is a serving configuration with no fixed instances,
// governed by memory size and a concurrency cap.
type ServerlessVariant struct {
	MemoryMB       int32
	MaxConcurrency int32
}

func (ServerlessVariant) servingVariant() {}

// ProvisionedVariant is a fixed-capacity serving configuration.
type ProvisionedVariant struct {
	InstanceType  string
	InstanceCount int32
}

func (ProvisionedVariant) servingVariant() {}

// ModelRegistry registers and garbage-collects model resources.
type ModelRegistry interface {
	RegisterModel(ctx context.Context, name, artifactURI, image, roleARN string) (modelID string, err error)
	DeleteModel(ctx context.Context, name string) error
	ListModels(ctx context.Context, namePrefix string) ([]string, error)
}

// EndpointAPI manages endpoint configurations and endpoints.
type EndpointAPI interface {
	CreateEndpointConfig(ctx context.Context, name, modelName string, variant ServingVariant) (configID string, err error)
	DeleteEndpointConfig(ctx context.Context, name string) error
	ListEndpointConfigs(ctx context.Context, namePrefix string) ([]string, error)
	// DescribeEndpoint returns ErrNotFound if the endpoint was never created.
	DescribeEndpoint(ctx context.Context, name string) (*EndpointState, error)
	CreateEndpoint(ctx context.Context, name, configName string) error
	UpdateEndpoint(ctx context.Context, name, configName string) error
}
