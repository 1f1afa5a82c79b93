package pipeline

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/modelgate/modelgate/internal/approval"
	"github.com/modelgate/modelgate/internal/artifact"
	"github.com/modelgate/modelgate/internal/controlplane"
	"github.com/modelgate/modelgate/internal/deploy"
	"github.com/modelgate/modelgate/internal/evaluation"
	"github.com/modelgate/modelgate/internal/event"
	"github.com/modelgate/modelgate/internal/history"
	"github.com/modelgate/modelgate/internal/notify"
	"github.com/modelgate/modelgate/internal/training"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	copies  []string // destination keys
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Fetch(_ context.Context, _, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}

	return data, nil
}

func (f *fakeStore) Store(_ context.Context, _, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.objects[key] = data

	return nil
}

func (f *fakeStore) Copy(_ context.Context, _, srcKey, _, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[srcKey]
	if !ok {
		return fmt.Errorf("no such key: %s", srcKey)
	}

	f.objects[dstKey] = data
	f.copies = append(f.copies, dstKey)

	return nil
}

type fakeTrainer struct {
	specs []controlplane.JobSpec
	err   error
}

func (f *fakeTrainer) SubmitJob(_ context.Context, spec controlplane.JobSpec) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.specs = append(f.specs, spec)

	return "arn:" + spec.Name, nil
}

func (f *fakeTrainer) DescribeJob(context.Context, string) (*controlplane.JobDescription, error) {
	return nil, errors.New("not implemented")
}

type note struct {
	subject string
	body    string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (f *fakeNotifier) Notify(_ context.Context, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notes = append(f.notes, note{subject: subject, body: body})

	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []*history.Record
}

func (f *fakeHistory) Start(context.Context) error { return nil }
func (f *fakeHistory) Stop() error                 { return nil }

func (f *fakeHistory) Record(_ context.Context, rec *history.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.records = append(f.records, rec)
}

// fakeControl implements the registry and endpoint capabilities for the
// deployment flow. Describe responses are scripted in order, repeating the
// last one.
type fakeControl struct {
	mu sync.Mutex

	describeStates []*controlplane.EndpointState
	describeErrs   []error
	registerErr    error

	models  []string
	configs []string

	registered     []string
	updatedWith    []string
	createdWith    []string
	deletedModels  []string
	deletedConfigs []string
}

func (f *fakeControl) RegisterModel(_ context.Context, name, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.registerErr != nil {
		return "", f.registerErr
	}

	f.registered = append(f.registered, name)

	return "arn:" + name, nil
}

func (f *fakeControl) DeleteModel(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletedModels = append(f.deletedModels, name)

	return nil
}

func (f *fakeControl) ListModels(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.models, nil
}

func (f *fakeControl) CreateEndpointConfig(_ context.Context, name, _ string, _ controlplane.ServingVariant) (string, error) {
	return "arn:" + name, nil
}

func (f *fakeControl) DeleteEndpointConfig(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletedConfigs = append(f.deletedConfigs, name)

	return nil
}

func (f *fakeControl) ListEndpointConfigs(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.configs, nil
}

func (f *fakeControl) DescribeEndpoint(context.Context, string) (*controlplane.EndpointState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.describeErrs) > 0 {
		err := f.describeErrs[0]
		state := f.describeStates[0]

		if len(f.describeErrs) > 1 {
			f.describeErrs = f.describeErrs[1:]
			f.describeStates = f.describeStates[1:]
		}

		return state, err
	}

	return &controlplane.EndpointState{Status: controlplane.EndpointInService}, nil
}

func (f *fakeControl) CreateEndpoint(_ context.Context, _, configName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createdWith = append(f.createdWith, configName)

	return nil
}

func (f *fakeControl) UpdateEndpoint(_ context.Context, _, configName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updatedWith = append(f.updatedWith, configName)

	return nil
}

func metricsArchive(t *testing.T, metricsJSON string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "metrics.json",
		Mode:     0o644,
		Size:     int64(len(metricsJSON)),
		Typeflag: tar.TypeReg,
	}))

	_, err := tw.Write([]byte(metricsJSON))
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

type harness struct {
	orchestrator *Orchestrator
	store        *fakeStore
	trainer      *fakeTrainer
	control      *fakeControl
	notifier     *fakeNotifier
	history      *fakeHistory
}

func newHarness(control *fakeControl) *harness {
	log := testLogger()

	store := newFakeStore()
	trainer := &fakeTrainer{}
	notifier := &fakeNotifier{}
	hist := &fakeHistory{}

	inspector := artifact.NewInspector(log)

	health := deploy.NewHealthChecker(&deploy.HealthCheckerConfig{
		Log:       log,
		Endpoints: control,
		Interval:  time.Millisecond,
		Timeout:   20 * time.Millisecond,
	})

	reconciler := deploy.NewReconciler(&deploy.ReconcilerConfig{
		Log:            log,
		Store:          store,
		Inspector:      inspector,
		Registry:       control,
		Endpoints:      control,
		Health:         health,
		EndpointName:   "ml-endpoint",
		InferenceImage: "registry/inference:latest",
		RoleARN:        "arn:role",
		Variant:        controlplane.ServerlessVariant{MemoryMB: 2048, MaxConcurrency: 5},
	})

	template := training.DefaultTemplate()
	template.Image = "registry/training:latest"

	orchestrator := NewOrchestrator(&OrchestratorConfig{
		Log:        log,
		Store:      store,
		Trainer:    trainer,
		Inspector:  inspector,
		Evaluator:  evaluation.NewEvaluator(log),
		Thresholds: evaluation.NewThresholdLoader(log, store),
		Approval:   approval.NewWorkflow(&approval.WorkflowConfig{Log: log, Store: store}),
		Reconciler: reconciler,
		GC: deploy.NewCollector(&deploy.CollectorConfig{
			Log:       log,
			Registry:  control,
			Endpoints: control,
		}),
		Notifier: notifier,
		History:  hist,
		Template: template,
		Bucket:   "pipeline",
		RoleARN:  "arn:role",
	})

	return &harness{
		orchestrator: orchestrator,
		store:        store,
		trainer:      trainer,
		control:      control,
		notifier:     notifier,
		history:      hist,
	}
}

func TestHandleDataUploadIgnoresOtherPaths(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})

	submission, err := h.orchestrator.HandleDataUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "config/evaluation_thresholds.json",
	})
	require.NoError(t, err)

	require.True(t, submission.Ignored)
	require.Empty(t, h.trainer.specs)
	require.Empty(t, h.history.records)
}

func TestHandleDataUploadSubmitsJob(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})

	submission, err := h.orchestrator.HandleDataUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "data/train/batch-7/rows.csv",
	})
	require.NoError(t, err)

	require.False(t, submission.Ignored)
	require.True(t, strings.HasPrefix(submission.JobName, "training-job-"))

	require.Len(t, h.trainer.specs, 1)
	spec := h.trainer.specs[0]
	require.Equal(t, "s3://pipeline/data/train/batch-7/", spec.InputDataURI,
		"training reads the whole directory the file landed in")
	require.Equal(t, "s3://pipeline/models/raw/", spec.OutputPathURI)
	require.Equal(t, "registry/training:latest", spec.Image)
	require.Equal(t, "arn:role", spec.RoleARN)

	require.Len(t, h.history.records, 1)
	require.Equal(t, "training", h.history.records[0].Kind)
	require.Equal(t, "submitted", h.history.records[0].Outcome)
}

func TestHandleDataUploadSubmitFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})
	h.trainer.err = errors.New("quota exceeded")

	_, err := h.orchestrator.HandleDataUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "data/train/rows.csv",
	})
	require.Error(t, err)
	require.Empty(t, h.history.records)
}

func TestHandleTrainingCompletionFailedJobNotifiesAndSkips(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})

	outcome, err := h.orchestrator.HandleTrainingCompletion(context.Background(), &event.TrainingEvent{
		JobName:       "training-job-1",
		Status:        controlplane.JobFailed,
		FailureReason: "AlgorithmError: loss diverged",
	})
	require.NoError(t, err, "a failed job is a business outcome, not a pipeline error")

	require.True(t, outcome.Skipped)
	require.Nil(t, outcome.Report)

	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectTrainingFailed, h.notifier.notes[0].subject)
	require.Contains(t, h.notifier.notes[0].body, "AlgorithmError: loss diverged")
}

func TestHandleTrainingCompletionApprovesPassingModel(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})
	h.store.objects["models/raw/out/model.tar.gz"] = metricsArchive(t,
		`{"accuracy": 0.91, "f1_score": 0.85, "precision": 0.8, "recall": 0.8}`)

	outcome, err := h.orchestrator.HandleTrainingCompletion(context.Background(), &event.TrainingEvent{
		JobName:     "training-job-1",
		Status:      controlplane.JobCompleted,
		ArtifactURI: "s3://pipeline/models/raw/out/model.tar.gz",
	})
	require.NoError(t, err)

	require.False(t, outcome.Skipped)
	require.True(t, outcome.Report.Passed)
	require.True(t, outcome.Decision.Approved)
	require.True(t, strings.HasPrefix(outcome.Decision.ApprovedPath,
		"s3://pipeline/models/approved/training-job-1-"))

	require.Len(t, h.store.copies, 1, "a passing model is promoted exactly once")
	require.True(t, strings.HasPrefix(h.store.copies[0], "models/approved/training-job-1-"))
	require.True(t, strings.HasSuffix(h.store.copies[0], "/model.tar.gz"))

	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectEvaluationPassed, h.notifier.notes[0].subject)

	require.Len(t, h.history.records, 1)
	require.Equal(t, "evaluation", h.history.records[0].Kind)
	require.Equal(t, "approved", h.history.records[0].Outcome)
}

func TestHandleTrainingCompletionRejectsFailingModel(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})
	h.store.objects["models/raw/out/model.tar.gz"] = metricsArchive(t,
		`{"accuracy": 0.60, "f1_score": 0.85, "precision": 0.8, "recall": 0.8}`)

	outcome, err := h.orchestrator.HandleTrainingCompletion(context.Background(), &event.TrainingEvent{
		JobName:     "training-job-2",
		Status:      controlplane.JobCompleted,
		ArtifactURI: "s3://pipeline/models/raw/out/model.tar.gz",
	})
	require.NoError(t, err)

	require.False(t, outcome.Decision.Approved)
	require.Equal(t, []string{"accuracy"}, outcome.Decision.FailedMetrics)
	require.Empty(t, h.store.copies, "a failing model must not be promoted")

	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectEvaluationFailed, h.notifier.notes[0].subject)
	require.Contains(t, h.notifier.notes[0].body, "accuracy")

	require.Equal(t, "not_approved", h.history.records[0].Outcome)
}

func TestHandleTrainingCompletionCustomThresholds(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})
	h.store.objects["config/evaluation_thresholds.json"] = []byte(`{"_comment": "bar", "accuracy": 0.95}`)
	h.store.objects["models/raw/out/model.tar.gz"] = metricsArchive(t, `{"accuracy": 0.91}`)

	outcome, err := h.orchestrator.HandleTrainingCompletion(context.Background(), &event.TrainingEvent{
		JobName:     "training-job-3",
		Status:      controlplane.JobCompleted,
		ArtifactURI: "s3://pipeline/models/raw/out/model.tar.gz",
	})
	require.NoError(t, err)

	require.False(t, outcome.Decision.Approved, "configured thresholds override the defaults")
}

func TestHandleTrainingCompletionBrokenArtifact(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})
	h.store.objects["models/raw/out/model.tar.gz"] = []byte("not an archive")

	outcome, err := h.orchestrator.HandleTrainingCompletion(context.Background(), &event.TrainingEvent{
		JobName:     "training-job-4",
		Status:      controlplane.JobCompleted,
		ArtifactURI: "s3://pipeline/models/raw/out/model.tar.gz",
	})
	require.NoError(t, err, "a broken artifact is a failed evaluation, not a pipeline error")

	require.False(t, outcome.Decision.Approved)
	require.NotEmpty(t, outcome.Decision.Err)
	require.Empty(t, h.store.copies)

	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectEvaluationFailed, h.notifier.notes[0].subject)
}

func TestHandleModelUploadDeploysAndSweeps(t *testing.T) {
	t.Parallel()

	control := &fakeControl{
		describeStates: []*controlplane.EndpointState{
			nil,
			{Status: controlplane.EndpointInService},
		},
		describeErrs: []error{controlplane.ErrNotFound, nil},
		models:       []string{"model-stale"},
		configs:      []string{"cfg-model-stale"},
	}

	h := newHarness(control)
	h.store.objects["models/approved/run-1/model.tar.gz"] = metricsArchive(t, `{"accuracy": 0.9}`)

	result, err := h.orchestrator.HandleModelUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "models/approved/run-1/model.tar.gz",
	})
	require.NoError(t, err)

	require.Equal(t, deploy.OutcomeSucceeded, result.Outcome)

	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectDeploySucceeded, h.notifier.notes[0].subject)
	require.Contains(t, h.notifier.notes[0].body, "ml-endpoint")

	require.ElementsMatch(t, []string{"model-stale"}, control.deletedModels,
		"stale resources are collected after a successful deployment")
	require.ElementsMatch(t, []string{"cfg-model-stale"}, control.deletedConfigs)

	require.Len(t, h.history.records, 1)
	require.Equal(t, "deployment", h.history.records[0].Kind)
	require.Equal(t, string(deploy.OutcomeSucceeded), h.history.records[0].Outcome)
}

func TestHandleModelUploadIgnoredEventIsSilent(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})

	result, err := h.orchestrator.HandleModelUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "models/raw/out/model.tar.gz",
	})
	require.NoError(t, err)

	require.Equal(t, deploy.OutcomeIgnored, result.Outcome)
	require.Empty(t, h.notifier.notes)
	require.Empty(t, h.history.records)
}

func TestHandleModelUploadValidationFailureNotifies(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeControl{})
	h.store.objects["models/approved/run-2/model.tar.gz"] = []byte("garbage")

	result, err := h.orchestrator.HandleModelUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "models/approved/run-2/model.tar.gz",
	})
	require.NoError(t, err)

	require.Equal(t, deploy.OutcomeValidationFailed, result.Outcome)
	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectDeployValidation, h.notifier.notes[0].subject)
	require.Empty(t, h.control.deletedModels, "no sweep after a failed deployment")
}

func TestHandleModelUploadFatalErrorNotifies(t *testing.T) {
	t.Parallel()

	control := &fakeControl{registerErr: errors.New("quota exceeded")}

	h := newHarness(control)
	h.store.objects["models/approved/run-3/model.tar.gz"] = metricsArchive(t, `{"accuracy": 0.9}`)

	result, err := h.orchestrator.HandleModelUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "models/approved/run-3/model.tar.gz",
	})
	require.Error(t, err)
	require.Nil(t, result)

	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectDeploySystemError, h.notifier.notes[0].subject)

	require.Len(t, h.history.records, 1)
	require.Equal(t, "error", h.history.records[0].Outcome)
}

func TestHandleModelUploadRollbackNotifies(t *testing.T) {
	t.Parallel()

	control := &fakeControl{
		describeStates: []*controlplane.EndpointState{
			{Status: controlplane.EndpointInService, ConfigName: "cfg-model-old"},
			{Status: controlplane.EndpointFailed},
		},
		describeErrs: []error{nil, nil},
	}

	h := newHarness(control)
	h.store.objects["models/approved/run-4/model.tar.gz"] = metricsArchive(t, `{"accuracy": 0.9}`)

	result, err := h.orchestrator.HandleModelUpload(context.Background(), &event.UploadEvent{
		Bucket: "pipeline",
		Key:    "models/approved/run-4/model.tar.gz",
	})
	require.NoError(t, err)

	require.Equal(t, deploy.OutcomeRolledBack, result.Outcome)
	require.Equal(t, "cfg-model-old", control.updatedWith[len(control.updatedWith)-1])

	require.Len(t, h.notifier.notes, 1)
	require.Equal(t, notify.SubjectDeployHealthCheck, h.notifier.notes[0].subject)
	require.Empty(t, control.deletedModels, "no sweep after a rollback")
}
