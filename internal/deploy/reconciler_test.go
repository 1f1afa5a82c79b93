package deploy

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modelgate/modelgate/internal/artifact"
	"github.com/modelgate/modelgate/internal/controlplane"
)

type fakeArchiveStore struct {
	data    []byte
	err     error
	fetches int
}

func (f *fakeArchiveStore) Fetch(context.Context, string, string) ([]byte, error) {
	f.fetches++
	return f.data, f.err
}

func (f *fakeArchiveStore) Store(context.Context, string, string, []byte) error {
	return errors.New("not implemented")
}

func (f *fakeArchiveStore) Copy(context.Context, string, string, string, string) error {
	return errors.New("not implemented")
}

func validArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	data := []byte("weights")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "model.bin",
		Mode:     0o644,
		Size:     int64(len(data)),
		Typeflag: tar.TypeReg,
	}))

	_, err := tw.Write(data)
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

func newTestReconciler(store *fakeArchiveStore, cp *fakeControlPlane) *Reconciler {
	log := testLogger()

	health := NewHealthChecker(&HealthCheckerConfig{
		Log:       log,
		Endpoints: cp,
		Interval:  time.Millisecond,
		Timeout:   20 * time.Millisecond,
	})

	return NewReconciler(&ReconcilerConfig{
		Log:            log,
		Store:          store,
		Inspector:      artifact.NewInspector(log),
		Registry:       cp,
		Endpoints:      cp,
		Health:         health,
		EndpointName:   "ml-endpoint",
		InferenceImage: "registry/inference:latest",
		RoleARN:        "arn:role",
		Variant:        controlplane.ServerlessVariant{MemoryMB: 2048, MaxConcurrency: 5},
	})
}

const approvedKey = "models/approved/training-job-1-20260823-123045/model.tar.gz"

func TestDeployIgnoresKeysOutsideApprovedPrefix(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{}
	cp := &fakeControlPlane{}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", "data/train/data.csv")
	require.NoError(t, err)

	require.Equal(t, OutcomeIgnored, result.Outcome)
	require.Equal(t, BranchNone, result.Branch)
	require.Zero(t, store.fetches, "ignored events must not touch storage")
	requireNoMutations(t, cp)
}

func TestDeployValidationFailure(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{data: []byte("not an archive")}
	cp := &fakeControlPlane{}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.NoError(t, err, "validation failure is a business outcome, not an error")

	require.Equal(t, OutcomeValidationFailed, result.Outcome)
	require.NotEmpty(t, result.Detail)
	requireNoMutations(t, cp)
}

func TestDeployCreateBranch(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{data: validArchive(t)}
	cp := &fakeControlPlane{
		describeQueue: []describeResp{
			{err: controlplane.ErrNotFound},
			{state: &controlplane.EndpointState{Status: controlplane.EndpointInService}},
		},
	}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.NoError(t, err)

	require.Equal(t, OutcomeSucceeded, result.Outcome)
	require.Equal(t, BranchCreate, result.Branch)

	require.True(t, strings.HasPrefix(result.ModelName, "model-"))
	require.Equal(t, "cfg-"+result.ModelName, result.ConfigName)

	require.Equal(t, []string{result.ModelName}, cp.registered)
	require.Equal(t, []string{result.ConfigName}, cp.createdConfigs)
	require.Equal(t, []string{result.ConfigName}, cp.createdWith)
	require.Empty(t, cp.updatedWith)
}

func TestDeployUpdateBranch(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{data: validArchive(t)}
	cp := &fakeControlPlane{
		describeQueue: []describeResp{
			{state: &controlplane.EndpointState{
				Status:     controlplane.EndpointInService,
				ConfigName: "cfg-model-old",
			}},
			{state: &controlplane.EndpointState{Status: controlplane.EndpointInService}},
		},
	}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.NoError(t, err)

	require.Equal(t, OutcomeSucceeded, result.Outcome)
	require.Equal(t, BranchUpdate, result.Branch)
	require.Equal(t, []string{result.ConfigName}, cp.updatedWith)
	require.Empty(t, cp.createdWith)
}

func TestDeployOutOfServiceEndpointTakesUpdateBranch(t *testing.T) {
	t.Parallel()

	// An existing but out-of-service endpoint is not transitioning, so a new
	// config is applied through the update path.
	store := &fakeArchiveStore{data: validArchive(t)}
	cp := &fakeControlPlane{
		describeQueue: []describeResp{
			{state: &controlplane.EndpointState{
				Status:     controlplane.EndpointOutOfService,
				ConfigName: "cfg-model-old",
			}},
			{state: &controlplane.EndpointState{Status: controlplane.EndpointInService}},
		},
	}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.NoError(t, err)

	require.Equal(t, BranchUpdate, result.Branch)
	require.Equal(t, OutcomeSucceeded, result.Outcome)
}

func TestDeploySkipsTransitioningEndpoint(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{data: validArchive(t)}
	cp := &fakeControlPlane{
		describeQueue: []describeResp{
			{state: &controlplane.EndpointState{
				Status:     controlplane.EndpointUpdating,
				ConfigName: "cfg-model-old",
			}},
		},
	}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.NoError(t, err)

	require.Equal(t, OutcomeSkipped, result.Outcome)
	require.Equal(t, BranchSkip, result.Branch)
	require.Empty(t, cp.createdWith)
	require.Empty(t, cp.updatedWith)
}

func TestDeployRollsBackOnHealthFailure(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{data: validArchive(t)}
	cp := &fakeControlPlane{
		describeQueue: []describeResp{
			{state: &controlplane.EndpointState{
				Status:     controlplane.EndpointInService,
				ConfigName: "cfg-model-old",
			}},
			{state: &controlplane.EndpointState{Status: controlplane.EndpointFailed}},
		},
	}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.NoError(t, err)

	require.Equal(t, OutcomeRolledBack, result.Outcome)
	require.Equal(t, []string{result.ConfigName, "cfg-model-old"}, cp.updatedWith,
		"rollback must revert to the pre-deployment config")
	require.NotEmpty(t, result.Detail)
}

func TestDeployFreshEndpointHealthFailureHasNoRollback(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{data: validArchive(t)}
	cp := &fakeControlPlane{
		describeQueue: []describeResp{
			{err: controlplane.ErrNotFound},
			{state: &controlplane.EndpointState{Status: controlplane.EndpointFailed}},
		},
	}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.NoError(t, err)

	require.Equal(t, OutcomeFailedNoRollback, result.Outcome)
	require.Equal(t, BranchCreate, result.Branch)
	require.Empty(t, cp.updatedWith, "no prior config exists to roll back to")
}

func TestDeployRegistrationFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := &fakeArchiveStore{data: validArchive(t)}
	cp := &fakeControlPlane{registerErr: errors.New("quota exceeded")}

	result, err := newTestReconciler(store, cp).Deploy(context.Background(), "bucket", approvedKey)
	require.Error(t, err)
	require.Nil(t, result)
}

func TestModelNamesAreUniquePerKeyAndTime(t *testing.T) {
	t.Parallel()

	r := newTestReconciler(&fakeArchiveStore{}, &fakeControlPlane{})

	name := r.modelNameFromKey("models/approved/run-1/model.tar.gz")
	require.True(t, strings.HasPrefix(name, "model-models-approved-run-1-model-tar-gz-"))
	require.NotContains(t, name, "/")
	require.NotContains(t, strings.TrimPrefix(name, "model-models-approved-run-1-model-tar-gz-"), ".")
}
