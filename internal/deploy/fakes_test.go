package deploy

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/modelgate/modelgate/internal/controlplane"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

type describeResp struct {
	state *controlplane.EndpointState
	err   error
}

// fakeControlPlane implements controlplane.ModelRegistry and
// controlplane.EndpointAPI with scripted describe responses and recorded
// mutations.
type fakeControlPlane struct {
	mu sync.Mutex

	// describeQueue is consumed one response per DescribeEndpoint call; the
	// last response repeats once the queue is exhausted.
	describeQueue []describeResp
	describeCalls int

	registerErr      error
	createConfigErr  error
	createErr        error
	updateErr        error
	deleteModelErrs  map[string]error
	deleteConfigErrs map[string]error

	models  []string
	configs []string

	registered     []string
	createdConfigs []string
	createdWith    []string // config names passed to CreateEndpoint
	updatedWith    []string // config names passed to UpdateEndpoint
	deletedModels  []string
	deletedConfigs []string
}

func (f *fakeControlPlane) RegisterModel(_ context.Context, name, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.registerErr != nil {
		return "", f.registerErr
	}

	f.registered = append(f.registered, name)

	return "arn:" + name, nil
}

func (f *fakeControlPlane) DeleteModel(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.deleteModelErrs[name]; err != nil {
		return err
	}

	f.deletedModels = append(f.deletedModels, name)

	return nil
}

func (f *fakeControlPlane) ListModels(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.models, nil
}

func (f *fakeControlPlane) CreateEndpointConfig(_ context.Context, name, _ string, _ controlplane.ServingVariant) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createConfigErr != nil {
		return "", f.createConfigErr
	}

	f.createdConfigs = append(f.createdConfigs, name)

	return "arn:" + name, nil
}

func (f *fakeControlPlane) DeleteEndpointConfig(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.deleteConfigErrs[name]; err != nil {
		return err
	}

	f.deletedConfigs = append(f.deletedConfigs, name)

	return nil
}

func (f *fakeControlPlane) ListEndpointConfigs(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.configs, nil
}

func (f *fakeControlPlane) DescribeEndpoint(context.Context, string) (*controlplane.EndpointState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.describeCalls++

	if len(f.describeQueue) == 0 {
		return nil, controlplane.ErrNotFound
	}

	resp := f.describeQueue[0]
	if len(f.describeQueue) > 1 {
		f.describeQueue = f.describeQueue[1:]
	}

	return resp.state, resp.err
}

func (f *fakeControlPlane) CreateEndpoint(_ context.Context, _, configName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	f.createdWith = append(f.createdWith, configName)

	return nil
}

func (f *fakeControlPlane) UpdateEndpoint(_ context.Context, _, configName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}

	f.updatedWith = append(f.updatedWith, configName)

	return nil
}

func requireNoMutations(t *testing.T, f *fakeControlPlane) {
	t.Helper()

	require.Empty(t, f.registered)
	require.Empty(t, f.createdConfigs)
	require.Empty(t, f.createdWith)
	require.Empty(t, f.updatedWith)
}
