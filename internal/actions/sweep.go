package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/controlplane"
	"github.com/modelgate/modelgate/internal/deploy"
)

// Sweep deletes model and endpoint-config resources left behind by past
// deployments, keeping whatever the endpoint is currently serving.
func Sweep(ctx context.Context, log logrus.FieldLogger, skipConfirm bool) error {
	rt, err := buildRuntime(ctx, log)
	if err != nil {
		return err
	}
	defer rt.close()

	keepModel, keepConfig, err := liveResources(ctx, rt)
	if err != nil {
		return err
	}

	fmt.Println("\n🧹 Sweep Configuration:")
	fmt.Println("=======================")
	fmt.Printf("Endpoint:       %s\n", rt.cfg.EndpointName)
	if keepConfig != "" {
		fmt.Printf("Keeping config: %s\n", keepConfig)
		fmt.Printf("Keeping model:  %s\n", keepModel)
	} else {
		fmt.Println("Endpoint does not exist, nothing is live")
	}
	fmt.Println()

	if !skipConfirm {
		fmt.Println("⚠️  This will delete all other pipeline-created models and endpoint configs.")
		// Return here so the caller can handle confirmation
		return nil
	}

	collector := deploy.NewCollector(&deploy.CollectorConfig{
		Log:       log,
		Registry:  rt.control,
		Endpoints: rt.control,
	})

	deleted := collector.Sweep(ctx, keepModel, keepConfig)
	fmt.Printf("✅ Sweep complete, %d resources deleted\n", deleted)

	return nil
}

// liveResources resolves the model and config currently serving the endpoint.
func liveResources(ctx context.Context, rt *runtime) (keepModel, keepConfig string, err error) {
	state, err := rt.control.DescribeEndpoint(ctx, rt.cfg.EndpointName)
	if errors.Is(err, controlplane.ErrNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to describe endpoint: %w", err)
	}

	// Config names are derived as "cfg-" + model name, so the live model falls
	// out of the live config.
	return strings.TrimPrefix(state.ConfigName, "cfg-"), state.ConfigName, nil
}
