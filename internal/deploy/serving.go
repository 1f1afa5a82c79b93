package deploy

import (
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/controlplane"
)

// VariantFromConfig builds the serving variant for new endpoint
// configurations from environment-level settings.
func VariantFromConfig(cfg *config.Config) controlplane.ServingVariant {
	if cfg.ServingMode == config.ServingModeProvisioned {
		return controlplane.ProvisionedVariant{
			InstanceType:  cfg.InstanceType,
			InstanceCount: cfg.InstanceCount,
		}
	}

	return controlplane.ServerlessVariant{
		MemoryMB:       cfg.ServerlessMemoryMB,
		MaxConcurrency: cfg.ServerlessMaxConcurrency,
	}
}
