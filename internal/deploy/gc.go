package deploy

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/modelgate/modelgate/internal/controlplane"
)

const defaultGCWorkers = 4

// CollectorConfig contains the garbage collector dependencies.
type CollectorConfig struct {
	Log       logrus.FieldLogger
	Registry  controlplane.ModelRegistry
	Endpoints controlplane.EndpointAPI
	Workers   int
}

// Collector removes stale model and endpoint-config resources left behind by
// earlier deployments. Collection is best-effort: it never fails a deployment.
type Collector struct {
	registry  controlplane.ModelRegistry
	endpoints controlplane.EndpointAPI
	workers   int
	log       logrus.FieldLogger
}

// NewCollector creates a new resource garbage collector.
func NewCollector(cfg *CollectorConfig) *Collector {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultGCWorkers
	}

	return &Collector{
		registry:  cfg.Registry,
		endpoints: cfg.Endpoints,
		workers:   workers,
		log:       cfg.Log.WithField("component", "resource_gc"),
	}
}

// Sweep deletes models and endpoint configs sharing the given name prefixes,
// excluding the resources just deployed. "In use" deletion failures are
// expected while an endpoint still references an old config mid-transition
// and are swallowed; any other failure is logged and otherwise ignored.
// Returns the number of resources deleted.
func (c *Collector) Sweep(ctx context.Context, keepModel, keepConfig string) int {
	models, err := c.registry.ListModels(ctx, modelNamePrefix)
	if err != nil {
		c.log.WithError(err).Warn("listing models for gc")
		models = nil
	}

	configs, err := c.endpoints.ListEndpointConfigs(ctx, configNamePrefix)
	if err != nil {
		c.log.WithError(err).Warn("listing endpoint configs for gc")
		configs = nil
	}

	type target struct {
		name   string
		delete func(context.Context, string) error
	}

	targets := make([]target, 0, len(models)+len(configs))

	for _, name := range configs {
		if name == keepConfig || !strings.HasPrefix(name, configNamePrefix) {
			continue
		}

		targets = append(targets, target{name: name, delete: c.endpoints.DeleteEndpointConfig})
	}

	for _, name := range models {
		if name == keepModel || !strings.HasPrefix(name, modelNamePrefix) {
			continue
		}

		targets = append(targets, target{name: name, delete: c.registry.DeleteModel})
	}

	var deleted atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, t := range targets {
		g.Go(func() error {
			err := t.delete(gCtx, t.name)

			switch {
			case err == nil:
				c.log.WithField("resource", t.name).Debug("deleted stale resource")
				deleted.Add(1)
			case errors.Is(err, controlplane.ErrResourceInUse):
				// Expected while an endpoint transition still references it.
				c.log.WithField("resource", t.name).Debug("resource still in use, leaving for next sweep")
			default:
				c.log.WithError(err).WithField("resource", t.name).Warn("failed to delete stale resource")
			}

			return nil
		})
	}

	// Workers never return errors; Wait only orders completion.
	_ = g.Wait()

	c.log.WithField("deleted", deleted.Load()).Info("gc sweep complete")

	return int(deleted.Load())
}
