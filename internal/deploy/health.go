package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/controlplane"
)

var (
	// ErrEndpointUnhealthy indicates the endpoint reached a failed or
	// out-of-service state.
	ErrEndpointUnhealthy = errors.New("endpoint is in a failed state")
	// ErrHealthCheckTimeout indicates the endpoint did not reach InService
	// within the wall-clock ceiling. The server-side transition continues
	// regardless.
	ErrHealthCheckTimeout = errors.New("endpoint did not become healthy in time")
)

// HealthCheckerConfig contains health checker dependencies and tuning.
type HealthCheckerConfig struct {
	Log       logrus.FieldLogger
	Endpoints controlplane.EndpointAPI
	// Clock drives polling; tests inject a fast clock.
	Clock clock.Clock
	// Interval between status polls. Defaults to 30s.
	Interval time.Duration
	// Timeout is the hard wall-clock ceiling. Defaults to 300s.
	Timeout time.Duration
}

// HealthChecker polls endpoint status after a deployment until the endpoint
// is in service, fails, or the ceiling elapses.
type HealthChecker struct {
	endpoints controlplane.EndpointAPI
	clk       clock.Clock
	interval  time.Duration
	timeout   time.Duration
	log       logrus.FieldLogger
}

// NewHealthChecker creates a new endpoint health checker.
func NewHealthChecker(cfg *HealthCheckerConfig) *HealthChecker {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = config.DefaultHealthCheckInterval
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultHealthCheckTimeout
	}

	return &HealthChecker{
		endpoints: cfg.Endpoints,
		clk:       clk,
		interval:  interval,
		timeout:   timeout,
		log:       cfg.Log.WithField("component", "health_checker"),
	}
}

// Wait blocks until the endpoint reaches InService (nil), a failed state
// (ErrEndpointUnhealthy), the ceiling elapses (ErrHealthCheckTimeout), or the
// context is canceled. Any describe failure ends the check as unhealthy; the
// in-progress endpoint transition is never affected by abandoning the poll.
func (h *HealthChecker) Wait(ctx context.Context, endpointName string) error {
	log := h.log.WithField("endpoint", endpointName)
	deadline := h.clk.Now().Add(h.timeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := h.endpoints.DescribeEndpoint(ctx, endpointName)
		if err != nil {
			return fmt.Errorf("describing endpoint during health check: %w", err)
		}

		log.WithField("status", state.Status).Info("endpoint status")

		switch state.Status {
		case controlplane.EndpointInService:
			return nil
		case controlplane.EndpointFailed, controlplane.EndpointOutOfService:
			return fmt.Errorf("%w: %s", ErrEndpointUnhealthy, state.Status)
		}

		if !h.clk.Now().Add(h.interval).Before(deadline) {
			return fmt.Errorf("%w: waited %s", ErrHealthCheckTimeout, h.timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.clk.After(h.interval):
		}
	}
}
