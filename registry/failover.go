package registry

import (
	// Go Internal Packages
	"context"

	// Local Packages
	gateways "payflow/gateways"
	models "payflow/models"

	// External Packages
	"go.uber.org/zap"
)

// Coordinator resolves a failed gateway to its first healthy fallback.
// Failover changes which gateway handles an operation; it never loops — the
// orchestrator attempts the fallback exactly once per request.
type Coordinator struct {
	registry *Registry
	chains   map[string][]string
	logger   *zap.Logger
}

// NewCoordinator builds a coordinator from per-gateway fallback chains
// (ordered gateway ids, excluding the gateway itself).
func NewCoordinator(registry *Registry, chains map[string][]string, logger *zap.Logger) *Coordinator {
	return &Coordinator{registry: registry, chains: chains, logger: logger}
}

// HandleFailure downgrades the failed gateway's health and returns the first
// active fallback in its chain, or false when the chain is empty or
// exhausted.
func (c *Coordinator) HandleFailure(ctx context.Context, failedID string, cause error) (gateways.Adapter, bool) {
	if err := c.registry.Health().Penalize(ctx, failedID); err != nil {
		c.logger.Warn("health penalty failed", zap.String("gateway_id", failedID), zap.Error(err))
	}

	for _, id := range c.chains[failedID] {
		a, err := c.registry.Gateway(id)
		if err != nil {
			c.logger.Warn("fallback gateway not registered", zap.String("gateway_id", id))
			continue
		}
		if a.Config().Status != models.GatewayActive {
			continue
		}

		c.logger.Info("failing over",
			zap.String("from", failedID),
			zap.String("to", id),
			zap.Error(cause))
		return a, true
	}
	return nil, false
}
