package registry

import (
	// Go Internal Packages
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	// Local Packages
	errors "payflow/errors"
	gateways "payflow/gateways"
	models "payflow/models"

	// External Packages
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HealthStore holds the rolling per-gateway health records. It is shared
// mutable state: in a multi-instance deployment it must be backed by a
// shared store so every instance sees the same scores.
type HealthStore interface {
	// Record registers the outcome of one gateway attempt.
	Record(ctx context.Context, gatewayID string, success bool, elapsed time.Duration) error
	// Penalize downgrades a gateway's score after a failover event.
	Penalize(ctx context.Context, gatewayID string) error
	Health(ctx context.Context, gatewayID string) (models.HealthRecord, error)
}

// Registry holds the configured gateway adapters and selects among them.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]gateways.Adapter
	health   HealthStore
	logger   *zap.Logger
}

func New(health HealthStore, logger *zap.Logger) *Registry {
	return &Registry{adapters: make(map[string]gateways.Adapter), health: health, logger: logger}
}

// Register adds an adapter. Duplicate ids are a configuration fault.
func (r *Registry) Register(a gateways.Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[a.ID()]; exists {
		return errors.E(errors.Config, fmt.Sprintf("gateway %s registered twice", a.ID()), nil)
	}
	r.adapters[a.ID()] = a
	return nil
}

// Gateway looks up an adapter by id. Used when an operation must act on the
// adapter that owns an existing transaction.
func (r *Registry) Gateway(id string) (gateways.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[id]
	if !ok {
		return nil, errors.GatewayNotFoundErr(id)
	}
	return a, nil
}

// Health exposes the health store to collaborators (failover, metrics).
func (r *Registry) Health() HealthStore {
	return r.health
}

type candidate struct {
	adapter  gateways.Adapter
	score    float64
	priority int
}

// SelectBest picks the active gateway that supports the currency and amount
// with the best recent success rate; configured priority breaks ties, lower
// numeric priority winning. Returns a Config error when nothing qualifies.
func (r *Registry) SelectBest(ctx context.Context, amount decimal.Decimal, currency string) (gateways.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cands []candidate
	for _, a := range r.adapters {
		cfg := a.Config()
		if cfg.Status != models.GatewayActive {
			continue
		}
		if !cfg.SupportsCurrency(currency) || !cfg.AcceptsAmount(amount) {
			continue
		}

		rec, err := r.health.Health(ctx, a.ID())
		if err != nil {
			// A broken health store must not take payments down; score the
			// gateway as fresh and keep going.
			r.logger.Warn("health lookup failed", zap.String("gateway_id", a.ID()), zap.Error(err))
			rec = models.HealthRecord{}
		}
		cands = append(cands, candidate{adapter: a, score: rec.SuccessRate(), priority: cfg.Priority})
	}

	if len(cands) == 0 {
		return nil, errors.NoEligibleGatewayErr(amount.String(), currency)
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].priority < cands[j].priority
	})
	return cands[0].adapter, nil
}
