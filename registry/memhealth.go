package registry

import (
	// Go Internal Packages
	"context"
	"sync"
	"time"

	// Local Packages
	models "payflow/models"
)

// failoverPenalty is the extra failure weight a gateway takes when the
// coordinator abandons it, so repeated failovers push it down the ranking
// faster than plain failed attempts would.
const failoverPenalty = 3

// MemHealthStore is a process-local HealthStore for single-instance
// deployments and tests. Scaled-out deployments use the redis-backed store.
type MemHealthStore struct {
	mu      sync.Mutex
	records map[string]models.HealthRecord
}

func NewMemHealthStore() *MemHealthStore {
	return &MemHealthStore{records: make(map[string]models.HealthRecord)}
}

func (s *MemHealthStore) Record(_ context.Context, gatewayID string, success bool, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[gatewayID]
	if success {
		rec.SuccessCount++
	} else {
		rec.FailureCount++
	}
	rec.TotalMillis += elapsed.Milliseconds()
	s.records[gatewayID] = rec
	return nil
}

func (s *MemHealthStore) Penalize(_ context.Context, gatewayID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[gatewayID]
	rec.FailureCount += failoverPenalty
	s.records[gatewayID] = rec
	return nil
}

func (s *MemHealthStore) Health(_ context.Context, gatewayID string) (models.HealthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[gatewayID], nil
}
