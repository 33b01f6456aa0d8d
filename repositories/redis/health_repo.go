package redis

import (
	// Go Internal Packages
	"context"
	"fmt"
	"strconv"
	"time"

	// Local Packages
	models "payflow/models"

	// External Packages
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// healthWindow bounds how long a gateway's rolling counters live without
// fresh attempts; stale scores expire rather than pinning an old outage.
const healthWindow = 15 * time.Minute

// failoverPenalty matches the in-memory store: one failover event weighs as
// three failed attempts.
const failoverPenalty = 3

// HealthStore keeps rolling per-gateway health counters in redis hashes so
// every instance ranks gateways from the same signal.
type HealthStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewHealthStore(client *redis.Client, logger *zap.Logger) *HealthStore {
	return &HealthStore{client: client, logger: logger}
}

func healthKey(gatewayID string) string {
	return fmt.Sprintf("gw:health:%s", gatewayID)
}

func (s *HealthStore) Record(ctx context.Context, gatewayID string, success bool, elapsed time.Duration) error {
	key := healthKey(gatewayID)
	field := "failure"
	if success {
		field = "success"
	}

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.HIncrBy(ctx, key, "total_ms", elapsed.Milliseconds())
	pipe.Expire(ctx, key, healthWindow)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *HealthStore) Penalize(ctx context.Context, gatewayID string) error {
	key := healthKey(gatewayID)
	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, key, "failure", failoverPenalty)
	pipe.Expire(ctx, key, healthWindow)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *HealthStore) Health(ctx context.Context, gatewayID string) (models.HealthRecord, error) {
	fields, err := s.client.HGetAll(ctx, healthKey(gatewayID)).Result()
	if err != nil {
		return models.HealthRecord{}, err
	}

	return models.HealthRecord{
		SuccessCount: parseCount(fields["success"]),
		FailureCount: parseCount(fields["failure"]),
		TotalMillis:  parseCount(fields["total_ms"]),
	}, nil
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
