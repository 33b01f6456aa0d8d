package redis

import (
	// Go Internal Packages
	"context"
	"encoding/json"

	// Local Packages
	models "payflow/models"

	// External Packages
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DeadLetterQueue parks split tasks that failed processing so an operator
// can replay them; at-least-once delivery means nothing is dropped silently.
type DeadLetterQueue struct {
	client   *redis.Client
	logger   *zap.Logger
	listName string
}

func NewDeadLetterQueue(client *redis.Client, logger *zap.Logger) *DeadLetterQueue {
	return &DeadLetterQueue{client: client, logger: logger, listName: "failed-split-tasks"}
}

// Send pushes the failed records onto the DLQ list.
func (r *DeadLetterQueue) Send(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	successCount := 0
	for _, record := range records {
		jsonData, err := json.Marshal(record)
		if err != nil {
			r.logger.Error("failed to marshal record", zap.Error(err))
			continue
		}

		if err := r.client.RPush(ctx, r.listName, jsonData).Err(); err != nil {
			r.logger.Error("failed to park record", zap.String("key", string(record.Key)), zap.Error(err))
			continue
		}
		successCount++
	}

	if successCount > 0 {
		r.logger.Info("parked failed records", zap.Int("count", successCount))
	}

	return nil
}
