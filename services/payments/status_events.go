package payments

import (
	// Go Internal Packages
	"context"
	"encoding/json"

	// Local Packages
	errors "payflow/errors"
	models "payflow/models"

	// External Packages
	"go.uber.org/zap"
)

// StatusEventProcessor consumes gateway-originated status events (webhook
// intake topic) and applies them through the orchestrator, so external
// transitions obey the same state machine as internal ones.
type StatusEventProcessor struct {
	Logger       *zap.Logger
	Orchestrator *Orchestrator
}

func NewStatusEventProcessor(logger *zap.Logger, orchestrator *Orchestrator) *StatusEventProcessor {
	return &StatusEventProcessor{Logger: logger, Orchestrator: orchestrator}
}

func (p *StatusEventProcessor) ProcessRecords(ctx context.Context, records []models.Record) error {
	for _, record := range records {
		var event models.StatusEvent
		if err := json.Unmarshal(record.Value, &event); err != nil {
			p.Logger.Error("failed to unmarshal status event", zap.Error(err))
			continue
		}

		_, err := p.Orchestrator.UpdateTransactionStatus(ctx, event.TransactionID, event.Status)
		switch {
		case err == nil:
		case errors.Is(errors.Invalid, err), errors.Is(errors.NotFound, err):
			// A stale or unknown event is not worth re-polling the batch for.
			p.Logger.Warn("status event dropped",
				zap.String("transaction_id", event.TransactionID),
				zap.String("status", string(event.Status)), zap.Error(err))
		default:
			return err
		}
	}
	return nil
}
