package splits

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"fmt"
	"time"

	// Local Packages
	models "payflow/models"

	// External Packages
	"go.uber.org/zap"
)

// TxStore is the slice of the transaction store this processor needs.
type TxStore interface {
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
}

// Publisher hands a serialized task to the split topic.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Enqueuer puts split tasks on the queue; it backs the orchestrator's
// SplitEnqueuer collaborator.
type Enqueuer struct {
	Logger    *zap.Logger
	Publisher Publisher
}

func NewEnqueuer(logger *zap.Logger, publisher Publisher) *Enqueuer {
	return &Enqueuer{Logger: logger, Publisher: publisher}
}

func (e *Enqueuer) Enqueue(ctx context.Context, task models.SplitTask) error {
	value, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return e.Publisher.Publish(ctx, task.TransactionID, value)
}

// Processor executes queued split tasks: it marks the matching split on the
// parent transaction as released. Delivery is at-least-once, so completing
// an already-released split is a no-op, not an error.
type Processor struct {
	Logger *zap.Logger
	Store  TxStore
}

func NewProcessor(logger *zap.Logger, store TxStore) *Processor {
	return &Processor{Logger: logger, Store: store}
}

func (p *Processor) ProcessRecords(ctx context.Context, records []models.Record) error {
	for _, record := range records {
		var task models.SplitTask
		if err := json.Unmarshal(record.Value, &task); err != nil {
			p.Logger.Error("failed to unmarshal split task", zap.Error(err))
			continue
		}

		if err := p.processTask(ctx, task); err != nil {
			return fmt.Errorf("failed to process split for transaction %s: %w", task.TransactionID, err)
		}
	}
	return nil
}

func (p *Processor) processTask(ctx context.Context, task models.SplitTask) error {
	tx, err := p.Store.GetByID(ctx, task.TransactionID)
	if err != nil {
		return err
	}

	// Two splits to the same recipient for the same amount are distinct
	// sub-payments, so a released match does not end the scan: each task
	// releases the first still-pending one.
	changed := false
	matchedReleased := false
	now := time.Now().UTC()
	for i := range tx.Splits {
		s := &tx.Splits[i]
		if s.RecipientID != task.RecipientID || !s.Amount.Equal(task.Amount) {
			continue
		}
		if s.Status == models.SplitSucceeded {
			matchedReleased = true
			continue
		}
		s.Status = models.SplitSucceeded
		s.ReleasedAt = &now
		changed = true
		break
	}

	if !changed {
		if matchedReleased {
			return nil // already released on a prior delivery
		}
		p.Logger.Warn("split task matched no split",
			zap.String("transaction_id", task.TransactionID),
			zap.String("recipient_id", task.RecipientID))
		return nil
	}

	if err := p.Store.Update(ctx, tx); err != nil {
		return err
	}

	p.Logger.Info("split released",
		zap.String("transaction_id", task.TransactionID),
		zap.String("recipient_id", task.RecipientID),
		zap.String("amount", task.Amount.String()))
	return nil
}
