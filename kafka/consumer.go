package kafka

import (
	// Go Internal Packages
	"context"
	"errors"
	"fmt"

	// Local Packages
	models "payflow/models"

	// External Packages
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// RecordProcessor handles one poll's worth of records.
type RecordProcessor interface {
	ProcessRecords(ctx context.Context, records []models.Record) error
}

// DLQ receives records whose processing failed so they are parked instead
// of dropped; consumption continues.
type DLQ interface {
	Send(ctx context.Context, records []models.Record) error
}

type Consumer struct {
	Client    *kgo.Client
	Config    *models.ConsumerConfig
	Processor RecordProcessor
	DLQ       DLQ
	Logger    *zap.Logger
}

// NewConsumer creates a consumer group member for a single topic
// (PS: Must call Poll to start consuming the records)
func NewConsumer(conf *models.ConsumerConfig, processor RecordProcessor, dlq DLQ, metrics *kprom.Metrics, logger *zap.Logger) (*Consumer, error) {
	c := &Consumer{Config: conf, Processor: processor, DLQ: dlq, Logger: logger}

	opts := []kgo.Opt{
		kgo.SeedBrokers(conf.Brokers...), // Connects to Kafka brokers
		kgo.ConsumerGroup(conf.Name),     // Specifies the consumer group
		kgo.ConsumeTopics(conf.Topic),    // Specifies a single topic to consume
		kgo.WithHooks(metrics),           // Attaches monitoring hooks
		kgo.DisableAutoCommit(),          // Disables auto-commit
		kgo.BlockRebalanceOnPoll(),       // Blocks rebalancing until the poll loop is running
	}

	client, err := kgo.NewClient(opts...)
	if err != nil || client == nil {
		return nil, err
	}

	c.Client = client
	return c, nil
}

// Poll polls for records from the Kafka broker. A batch is committed only
// once it is processed or parked in the DLQ; the task queue is
// at-least-once with explicit failure parking, never silent loss.
func (c *Consumer) Poll(ctx context.Context) error {
	defer c.Client.Close()

	consumerName := c.Config.Name
	recordsPerPoll := c.Config.RecordsPerPoll

	for {
		// Check if the context is canceled before polling
		if ctx.Err() != nil {
			c.Logger.Warn("Polling stopped: context canceled")
			return ctx.Err()
		}

		c.Logger.Info(fmt.Sprintf("%s: polling for records", consumerName))
		fetches := c.Client.PollRecords(ctx, recordsPerPoll)

		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}
		if errors.Is(fetches.Err0(), context.Canceled) {
			return errors.New("context got canceled")
		}

		records := make([]models.Record, len(fetches.Records()))
		for idx, record := range fetches.Records() {
			records[idx] = models.Record{
				Key:   record.Key,
				Value: record.Value,
				Topic: record.Topic,
			}
		}

		if !c.process(ctx, records) {
			continue // retry the batch on the next poll
		}

		// Commit processed records
		_ = c.Client.CommitRecords(ctx, fetches.Records()...)
	}
}

// process runs one batch and reports whether it may be committed. A failed
// batch goes to the DLQ; with no DLQ configured, or a DLQ that also failed,
// the batch stays uncommitted so the next poll redelivers it.
func (c *Consumer) process(ctx context.Context, records []models.Record) bool {
	err := c.Processor.ProcessRecords(ctx, records)
	if err == nil {
		return true
	}
	c.Logger.Error("Failed to process records", zap.Error(err))

	if c.DLQ == nil {
		return false
	}
	if dlqErr := c.DLQ.Send(ctx, records); dlqErr != nil {
		c.Logger.Error("Failed to park records", zap.Error(dlqErr))
		return false
	}
	return true
}
