package kafka

import (
	// Go Internal Packages
	"context"

	// External Packages
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// Producer publishes records to a single topic. Split tasks go through here
// so sub-payment processing is a tracked queue, not a fire-and-forget timer.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, metrics *kprom.Metrics, logger *zap.Logger) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.WithHooks(metrics),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return &Producer{client: client, topic: topic, logger: logger}, nil
}

// Publish produces one record synchronously so the caller knows the task is
// durably enqueued before reporting success.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.Error("failed to produce record", zap.String("topic", p.topic), zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}
