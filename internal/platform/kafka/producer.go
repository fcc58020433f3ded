package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes records synchronously so the caller knows the broker
// acknowledged each one before marking it as sent.
type Producer struct {
	client *kgo.Client
}

// NewProducer wraps an existing client. The caller owns the client.
func NewProducer(client *kgo.Client) *Producer {
	return &Producer{client: client}
}

// Publish writes one record to topic and waits for the acknowledgement.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce to %s: %w", topic, err)
	}
	return nil
}

// Health pings the brokers.
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}
