// Package kafka wraps the franz-go client for the audit pipeline: topic
// provisioning on startup and a synchronous producer for the outbox relay.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// NewClient creates a franz-go client seeded with brokers. Extra options are
// appended after the defaults.
func NewClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no seed brokers configured")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return client, nil
}

// EnsureTopics creates the given topics with one partition per topic and the
// broker's default replication. Topics that already exist are left as they
// are.
func EnsureTopics(ctx context.Context, client *kgo.Client, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	admin := kadm.NewClient(client)
	resps, err := admin.CreateTopics(ctx, 1, -1, nil, topics...)
	if err != nil {
		return fmt.Errorf("kafka: create topics: %w", err)
	}
	for _, resp := range resps.Sorted() {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}
