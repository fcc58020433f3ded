// Package worker relays audit events from the transactional outbox to Kafka.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "marketgate/pkg/platform/audit"
)

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher sends one record to a topic and waits for the acknowledgement.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// TxRunner runs fn inside a transaction carried on ctx.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Relay polls the outbox and publishes pending entries. Delivery is at least
// once: when a publish fails the batch rolls back and is retried, so entries
// published before the failure may be sent again. Consumers key on the
// event ID to stay idempotent.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	runInTx   TxRunner
	topics    map[audit.EventCategory]string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTxRunner makes each poll run in one transaction so fetched rows stay
// locked until they are marked published.
func WithTxRunner(run TxRunner) Option {
	return func(r *Relay) {
		if run != nil {
			r.runInTx = run
		}
	}
}

// NewRelay builds a relay that routes compliance and operations events to
// their own topics.
func NewRelay(outbox Outbox, publisher Publisher, complianceTopic, opsTopic string, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
		topics: map[audit.EventCategory]string{
			audit.CategoryCompliance: complianceTopic,
			audit.CategoryOperations: opsTopic,
		},
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays on every tick until ctx is cancelled. Poll failures are logged
// and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	err := r.runInTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			topic, ok := r.topics[entry.Category()]
			if !ok || topic == "" {
				r.logger.WarnContext(ctx, "no topic for outbox entry, skipping",
					"event_type", entry.EventType,
					"outbox_id", entry.ID,
				)
				ids = append(ids, entry.ID)
				continue
			}
			if err := r.publisher.Publish(ctx, topic, []byte(entry.ID.String()), entry.Payload); err != nil {
				return err
			}
			ids = append(ids, entry.ID)
		}
		if err := r.outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}
