package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "marketgate/pkg/platform/audit"
	txcontext "marketgate/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the caller's transaction and
// published to Kafka by the outbox relay. Kafka is the source of truth for
// audit events; audit_compliance is the queryable materialization the
// consumer builds from it.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Payload is the JSON structure published to Kafka. The consumer decodes
// the same structure.
type Payload struct {
	ID                string          `json:"id"`
	Category          string          `json:"category"`
	Timestamp         time.Time       `json:"timestamp"`
	Action            string          `json:"action"`
	EntityType        string          `json:"entity_type,omitempty"`
	EntityID          string          `json:"entity_id,omitempty"`
	Gate              string          `json:"gate,omitempty"`
	DecisionID        string          `json:"decision_id,omitempty"`
	Decision          string          `json:"decision,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	MarketPack        string          `json:"market_pack,omitempty"`
	MarketPackVersion string          `json:"market_pack_version,omitempty"`
	PolicyVersion     string          `json:"policy_version,omitempty"`
	Before            json.RawMessage `json:"before,omitempty"`
	After             json.RawMessage `json:"after,omitempty"`
	RequestID         string          `json:"request_id,omitempty"`
	ActorID           string          `json:"actor_id,omitempty"`
}

// PayloadFromEvent builds the published form of event under eventID.
func PayloadFromEvent(eventID uuid.UUID, event audit.Event) Payload {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	return Payload{
		ID:                eventID.String(),
		Category:          string(category),
		Timestamp:         event.Timestamp.UTC(),
		Action:            event.Action,
		EntityType:        event.EntityType,
		EntityID:          event.EntityID,
		Gate:              event.Gate,
		DecisionID:        event.DecisionID,
		Decision:          event.Decision,
		Reason:            event.Reason,
		MarketPack:        event.MarketPack,
		MarketPackVersion: event.MarketPackVersion,
		PolicyVersion:     event.PolicyVersion,
		Before:            event.Before,
		After:             event.After,
		RequestID:         event.RequestID,
		ActorID:           event.ActorID,
	}
}

// Event converts the payload back to an audit.Event.
func (p Payload) Event() audit.Event {
	return audit.Event{
		Category:          audit.EventCategory(p.Category),
		Timestamp:         p.Timestamp,
		Action:            p.Action,
		EntityType:        p.EntityType,
		EntityID:          p.EntityID,
		Gate:              p.Gate,
		DecisionID:        p.DecisionID,
		Decision:          p.Decision,
		Reason:            p.Reason,
		MarketPack:        p.MarketPack,
		MarketPackVersion: p.MarketPackVersion,
		PolicyVersion:     p.PolicyVersion,
		Before:            p.Before,
		After:             p.After,
		RequestID:         p.RequestID,
		ActorID:           p.ActorID,
	}
}

// Append writes an audit event to the outbox table for Kafka publishing.
// Inside a transaction carried on ctx the write commits or rolls back with
// the caller's own writes.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	payloadBytes, err := json.Marshal(PayloadFromEvent(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if event.EntityID != "" {
		aggregateType = event.EntityType
		if aggregateType == "" {
			aggregateType = "entity"
		}
		aggregateID = event.EntityID
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnpublished returns up to limit unpublished outbox entries, oldest
// first. Inside a transaction the rows stay locked until it ends, so
// concurrent relays skip them.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var e audit.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given outbox entries as published.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	query := `UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := s.execer(ctx).ExecContext(ctx, query, s.now(), pq.Array(keys)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// AppendCompliance materializes a compliance event consumed from Kafka into
// the audit_compliance table. Idempotent via ON CONFLICT DO NOTHING, so
// redelivered messages are harmless.
func (s *Store) AppendCompliance(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_compliance (
			id, timestamp, action, entity_type, entity_id, gate,
			decision_id, decision, reason, market_pack, market_pack_version,
			policy_version, before_state, after_state, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		eventID,
		event.Timestamp,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.Gate,
		event.DecisionID,
		event.Decision,
		event.Reason,
		event.MarketPack,
		event.MarketPackVersion,
		event.PolicyVersion,
		nullJSON(event.Before),
		nullJSON(event.After),
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert compliance event: %w", err)
	}
	return nil
}

// ListByEntity returns the materialized compliance events for entityID,
// most recent first.
func (s *Store) ListByEntity(ctx context.Context, entityID string) ([]audit.Event, error) {
	query := `
		SELECT timestamp, action, entity_type, entity_id, gate,
			   decision_id, decision, reason, market_pack, market_pack_version,
			   policy_version, before_state, after_state, request_id, actor_id
		FROM audit_compliance
		WHERE entity_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query compliance events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event         audit.Event
			before, after []byte
		)
		err := rows.Scan(
			&event.Timestamp,
			&event.Action,
			&event.EntityType,
			&event.EntityID,
			&event.Gate,
			&event.DecisionID,
			&event.Decision,
			&event.Reason,
			&event.MarketPack,
			&event.MarketPackVersion,
			&event.PolicyVersion,
			&before,
			&after,
			&event.RequestID,
			&event.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan compliance event: %w", err)
		}
		event.Category = audit.CategoryCompliance
		event.Before = before
		event.After = after
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance events: %w", err)
	}
	return events, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
