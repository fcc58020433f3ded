package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "marketgate/pkg/domain"
	"marketgate/pkg/platform/sentinel"
	txcontext "marketgate/pkg/platform/tx"
)

// PostgresStore persists decisions in the compliance_decisions table. The
// full GateResult is kept as JSONB; the columns alongside it exist for
// querying.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed decision store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const decisionColumns = `
	id, entity_type, entity_id, gate, market_id, result, request_id, actor_id, evaluated_at
`

// Save inserts the decision. Decisions are immutable: saving an ID that is
// already stored returns sentinel.ErrConflict.
func (s *PostgresStore) Save(ctx context.Context, record DecisionRecord) error {
	resultBytes, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal gate result: %w", err)
	}
	query := `
		INSERT INTO compliance_decisions (
			id, entity_type, entity_id, gate, market_id, market_pack,
			market_pack_version, policy_version, allowed, violation_codes,
			result, request_id, actor_id, evaluated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		record.EntityType,
		record.EntityID.String(),
		record.Gate,
		record.MarketID.String(),
		record.Result.Decision.MarketPack,
		record.Result.Decision.MarketPackVersion,
		record.Result.Decision.PolicyVersion,
		record.Result.Allowed,
		pq.Array(record.ViolationCodes()),
		resultBytes,
		record.RequestID,
		record.ActorID.String(),
		record.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, decisionID id.DecisionID) (DecisionRecord, error) {
	query := `SELECT ` + decisionColumns + ` FROM compliance_decisions WHERE id = $1`
	record, err := scanDecision(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(decisionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DecisionRecord{}, sentinel.ErrNotFound
		}
		return DecisionRecord{}, fmt.Errorf("find decision by id: %w", err)
	}
	return record, nil
}

// ListByEntity returns the entity's decisions, most recent first.
func (s *PostgresStore) ListByEntity(ctx context.Context, entityType string, entityID id.EntityID) ([]DecisionRecord, error) {
	query := `SELECT ` + decisionColumns + `
		FROM compliance_decisions
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY evaluated_at DESC, id
	`
	return s.list(ctx, "list decisions by entity", query, entityType, entityID.String())
}

// ListByViolationCode returns decisions that reported code, most recent
// first, up to limit.
func (s *PostgresStore) ListByViolationCode(ctx context.Context, code string, limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + decisionColumns + `
		FROM compliance_decisions
		WHERE $1 = ANY(violation_codes)
		ORDER BY evaluated_at DESC, id
		LIMIT $2
	`
	return s.list(ctx, "list decisions by violation code", query, code, limit)
}

func (s *PostgresStore) list(ctx context.Context, op, query string, args ...any) ([]DecisionRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (DecisionRecord, error) {
	var (
		record      DecisionRecord
		decisionID  uuid.UUID
		entityID    string
		marketID    string
		actorID     string
		resultBytes []byte
	)
	err := row.Scan(
		&decisionID,
		&record.EntityType,
		&entityID,
		&record.Gate,
		&marketID,
		&resultBytes,
		&record.RequestID,
		&actorID,
		&record.EvaluatedAt,
	)
	if err != nil {
		return DecisionRecord{}, err
	}
	if err := json.Unmarshal(resultBytes, &record.Result); err != nil {
		return DecisionRecord{}, fmt.Errorf("unmarshal gate result: %w", err)
	}
	record.ID = id.DecisionID(decisionID)
	record.EntityID = id.EntityID(entityID)
	record.MarketID = id.MarketID(marketID)
	record.ActorID = id.ActorID(actorID)
	return record, nil
}
