package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marketgate/internal/platform/kafka/consumer"
	audit "marketgate/pkg/platform/audit"
	auditpostgres "marketgate/pkg/platform/audit/store/postgres"
)

// ComplianceHandler processes compliance audit events from Kafka.
// Events are written to the audit_compliance table for long-term retention.
type ComplianceHandler struct {
	store  ComplianceStore
	logger *slog.Logger
	now    func() time.Time
}

// ComplianceStore defines the storage interface for compliance events.
type ComplianceStore interface {
	AppendCompliance(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// NewComplianceHandler creates a compliance event handler.
func NewComplianceHandler(store ComplianceStore, logger *slog.Logger) *ComplianceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplianceHandler{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Handle processes a compliance audit event. Malformed messages are logged
// and committed; only storage failures are returned for redelivery.
func (h *ComplianceHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: failed to parse compliance event ID",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var payload auditpostgres.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: failed to unmarshal compliance payload",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	if payload.EntityID == "" || payload.Action == "" {
		h.logger.ErrorContext(ctx, "CRITICAL: compliance event missing entity or action",
			"event_id", eventID,
			"action", payload.Action,
		)
		return nil
	}

	event := payload.Event()
	if event.Timestamp.IsZero() {
		event.Timestamp = h.now()
	}

	if err := h.store.AppendCompliance(ctx, eventID, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to store compliance event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store compliance event: %w", err)
	}

	h.logger.DebugContext(ctx, "stored compliance event",
		"event_id", eventID,
		"action", event.Action,
		"entity_id", event.EntityID,
		"decision_id", event.DecisionID,
	)
	return nil
}
