package audit

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is an audit event waiting in the transactional outbox to be
// published to Kafka. Payload is the JSON form of the event.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Category derives the event category from the entry's event type.
func (e OutboxEntry) Category() EventCategory {
	return AuditEvent(e.EventType).Category()
}
