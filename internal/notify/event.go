package notify

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
)

// EventType names a real-time event sent to clients.
type EventType string

// Event types
const (
	EntityAdded            EventType = "entity-added"
	EntityUpdated          EventType = "entity-updated"
	ProcessedEntityUpdated EventType = "processed-entity-updated"
)

// Common notify errors
var (
	// ErrNotInitialized is returned when publishing through a notifier that was never constructed.
	ErrNotInitialized = errors.New("notifier not initialized")

	// ErrPublishFailed wraps transport failures.
	ErrPublishFailed = errors.New("publish failed")

	// ErrClosed is returned when using a notifier after Close.
	ErrClosed = errors.New("notifier closed")
)

// Event is a partial update for one entry, addressed to the entry's owner.
type Event struct {
	ID        uuid.UUID
	Type      EventType
	OwnerID   uuid.UUID
	EntityID  uuid.UUID
	Fields    map[string]any
	Entity    *domain.Entry
	CreatedAt time.Time
}

// NewEntityAdded creates the event announcing a newly created entry.
func NewEntityAdded(entry *domain.Entry) Event {
	return Event{
		ID:        uuid.New(),
		Type:      EntityAdded,
		OwnerID:   entry.OwnerID,
		EntityID:  entry.ID,
		Entity:    entry,
		CreatedAt: time.Now().UTC(),
	}
}

// NewEntityUpdate creates a partial update carrying only fields. Analysis
// changes are sent as entity-updated, image changes as processed-entity-updated.
func NewEntityUpdate(jobType domain.JobType, ownerID, entityID uuid.UUID, fields map[string]any) Event {
	eventType := EntityUpdated
	if jobType == domain.JobTypeImage {
		eventType = ProcessedEntityUpdated
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
}

// ChannelName returns the channel an owner's events are published on.
func ChannelName(ownerID uuid.UUID) string {
	return "user:" + ownerID.String()
}

type wireMessage struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Encode renders the event as it is sent to clients:
//
//	{"type": "entity-updated", "data": {"id": "...", "analysis_status": "processing"}}
//
// entity-added carries the full entry as data.
func (e Event) Encode() ([]byte, error) {
	if e.Type == EntityAdded && e.Entity != nil {
		return json.Marshal(wireMessage{Type: e.Type, Data: e.Entity})
	}

	data := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		data[k] = v
	}
	data["id"] = e.EntityID.String()
	return json.Marshal(wireMessage{Type: e.Type, Data: data})
}
