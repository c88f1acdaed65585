package eventstream

import (
	"time"

	"github.com/mythos-rpg/mythos/pkg/session"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after a narrative turn is persisted.
	EventTypeTurnPersisted = "mythos.turn.persisted"
)

// TurnPersistedEvent is a transport-neutral event payload for a persisted turn.
type TurnPersistedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Source        EventSource   `json:"source"`
	Meta          TurnMeta      `json:"meta"`
	Turn          *session.Turn `json:"turn"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	WorldName string `json:"world_name,omitempty"`
	SaveID    string `json:"save_id,omitempty"`
	Provider  string `json:"provider"`
}

// TurnMeta captures generation lifecycle metadata for the event.
type TurnMeta struct {
	TurnNumber  int       `json:"turn_number"`
	Regenerated bool      `json:"regenerated"`
	Streaming   bool      `json:"streaming"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}
