package events

import "time"

// DomainEvent is something that already happened to a note.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeNoteSaved    = "note.saved"
	TypeNoteDeleted  = "note.deleted"
	TypeKeysMigrated = "note.keys_migrated"
)

// NoteSaved is raised after a non-blank write.
type NoteSaved struct {
	BaseEvent
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Created   bool   `json:"created"`
}

// NewNoteSaved creates a NoteSaved event
func NewNoteSaved(name string, createdAt, updatedAt int64, created bool, timestamp time.Time) NoteSaved {
	return NoteSaved{
		BaseEvent: BaseEvent{
			AggregateID: name,
			EventType:   TypeNoteSaved,
			Timestamp:   timestamp,
			Version:     1,
		},
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Created:   created,
	}
}

// NoteDeleted is raised when a blank write removes a note.
type NoteDeleted struct {
	BaseEvent
	Name string `json:"name"`
}

// NewNoteDeleted creates a NoteDeleted event
func NewNoteDeleted(name string, timestamp time.Time) NoteDeleted {
	return NoteDeleted{
		BaseEvent: BaseEvent{
			AggregateID: name,
			EventType:   TypeNoteDeleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		Name: name,
	}
}

// KeysMigrated is raised when a migration pass moved at least one key.
type KeysMigrated struct {
	BaseEvent
	Keys []string `json:"keys"`
}

// NewKeysMigrated creates a KeysMigrated event
func NewKeysMigrated(keys []string, timestamp time.Time) KeysMigrated {
	return KeysMigrated{
		BaseEvent: BaseEvent{
			AggregateID: "migration",
			EventType:   TypeKeysMigrated,
			Timestamp:   timestamp,
			Version:     1,
		},
		Keys: keys,
	}
}
