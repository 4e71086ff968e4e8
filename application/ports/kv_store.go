package ports

import (
	"context"
	"errors"

	"notepad-backend/domain/events"
)

// ErrKeyNotFound is returned by KVStore.Get when the key holds no value.
var ErrKeyNotFound = errors.New("kv: key not found")

// KVStore is the associative store notes live in. Implementations give no
// guarantee beyond single-key atomicity of Put and Delete.
type KVStore interface {
	// Get returns the value stored under key or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every key starting with prefix. An empty prefix lists all keys.
	List(ctx context.Context, prefix string) ([]string, error)
}

// EventPublisher delivers note events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, events.DomainEvent) error { return nil }
