package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notepad-backend/application/ports"
	"notepad-backend/domain/events"
	"notepad-backend/domain/note"
	apperrors "notepad-backend/pkg/errors"

	"go.uber.org/zap"
)

// NoteService implements read, write and listing of notes on top of a KVStore.
// It keeps no state between calls.
type NoteService struct {
	store     ports.KVStore
	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewNoteService creates a note service. A nil publisher discards events.
func NewNoteService(store ports.KVStore, publisher ports.EventPublisher, logger *zap.Logger) *NoteService {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &NoteService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for timestamps.
func (s *NoteService) WithClock(now func() time.Time) *NoteService {
	s.now = now
	return s
}

// Get returns the note stored under name. Plain-text values come back with
// nil timestamps.
func (s *NoteService) Get(ctx context.Context, name string) (*note.Note, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("note name is required")
	}
	if note.IsReserved(name) {
		return nil, notFound(name)
	}

	raw, err := s.store.Get(ctx, name)
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, storeError("get", err)
	}

	env, structured := note.Decode(raw)
	if !structured {
		s.logger.Debug("Reading stored value as plain text", zap.String("name", name))
	}
	return &note.Note{Name: name, Envelope: env}, nil
}

// Raw returns only the content of the note stored under name.
func (s *NoteService) Raw(ctx context.Context, name string) (string, error) {
	n, err := s.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return n.Content, nil
}

// Put writes content under name. Blank content deletes the key instead.
func (s *NoteService) Put(ctx context.Context, name, content string) (*note.WriteResult, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("note name is required")
	}
	if note.IsReserved(name) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("'%s' is a reserved name", name))
	}

	now := s.now()

	if note.IsBlank(content) {
		if err := s.store.Delete(ctx, name); err != nil {
			return nil, storeError("delete", err)
		}
		s.logger.Info("Note deleted by blank write", zap.String("name", name))
		s.publish(ctx, events.NewNoteDeleted(name, now))
		return &note.WriteResult{Deleted: true}, nil
	}

	var existing *note.Envelope
	raw, err := s.store.Get(ctx, name)
	switch {
	case err == nil:
		env, _ := note.Decode(raw)
		existing = &env
	case errors.Is(err, ports.ErrKeyNotFound):
	default:
		return nil, storeError("get", err)
	}

	env := note.Next(existing, content, now)
	encoded, err := note.Encode(env)
	if errors.Is(err, note.ErrTooLarge) {
		return nil, apperrors.NewTooLargeError("stored note", note.MaxEncodedBytes)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode note").WithCause(err)
	}

	if err := s.store.Put(ctx, name, encoded); err != nil {
		return nil, storeError("put", err)
	}

	s.logger.Debug("Note saved",
		zap.String("name", name),
		zap.Int64("created_at", *env.CreatedAt),
		zap.Int64("updated_at", *env.UpdatedAt),
	)
	s.publish(ctx, events.NewNoteSaved(name, *env.CreatedAt, *env.UpdatedAt, existing == nil, now))

	return &note.WriteResult{Envelope: &env}, nil
}

// List returns every non-blank note, newest first. Keys that cannot be read
// are skipped.
func (s *NoteService) List(ctx context.Context) ([]note.Summary, error) {
	keys, err := s.store.List(ctx, "")
	if err != nil {
		return nil, storeError("list", err)
	}

	summaries := make([]note.Summary, 0, len(keys))
	for _, key := range keys {
		if note.IsReserved(key) {
			continue
		}

		raw, err := s.store.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, ports.ErrKeyNotFound) {
				s.logger.Warn("Skipping unreadable note in listing",
					zap.String("name", key),
					zap.Error(err),
				)
			}
			continue
		}

		env, _ := note.Decode(raw)
		if env.IsBlank() {
			continue
		}
		summaries = append(summaries, note.Summarize(note.Note{Name: key, Envelope: env}))
	}

	note.SortByRecency(summaries)
	return summaries, nil
}

func (s *NoteService) publish(ctx context.Context, event events.DomainEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish note event",
			zap.String("eventType", event.GetEventType()),
			zap.String("name", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

func notFound(name string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("note '%s'", name))
}

// storeError keeps errors that already carry an HTTP mapping, such as an open
// circuit, and wraps everything else as a database failure.
func storeError(operation string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.NewDatabaseError(operation, err)
}
