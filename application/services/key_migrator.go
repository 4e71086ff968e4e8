package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"notepad-backend/application/ports"
	"notepad-backend/domain/events"
	"notepad-backend/domain/note"

	"go.uber.org/zap"
)

// DefaultLegacyPrefix is the key prefix older deployments stored notes under.
const DefaultLegacyPrefix = "note:"

// MigrationReport counts what a migration pass did with each legacy key.
type MigrationReport struct {
	Scanned  int
	Migrated int
	Skipped  int
	Failed   int
}

// KeyMigrator moves notes stored under a legacy prefix to their bare name.
type KeyMigrator struct {
	store     ports.KVStore
	publisher ports.EventPublisher
	logger    *zap.Logger
	prefix    string
	now       func() time.Time
}

// NewKeyMigrator creates a migrator for keys under prefix. An empty prefix
// selects DefaultLegacyPrefix.
func NewKeyMigrator(store ports.KVStore, publisher ports.EventPublisher, logger *zap.Logger, prefix string) *KeyMigrator {
	if prefix == "" {
		prefix = DefaultLegacyPrefix
	}
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &KeyMigrator{
		store:     store,
		publisher: publisher,
		logger:    logger,
		prefix:    prefix,
		now:       time.Now,
	}
}

// WithClock replaces the time source used to stamp plain-text values.
func (m *KeyMigrator) WithClock(now func() time.Time) *KeyMigrator {
	m.now = now
	return m
}

// Migrate copies every legacy key whose bare name is free and deletes the
// original. Keys whose bare name is taken are left alone. Failures are logged
// and counted; they never stop the pass.
func (m *KeyMigrator) Migrate(ctx context.Context) MigrationReport {
	var report MigrationReport

	keys, err := m.store.List(ctx, m.prefix)
	if err != nil {
		m.logger.Warn("Key migration skipped: cannot list legacy keys",
			zap.String("prefix", m.prefix),
			zap.Error(err),
		)
		return report
	}

	var moved []string
	for _, oldKey := range keys {
		if !strings.HasPrefix(oldKey, m.prefix) {
			continue
		}
		report.Scanned++

		switch err := m.migrateKey(ctx, oldKey); {
		case err == nil:
			report.Migrated++
			moved = append(moved, oldKey)
		case errors.Is(err, errMigrationSkipped):
			report.Skipped++
		default:
			report.Failed++
			m.logger.Warn("Key migration failed",
				zap.String("key", oldKey),
				zap.Error(err),
			)
		}
	}

	if len(moved) > 0 {
		m.logger.Info("Migrated legacy note keys",
			zap.Int("migrated", report.Migrated),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
		if err := m.publisher.Publish(ctx, events.NewKeysMigrated(moved, m.now())); err != nil {
			m.logger.Warn("Failed to publish migration event", zap.Error(err))
		}
	}

	return report
}

var errMigrationSkipped = errors.New("migration skipped")

func (m *KeyMigrator) migrateKey(ctx context.Context, oldKey string) error {
	newKey := strings.TrimPrefix(oldKey, m.prefix)
	if newKey == "" || note.IsReserved(newKey) {
		return errMigrationSkipped
	}

	_, err := m.store.Get(ctx, newKey)
	switch {
	case err == nil:
		return errMigrationSkipped
	case !errors.Is(err, ports.ErrKeyNotFound):
		return err
	}

	raw, err := m.store.Get(ctx, oldKey)
	if errors.Is(err, ports.ErrKeyNotFound) {
		// removed by a concurrent pass
		return errMigrationSkipped
	}
	if err != nil {
		return err
	}

	encoded, err := note.Encode(note.FromLegacy(raw, m.now()))
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, newKey, encoded); err != nil {
		return err
	}
	return m.store.Delete(ctx, oldKey)
}
