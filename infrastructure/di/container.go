package di

import (
	"context"

	"notepad-backend/application/ports"
	"notepad-backend/application/services"
	"notepad-backend/infrastructure/config"
	"notepad-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	LogLevel  zap.AtomicLevel
	Watcher   *config.Watcher
	Migration *MigrationSwitch
	Store     ports.KVStore
	Publisher ports.EventPublisher
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Notes     *services.NoteService
	Migrator  *services.KeyMigrator
}

// Close stops background work and flushes telemetry.
func (c *Container) Close(ctx context.Context) {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.Tracing != nil {
		if err := c.Tracing.Shutdown(ctx); err != nil {
			c.Logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}
