//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"notepad-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideAtomicLevel,
	ProvideLogger,
	ProvideMigrationSwitch,
	ProvideConfigWatcher,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideMetrics,
	ProvideTracerProvider,
	ProvideKVStore,
	ProvideEventPublisher,
	ProvideNoteService,
	ProvideKeyMigrator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
