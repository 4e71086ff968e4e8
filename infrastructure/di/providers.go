package di

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"notepad-backend/application/ports"
	"notepad-backend/application/services"
	"notepad-backend/infrastructure/config"
	"notepad-backend/infrastructure/messaging"
	"notepad-backend/infrastructure/messaging/eventbridge"
	"notepad-backend/infrastructure/persistence/decorators"
	"notepad-backend/infrastructure/persistence/dynamodb"
	"notepad-backend/infrastructure/persistence/memory"
	"notepad-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MigrationSwitch turns per-request key migration on and off at runtime.
type MigrationSwitch struct {
	atomic.Bool
}

// Enabled reports whether migration should run.
func (s *MigrationSwitch) Enabled() bool {
	return s.Load()
}

// ProvideAtomicLevel creates the log level shared by the logger and the
// config watcher.
func ProvideAtomicLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return zap.NewAtomicLevelAt(level), nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideMigrationSwitch creates the switch from the startup configuration.
func ProvideMigrationSwitch(cfg *config.Config) *MigrationSwitch {
	s := &MigrationSwitch{}
	s.Store(cfg.MigrateOnRequest)
	return s
}

// ProvideConfigWatcher watches the configuration file and applies reloadable
// settings.
func ProvideConfigWatcher(cfg *config.Config, logger *zap.Logger, level zap.AtomicLevel, migration *MigrationSwitch) (*config.Watcher, error) {
	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(next *config.Config) {
		if l, err := zapcore.ParseLevel(next.LogLevel); err == nil {
			level.SetLevel(l)
		}
		migration.Store(next.MigrateOnRequest)
	})
	return watcher, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client. DYNAMODB_ENDPOINT points it
// at DynamoDB Local.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are off.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("notepad")
}

// ProvideTracerProvider starts span export, or returns nil when tracing is off.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
}

// ProvideKVStore creates the configured backend and wraps it with the circuit
// breaker, metrics and tracing decorators.
func ProvideKVStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	metrics *observability.Collector,
	tracing *observability.TracerProvider,
	logger *zap.Logger,
) (ports.KVStore, error) {
	var store ports.KVStore
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn("Using in-memory store; notes are lost on restart")
		store = memory.NewKVStore()
	case config.StoreDynamoDB:
		store = dynamodb.NewKVStore(client, cfg.DynamoDBTable, cfg.Namespace, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.CircuitBreaker.Enabled {
		store = decorators.NewCircuitBreakerStore(store, decorators.CircuitBreakerConfig{
			Name:             "kv-store",
			MaxRequests:      uint32(cfg.CircuitBreaker.MaxRequests),
			Interval:         time.Duration(cfg.CircuitBreaker.IntervalSeconds) * time.Second,
			Timeout:          time.Duration(cfg.CircuitBreaker.TimeoutSeconds) * time.Second,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			MinRequests:      uint32(cfg.CircuitBreaker.MinRequests),
		}, logger)
	}
	if metrics != nil {
		store = decorators.NewMetricsStore(store, metrics)
	}
	if tracing != nil {
		store = decorators.NewTracingStore(store, tracing.Tracer())
	} else {
		store = decorators.NewTracingStore(store, otel.Tracer(cfg.ServiceName))
	}
	return store, nil
}

// ProvideEventPublisher fans note events out to the metrics collector and,
// when a bus is configured, to EventBridge.
func ProvideEventPublisher(
	cfg *config.Config,
	client *awseventbridge.Client,
	metrics *observability.Collector,
	logger *zap.Logger,
) ports.EventPublisher {
	var fanout messaging.Fanout
	if metrics != nil {
		fanout = append(fanout, messaging.NewMetricsPublisher(metrics))
	}
	if cfg.EventBusName != "" {
		fanout = append(fanout, eventbridge.NewPublisher(client, cfg.EventBusName, logger))
	}
	if len(fanout) == 0 {
		return ports.NopPublisher{}
	}
	return fanout
}

// ProvideNoteService creates the note service
func ProvideNoteService(store ports.KVStore, publisher ports.EventPublisher, logger *zap.Logger) *services.NoteService {
	return services.NewNoteService(store, publisher, logger.Named("notes"))
}

// ProvideKeyMigrator creates the legacy key migrator
func ProvideKeyMigrator(store ports.KVStore, publisher ports.EventPublisher, logger *zap.Logger, cfg *config.Config) *services.KeyMigrator {
	return services.NewKeyMigrator(store, publisher, logger.Named("migration"), cfg.LegacyKeyPrefix)
}
