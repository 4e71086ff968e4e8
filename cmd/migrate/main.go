// Command migrate moves notes stored under the legacy key prefix to their bare
// name once, outside the request path.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notepad-backend/application/services"
	"notepad-backend/infrastructure/config"
	"notepad-backend/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	prefix := flag.String("prefix", "", "legacy key prefix (defaults to LEGACY_KEY_PREFIX)")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum duration of the migration")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 2
	}
	if *prefix != "" {
		cfg.LegacyKeyPrefix = *prefix
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Printf("Failed to initialize container: %v", err)
		return 2
	}

	report := container.Migrator.Migrate(ctx)
	container.Logger.Info("Migration finished",
		zap.String("prefix", cfg.LegacyKeyPrefix),
		zap.Int("scanned", report.Scanned),
		zap.Int("migrated", report.Migrated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)

	container.Close(context.Background())
	return exitCode(report)
}

func exitCode(report services.MigrationReport) int {
	if report.Failed > 0 {
		return 1
	}
	return 0
}
