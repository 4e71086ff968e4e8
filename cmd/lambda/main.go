package main

import (
	"context"
	"log"
	"time"

	"notepad-backend/infrastructure/config"
	"notepad-backend/infrastructure/di"
	"notepad-backend/interfaces/http/rest"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	container *di.Container

	// coldStart tracks whether this is a cold start invocation
	coldStart = true
)

// init runs during cold start
func init() {
	start := time.Now()
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.IsLambda = true

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	router := rest.NewRouter(
		container.Notes,
		container.Migrator,
		container.Store,
		container.Metrics,
		container.Logger,
		rest.Options{
			EnableCORS:     cfg.EnableCORS,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			MaxBodyBytes:   cfg.MaxBodyBytes,
			MigrateEnabled: container.Migration.Enabled,
		},
	)
	mux, err := router.Setup()
	if err != nil {
		container.Logger.Fatal("Failed to set up routes", zap.Error(err))
	}
	chiLambda = chiadapter.NewV2(mux)

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(start)),
		zap.String("store", cfg.StoreBackend),
	)
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if coldStart {
		container.Logger.Debug("First invocation after cold start")
		coldStart = false
	}

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		container.Logger.Error("Lambda proxy failed",
			zap.Error(err),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.String("request_id", req.RequestContext.RequestID),
		)
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
