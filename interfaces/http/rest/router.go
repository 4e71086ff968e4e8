package rest

import (
	"net/http"

	"notepad-backend/application/ports"
	"notepad-backend/interfaces/http/rest/handlers"
	"notepad-backend/interfaces/http/rest/middleware"
	"notepad-backend/interfaces/http/rest/views"
	apperrors "notepad-backend/pkg/errors"
	"notepad-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Options configures the router.
type Options struct {
	Debug          bool
	EnableCORS     bool
	AllowedOrigins []string
	MaxBodyBytes   int64
	// MigrateEnabled is consulted on every request; nil disables migration.
	MigrateEnabled func() bool
}

// Router creates and configures the HTTP router
type Router struct {
	notes    handlers.NoteService
	migrator middleware.Migrator
	store    ports.KVStore
	metrics  *observability.Collector
	logger   *zap.Logger
	opts     Options
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	notes handlers.NoteService,
	migrator middleware.Migrator,
	store ports.KVStore,
	metrics *observability.Collector,
	logger *zap.Logger,
	opts Options,
) *Router {
	return &Router{
		notes:    notes,
		migrator: migrator,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() (*chi.Mux, error) {
	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, err
	}
	errorHandler := apperrors.NewErrorHandler(rt.logger, rt.opts.Debug)

	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(errorHandler.Middleware)
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.opts.EnableCORS {
		origins := rt.opts.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	// Operational endpoints live under "/-" so they never collide with notes.
	health := handlers.NewHealthHandler(rt.store, rt.logger)
	router.Route("/-", func(r chi.Router) {
		r.Get("/health", health.Health)
		r.Get("/ready", health.Ready)
		if rt.metrics != nil {
			r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
		}
	})

	noteHandler := handlers.NewNoteHandler(rt.notes, renderer, errorHandler, rt.logger, rt.opts.MaxBodyBytes)
	router.Group(func(r chi.Router) {
		if rt.opts.MigrateEnabled != nil && rt.migrator != nil {
			r.Use(middleware.MigrateKeys(rt.migrator, rt.opts.MigrateEnabled))
		}
		r.Get("/", noteHandler.Index)
		r.Get("/*", noteHandler.Show)
		r.Post("/*", noteHandler.Save)
	})

	return router, nil
}
