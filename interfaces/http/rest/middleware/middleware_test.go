package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"notepad-backend/application/services"
	"notepad-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingMigrator struct {
	calls int
}

func (m *countingMigrator) Migrate(context.Context) services.MigrationReport {
	m.calls++
	return services.MigrationReport{}
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestMigrateKeys(t *testing.T) {
	// Arrange
	migrator := &countingMigrator{}
	enabled := true
	handler := MigrateKeys(migrator, func() bool { return enabled })(http.HandlerFunc(okHandler))

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	enabled = false
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// Assert
	assert.Equal(t, 1, migrator.calls)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := Logger(zap.New(core))(http.HandlerFunc(okHandler))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/abc", nil))

	entries := logs.FilterMessage("HTTP Request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "POST", fields["method"])
		assert.Equal(t, "/abc", fields["path"])
		assert.Equal(t, int64(http.StatusNoContent), fields["status"])
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	collector := observability.NewCollector("test")
	router := chi.NewRouter()
	router.Use(Metrics(collector))
	router.Get("/*", okHandler)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/some/private/name", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "/*", "204")))
}
