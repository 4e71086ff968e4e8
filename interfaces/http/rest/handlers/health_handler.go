package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"notepad-backend/application/ports"

	"go.uber.org/zap"
)

// readinessProbeKey is read to check that the store answers. Names under "-/"
// are never notes, so the key is always absent.
const readinessProbeKey = "-/readiness-probe"

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	store   ports.KVStore
	logger  *zap.Logger
	timeout time.Duration
}

func NewHealthHandler(store ports.KVStore, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger, timeout: 2 * time.Second}
}

// Health handles GET /-/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "healthy")
}

// Ready handles GET /-/ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, err := h.store.Get(ctx, readinessProbeKey); err != nil && !errors.Is(err, ports.ErrKeyNotFound) {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		writeStatus(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func writeStatus(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": value})
}
