// Package decorators wraps a ports.KVStore with cross-cutting behavior:
// circuit breaking, tracing and metrics.
package decorators

import (
	"context"
	"errors"
	"time"

	"notepad-backend/application/ports"
	apperrors "notepad-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds configuration for the store circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreakerStore stops calling the backend after repeated failures and
// reports it as unavailable until the breaker half-opens.
type CircuitBreakerStore struct {
	inner ports.KVStore
	cb    *gobreaker.CircuitBreaker
}

// NewCircuitBreakerStore wraps inner with a breaker configured by config.
func NewCircuitBreakerStore(inner ports.KVStore, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// a missing key is an answer, not a backend failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ports.ErrKeyNotFound) || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerStore{inner: inner, cb: cb}
}

var _ ports.KVStore = (*CircuitBreakerStore)(nil)

// State exposes the breaker state for readiness checks.
func (s *CircuitBreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *CircuitBreakerStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.Get(ctx, key)
	})
	if err != nil {
		return "", s.translate(err)
	}
	return v.(string), nil
}

func (s *CircuitBreakerStore) Put(ctx context.Context, key, value string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Put(ctx, key, value)
	})
	return s.translate(err)
}

func (s *CircuitBreakerStore) Delete(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Delete(ctx, key)
	})
	return s.translate(err)
}

func (s *CircuitBreakerStore) List(ctx context.Context, prefix string) ([]string, error) {
	v, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.List(ctx, prefix)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return v.([]string), nil
}

// Error codes attached to requests the breaker rejected.
const (
	CodeCircuitOpen     = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen = "CIRCUIT_HALF_OPEN"
)

func (s *CircuitBreakerStore) translate(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return apperrors.NewUnavailableError("kv store").WithCode(CodeCircuitOpen).WithCause(err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.NewUnavailableError("kv store").WithCode(CodeCircuitHalfOpen).WithCause(err)
	}
	return err
}
