package decorators

import (
	"context"
	"errors"
	"time"

	"notepad-backend/application/ports"
	"notepad-backend/pkg/observability"
)

// MetricsStore counts and times store calls.
type MetricsStore struct {
	inner     ports.KVStore
	collector *observability.Collector
}

func NewMetricsStore(inner ports.KVStore, collector *observability.Collector) *MetricsStore {
	return &MetricsStore{inner: inner, collector: collector}
}

var _ ports.KVStore = (*MetricsStore)(nil)

func (s *MetricsStore) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	v, err := s.inner.Get(ctx, key)
	s.observe("get", start, err)
	return v, err
}

func (s *MetricsStore) Put(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.inner.Put(ctx, key, value)
	s.observe("put", start, err)
	return err
}

func (s *MetricsStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	s.observe("delete", start, err)
	return err
}

func (s *MetricsStore) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.inner.List(ctx, prefix)
	s.observe("list", start, err)
	return keys, err
}

func (s *MetricsStore) observe(operation string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ports.ErrKeyNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	s.collector.ObserveStore(operation, status, time.Since(start))
}
