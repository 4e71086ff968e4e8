package decorators

import (
	"context"
	"errors"

	"notepad-backend/application/ports"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingStore starts a span around every store call.
type TracingStore struct {
	inner  ports.KVStore
	tracer trace.Tracer
}

// NewTracingStore wraps inner with spans from tracer.
func NewTracingStore(inner ports.KVStore, tracer trace.Tracer) *TracingStore {
	return &TracingStore{inner: inner, tracer: tracer}
}

var _ ports.KVStore = (*TracingStore)(nil)

func (s *TracingStore) Get(ctx context.Context, key string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "kv.Get", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	v, err := s.inner.Get(ctx, key)
	if errors.Is(err, ports.ErrKeyNotFound) {
		span.SetAttributes(attribute.Bool("kv.found", false))
		return v, err
	}
	record(span, err)
	return v, err
}

func (s *TracingStore) Put(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "kv.Put", trace.WithAttributes(
		attribute.String("kv.key", key),
		attribute.Int("kv.value_bytes", len(value)),
	))
	defer span.End()

	err := s.inner.Put(ctx, key, value)
	record(span, err)
	return err
}

func (s *TracingStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "kv.Delete", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	err := s.inner.Delete(ctx, key)
	record(span, err)
	return err
}

func (s *TracingStore) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "kv.List", trace.WithAttributes(attribute.String("kv.prefix", prefix)))
	defer span.End()

	keys, err := s.inner.List(ctx, prefix)
	span.SetAttributes(attribute.Int("kv.keys", len(keys)))
	record(span, err)
	return keys, err
}

func record(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
