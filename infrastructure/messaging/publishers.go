// Package messaging holds publishers that do not depend on a specific broker.
package messaging

import (
	"context"
	"errors"

	"notepad-backend/application/ports"
	"notepad-backend/domain/events"
	"notepad-backend/pkg/observability"
)

// Fanout delivers each event to every publisher and joins their errors.
type Fanout []ports.EventPublisher

func (f Fanout) Publish(ctx context.Context, event events.DomainEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MetricsPublisher turns note events into Prometheus counters.
type MetricsPublisher struct {
	collector *observability.Collector
}

func NewMetricsPublisher(collector *observability.Collector) *MetricsPublisher {
	return &MetricsPublisher{collector: collector}
}

func (p *MetricsPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	switch e := event.(type) {
	case events.NoteSaved:
		p.collector.NotesSaved.Inc()
	case events.NoteDeleted:
		p.collector.NotesDeleted.Inc()
	case events.KeysMigrated:
		p.collector.KeysMigrated.Add(float64(len(e.Keys)))
	}
	return nil
}
