package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"notepad-backend/application/ports/mocks"
	"notepad-backend/domain/events"
	"notepad-backend/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestFanout_DeliversToAll(t *testing.T) {
	// Arrange
	first := new(mocks.MockEventPublisher)
	second := new(mocks.MockEventPublisher)
	failure := errors.New("bus down")
	first.On("Publish", mock.Anything, mock.Anything).Return(failure)
	second.On("Publish", mock.Anything, mock.Anything).Return(nil)
	fanout := Fanout{first, second}

	// Act
	err := fanout.Publish(context.Background(), events.NewNoteDeleted("abc", time.Now()))

	// Assert
	assert.ErrorIs(t, err, failure)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestMetricsPublisher_CountsEvents(t *testing.T) {
	collector := observability.NewCollector("test")
	publisher := NewMetricsPublisher(collector)
	ctx := context.Background()
	now := time.Now()

	_ = publisher.Publish(ctx, events.NewNoteSaved("a", 1, 1, true, now))
	_ = publisher.Publish(ctx, events.NewNoteSaved("a", 1, 2, false, now))
	_ = publisher.Publish(ctx, events.NewNoteDeleted("a", now))
	_ = publisher.Publish(ctx, events.NewKeysMigrated([]string{"note:x", "note:y"}, now))

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.NotesSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.NotesDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.KeysMigrated))
}
