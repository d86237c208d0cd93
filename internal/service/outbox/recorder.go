package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
	"github.com/vladislavdragonenkov/restbucks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/restbucks/internal/metrics"
)

// Recorder записывает историю статусов и ставит событие в outbox
// на каждый сохранённый переход заказа.
type Recorder struct {
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	metrics  *metrics.LifecycleMetrics
	logger   *log.Entry
}

// NewRecorder создаёт слушателя переходов. Любой из репозиториев может быть nil,
// тогда соответствующая запись пропускается.
func NewRecorder(timeline domain.TimelineRepository, outbox domain.OutboxRepository, m *metrics.LifecycleMetrics, logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.WithField("component", "transition-recorder")
	}
	return &Recorder{
		timeline: timeline,
		outbox:   outbox,
		metrics:  m,
		logger:   logger,
	}
}

// OnTransition пишет timeline и outbox независимо: сбой одной записи
// не мешает второй, обе ошибки возвращаются вместе.
func (r *Recorder) OnTransition(ctx context.Context, event domain.TransitionEvent) error {
	var errs []error

	if r.timeline != nil {
		if err := r.timeline.Append(ctx, domain.TimelineEvent{
			OrderID:  event.OrderID,
			Type:     domain.TimelineEventStatusChanged,
			From:     event.From,
			To:       event.To,
			Occurred: event.Occurred,
		}); err != nil {
			errs = append(errs, fmt.Errorf("append timeline: %w", err))
		} else {
			r.metrics.RecordTimelineEvent()
		}
	}

	if r.outbox != nil {
		if err := r.enqueue(ctx, event); err != nil {
			errs = append(errs, err)
		} else {
			r.metrics.RecordOutboxEvent()
		}
	}

	if len(errs) > 0 {
		r.logger.WithFields(log.Fields{
			"order_id": event.OrderID,
			"to":       event.To,
		}).WithError(errors.Join(errs...)).Warn("transition side effects were not fully recorded")
	}
	return errors.Join(errs...)
}

func (r *Recorder) enqueue(ctx context.Context, event domain.TransitionEvent) error {
	payload, err := json.Marshal(kafka.NewOrderStatusChangedEvent(event))
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	if _, err := r.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeOrder,
		AggregateID:   event.OrderID,
		EventType:     string(kafka.EventTypeOrderStatusChanged),
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

var _ domain.TransitionListener = (*Recorder)(nil)
