package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
)

// EventType определяет тип события в топике заказов.
type EventType string

// EventTypeOrderStatusChanged публикуется на каждый сохранённый переход статуса.
const EventTypeOrderStatusChanged EventType = "order.status_changed"

// AggregateTypeOrder: значение aggregate_type для событий заказа.
const AggregateTypeOrder = "order"

// Topics для Kafka
const (
	TopicOrderEvents     = "restbucks.order.events"
	TopicDeadLetterQueue = "restbucks.order.events.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderOutboxID      = "x-outbox-id"
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)

// OrderStatusChangedEvent: payload события order.status_changed.
type OrderStatusChangedEvent struct {
	EventType EventType `json:"event_type"`
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderStatusChangedEvent строит событие из сохранённого перехода.
func NewOrderStatusChangedEvent(event domain.TransitionEvent) *OrderStatusChangedEvent {
	ts := event.Occurred.UTC()
	if event.Occurred.IsZero() {
		ts = time.Now().UTC()
	}
	return &OrderStatusChangedEvent{
		EventType: EventTypeOrderStatusChanged,
		OrderID:   event.OrderID,
		From:      event.From.String(),
		To:        event.To.String(),
		Version:   event.Version,
		Timestamp: ts,
	}
}
