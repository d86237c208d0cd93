package domain

import (
	"context"
	"time"
)

// TransitionEvent описывает успешно сохранённый переход статуса.
type TransitionEvent struct {
	OrderID  string
	From     OrderStatus
	To       OrderStatus
	Version  int64
	Occurred time.Time
}

// TransitionListener получает уведомление после записи перехода в хранилище.
// Ошибка слушателя не отменяет переход: заказ уже сохранён.
type TransitionListener interface {
	OnTransition(ctx context.Context, event TransitionEvent) error
}

// TransitionListenerFunc позволяет использовать функцию как TransitionListener.
type TransitionListenerFunc func(ctx context.Context, event TransitionEvent) error

// OnTransition вызывает f.
func (f TransitionListenerFunc) OnTransition(ctx context.Context, event TransitionEvent) error {
	return f(ctx, event)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит историю статусов заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
