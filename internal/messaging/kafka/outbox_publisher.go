package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
)

var errPublisherNotInitialized = errors.New("kafka outbox publisher is not initialized")

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	// dlq включает заголовки с исходным топиком и временем сбоя.
	dlq bool
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// NewDeadLetterPublisher публикует сообщения, исчерпавшие попытки, в DLQ-топик.
func NewDeadLetterPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicDeadLetterQueue
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
		dlq:      true,
	}
}

type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// Publish отправляет сообщение с ключом по заказу: события одного заказа
// попадают в одну партицию и читаются в порядке переходов.
func (p *OutboxTopicPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	payload := json.RawMessage(event.Payload)
	if !json.Valid(payload) {
		payload = json.RawMessage("null")
	}

	data, err := json.Marshal(outboxEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	headers := map[string]string{
		HeaderEventType: event.EventType,
		HeaderOutboxID:  event.ID,
	}
	if p.dlq {
		headers[HeaderOriginalTopic] = TopicOrderEvents
		headers[HeaderFailedAt] = time.Now().UTC().Format(time.RFC3339)
	}

	return p.producer.PublishRaw(p.topic, key, data, headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
