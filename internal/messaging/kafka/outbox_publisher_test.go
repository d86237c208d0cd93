package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	producer, mockProducer := newTestProducer(t)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var envelope outboxEnvelope
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		if envelope.ID != "outbox-1" || envelope.AggregateID != "order-123" {
			t.Errorf("unexpected envelope: %+v", envelope)
		}
		if string(envelope.Payload) != `{"to":"PAID"}` {
			t.Errorf("payload must be embedded as is, got %s", envelope.Payload)
		}
		return nil
	})

	publisher := NewOutboxPublisher(producer, "")

	err := publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: AggregateTypeOrder,
		AggregateID:   "order-123",
		EventType:     string(EventTypeOrderStatusChanged),
		Payload:       []byte(`{"to":"PAID"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	producer, mockProducer := newTestProducer(t)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: AggregateTypeOrder,
		AggregateID:   "order-234",
		EventType:     string(EventTypeOrderStatusChanged),
		Payload:       []byte(`{"to":"TAKEN"}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishInvalidPayload(t *testing.T) {
	t.Parallel()

	producer, mockProducer := newTestProducer(t)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var envelope outboxEnvelope
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		if string(envelope.Payload) != "null" {
			t.Errorf("invalid payload must be replaced with null, got %s", envelope.Payload)
		}
		return nil
	})

	publisher := NewDeadLetterPublisher(producer, "")
	if err := publisher.Publish(context.Background(), domain.OutboxMessage{ID: "outbox-4", Payload: []byte("not json")}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishCancelledContext(t *testing.T) {
	t.Parallel()

	producer, mockProducer := newTestProducer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	publisher := NewOutboxPublisher(producer, TopicOrderEvents)
	if err := publisher.Publish(ctx, domain.OutboxMessage{ID: "outbox-5"}); err == nil {
		t.Fatal("expected context error")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	if err := publisher.Publish(context.Background(), domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}
