package repository

import (
	"context"
	"encoding/json"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/pkg/database"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// EventPublisher publish chat events after the store write
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ChatEvent) error
	Close() error
}

// KafkaWriter the part of *kafka.Writer the publisher uses
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaEventPublisher struct {
	writer KafkaWriter
}

// NewKafkaEventPublisher key = room id, so one room's events stay in one partition
func NewKafkaEventPublisher(writer KafkaWriter) EventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, event domain.ChatEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RoomID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
		},
		Time: event.OccurredAt,
	})
}

func (p *kafkaEventPublisher) Close() error {
	return p.writer.Close()
}

type rabbitEventPublisher struct {
	rabbit   database.RabbitRepo
	exchange string
}

// NewRabbitEventPublisher publish to a topic exchange, routing key = event kind
func NewRabbitEventPublisher(rabbit database.RabbitRepo, exchange string) (EventPublisher, error) {
	if err := rabbit.DeclareTopicExchange(exchange); err != nil {
		return nil, err
	}
	return &rabbitEventPublisher{rabbit: rabbit, exchange: exchange}, nil
}

func (p *rabbitEventPublisher) Publish(_ context.Context, event domain.ChatEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rabbit.Publish(p.exchange, string(event.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
}

func (p *rabbitEventPublisher) Close() error {
	return p.rabbit.Close()
}

type nopEventPublisher struct{}

// NewNopEventPublisher events.driver = none
func NewNopEventPublisher() EventPublisher {
	return nopEventPublisher{}
}

func (nopEventPublisher) Publish(context.Context, domain.ChatEvent) error { return nil }

func (nopEventPublisher) Close() error { return nil }
