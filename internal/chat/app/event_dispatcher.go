package app

import (
	"context"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/chat/repository"
	"marketplace_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// EventSink accept chat events without blocking the caller
type EventSink interface {
	Dispatch(event domain.ChatEvent)
}

// EventDispatcher one goroutine drains the queue into the publisher, so events keep their order
type EventDispatcher struct {
	publisher repository.EventPublisher
	queue     chan domain.ChatEvent
	timeout   time.Duration
}

// NewEventDispatcher create EventDispatcher
func NewEventDispatcher(publisher repository.EventPublisher, size int, timeout time.Duration) *EventDispatcher {
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventDispatcher{
		publisher: publisher,
		queue:     make(chan domain.ChatEvent, size),
		timeout:   timeout,
	}
}

// Dispatch queue the event, dropped with a warning when the queue is full
func (d *EventDispatcher) Dispatch(event domain.ChatEvent) {
	select {
	case d.queue <- event:
	default:
		logger.Log.Warn("event queue full, dropping event",
			zap.String("kind", string(event.Kind)),
			zap.String("room_id", event.RoomID),
		)
	}
}

// Run publish until ctx is done, then flush what is already queued
func (d *EventDispatcher) Run(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.publish(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-d.queue:
					d.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (d *EventDispatcher) publish(event domain.ChatEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, event); err != nil {
		logger.Log.Error("publish chat event",
			zap.String("kind", string(event.Kind)),
			zap.String("room_id", event.RoomID),
			zap.Error(err),
		)
	}
}
