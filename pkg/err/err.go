package errprocess

import (
	"errors"
	"fmt"

	"marketplace_chat_service/pkg/logger"
)

var (
	// ErrUnauthorized bad, expired or missing token, unknown member, no live session
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation malformed frame or request
	ErrValidation = errors.New("validation failed")
	// ErrUnknownEvent inbound frame with a type nobody handles
	ErrUnknownEvent = fmt.Errorf("%w: unknown event type", ErrValidation)
	// ErrNotFound referenced record absent or not visible to the caller
	ErrNotFound = errors.New("not found")
	// ErrConnClosed connection already closed
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer outbound queue full, connection dropped
	ErrSlowConsumer = errors.New("slow consumer")
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
