package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"marketplace_chat_service/pkg"
	errprocess "marketplace_chat_service/pkg/err"

	"github.com/go-playground/validator/v10"
)

// EventType websocket frame "type"
type EventType string

const (
	// EventMessage chat message, inbound and outbound
	EventMessage EventType = "message"
	// EventTyping typing indicator
	EventTyping EventType = "typing"
	// EventStopTyping typing stopped
	EventStopTyping EventType = "stop_typing"
	// EventRead read receipt
	EventRead EventType = "read"
	// EventDelivered delivery receipt
	EventDelivered EventType = "delivered"
	// EventPing client keepalive
	EventPing EventType = "ping"

	// EventPong reply to ping
	EventPong EventType = "pong"
	// EventHistory stored message replayed on join
	EventHistory EventType = "history"
	// EventBulkRead unread flipped to seen on join
	EventBulkRead EventType = "bulk_read"
	// EventUserStatus presence change
	EventUserStatus EventType = "user_status"
	// EventOnlineUsers presence roster on join
	EventOnlineUsers EventType = "online_users"
)

// PresenceStatus user_status value
type PresenceStatus string

const (
	// StatusOnline first connection opened
	StatusOnline PresenceStatus = "online"
	// StatusOffline last connection closed
	StatusOffline PresenceStatus = "offline"
)

var validate = validator.New()

// InboundEvent one decoded client frame, only the types below implement it
type InboundEvent interface {
	Type() EventType
	inbound()
}

// SendMessage {"type":"message","message":"hi"}
type SendMessage struct {
	Body       string         `json:"message" validate:"required"`
	ReceiverID pkg.FlexibleID `json:"receiver_id"`
	ListingID  pkg.FlexibleID `json:"listing_id"`
	ClientID   string         `json:"client_id" validate:"max=64"`
}

// Typing {"type":"typing"}
type Typing struct{}

// StopTyping {"type":"stop_typing"}
type StopTyping struct{}

// ReadReceipt {"type":"read","message_id":"..."}
type ReadReceipt struct {
	MessageID pkg.FlexibleID `json:"message_id" validate:"required"`
}

// DeliveredReceipt {"type":"delivered","message_id":"..."}
type DeliveredReceipt struct {
	MessageID pkg.FlexibleID `json:"message_id" validate:"required"`
}

// Ping {"type":"ping"}
type Ping struct{}

func (*SendMessage) Type() EventType      { return EventMessage }
func (*Typing) Type() EventType           { return EventTyping }
func (*StopTyping) Type() EventType       { return EventStopTyping }
func (*ReadReceipt) Type() EventType      { return EventRead }
func (*DeliveredReceipt) Type() EventType { return EventDelivered }
func (*Ping) Type() EventType             { return EventPing }

func (*SendMessage) inbound()      {}
func (*Typing) inbound()           {}
func (*StopTyping) inbound()       {}
func (*ReadReceipt) inbound()      {}
func (*DeliveredReceipt) inbound() {}
func (*Ping) inbound()             {}

// Decoder turn raw frames into InboundEvent
type Decoder struct {
	// MaxBodyLength rune limit of a message body, 0 = unlimited
	MaxBodyLength int
}

// Decode 解析 client frame, error wraps ErrValidation (ErrUnknownEvent for an unhandled type)
func (d Decoder) Decode(raw []byte) (InboundEvent, error) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errprocess.ErrValidation, err)
	}

	var event InboundEvent
	switch envelope.Type {
	case EventMessage:
		event = &SendMessage{}
	case EventTyping:
		event = &Typing{}
	case EventStopTyping:
		event = &StopTyping{}
	case EventRead:
		event = &ReadReceipt{}
	case EventDelivered:
		event = &DeliveredReceipt{}
	case EventPing:
		event = &Ping{}
	default:
		return nil, fmt.Errorf("%w: %q", errprocess.ErrUnknownEvent, envelope.Type)
	}

	if err := json.Unmarshal(raw, event); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errprocess.ErrValidation, envelope.Type, err)
	}

	if msg, ok := event.(*SendMessage); ok {
		msg.Body = strings.TrimSpace(msg.Body)
		if d.MaxBodyLength > 0 && utf8.RuneCountInString(msg.Body) > d.MaxBodyLength {
			return nil, fmt.Errorf("%w: message longer than %d", errprocess.ErrValidation, d.MaxBodyLength)
		}
	}

	if err := validate.Struct(event); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errprocess.ErrValidation, envelope.Type, err)
	}
	return event, nil
}

// MessageFrame message / history frame
type MessageFrame struct {
	Type       EventType     `json:"type"`
	ID         string        `json:"id"`
	RoomID     string        `json:"room_id"`
	SenderID   string        `json:"sender_id"`
	ReceiverID *string       `json:"receiver_id"`
	ListingID  *string       `json:"listing_id"`
	Body       string        `json:"message"`
	Timestamp  time.Time     `json:"timestamp"`
	State      DeliveryState `json:"state"`
	IsRead     bool          `json:"is_read"`
	ClientID   string        `json:"client_id,omitempty"`
}

// NewMessageFrame frame of a stored message
func NewMessageFrame(eventType EventType, m Message, clientID string) MessageFrame {
	return MessageFrame{
		Type:       eventType,
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		ListingID:  m.ListingID,
		Body:       m.Body,
		Timestamp:  m.CreatedAt,
		State:      m.State,
		IsRead:     m.State == StateSeen,
		ClientID:   clientID,
	}
}

// TypingFrame typing / stop_typing
type TypingFrame struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	UserID string    `json:"user_id"`
}

// ReceiptFrame read / delivered
type ReceiptFrame struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	MessageID string    `json:"message_id"`
	ReaderID  string    `json:"reader_id"`
}

// BulkReadFrame unread flipped to seen when the reader joined
type BulkReadFrame struct {
	Type     EventType `json:"type"`
	RoomID   string    `json:"room_id"`
	ReaderID string    `json:"reader_id"`
	Count    int       `json:"count"`
}

// UserStatusFrame presence change
type UserStatusFrame struct {
	Type   EventType      `json:"type"`
	UserID string         `json:"user_id"`
	Status PresenceStatus `json:"status"`
}

// OnlineUsersFrame roster
type OnlineUsersFrame struct {
	Type    EventType `json:"type"`
	UserIDs []string  `json:"user_ids"`
}

// PongFrame reply to ping
type PongFrame struct {
	Type EventType `json:"type"`
}

// Encode outbound frame to JSON
func Encode(frame any) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}
