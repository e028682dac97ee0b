package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DeliveryState message lifecycle tag, only ever raised
type DeliveryState int

const (
	// StateUnread persisted, receiver has not acknowledged
	StateUnread DeliveryState = iota
	// StateDelivered receiver client got the frame
	StateDelivered
	// StateSeen receiver read it
	StateSeen
)

var stateNames = [...]string{"unread", "delivered", "seen"}

func (s DeliveryState) String() string {
	if s < StateUnread || s > StateSeen {
		return fmt.Sprintf("DeliveryState(%d)", int(s))
	}
	return stateNames[s]
}

// Valid known state
func (s DeliveryState) Valid() bool {
	return s >= StateUnread && s <= StateSeen
}

// MarshalText json as "unread" / "delivered" / "seen"
func (s DeliveryState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid delivery state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parse "unread" / "delivered" / "seen"
func (s *DeliveryState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = DeliveryState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown delivery state %q", string(text))
}

// Value stored as its integer so "state < ?" compares in sql
func (s DeliveryState) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan read the integer column back
func (s *DeliveryState) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s = DeliveryState(v)
	case int32:
		*s = DeliveryState(v)
	case []byte:
		return s.scanText(string(v))
	case string:
		return s.scanText(v)
	default:
		return fmt.Errorf("cannot scan %T into DeliveryState", src)
	}
	return nil
}

func (s *DeliveryState) scanText(v string) error {
	if n, err := strconv.Atoi(v); err == nil {
		*s = DeliveryState(n)
		return nil
	}
	return s.UnmarshalText([]byte(v))
}

// Advance state after applying next, never lower than current
func (s DeliveryState) Advance(next DeliveryState) DeliveryState {
	if next > s {
		return next
	}
	return s
}

// Message 表示一則聊天訊息, content is immutable once stored
type Message struct {
	ID         string        `bson:"_id" json:"id" gorm:"primaryKey;type:varchar(36)"`
	RoomID     string        `bson:"room_id" json:"room_id" gorm:"type:varchar(128);not null;index:idx_chat_messages_room_created,priority:1"`
	SenderID   string        `bson:"sender_id" json:"sender_id" gorm:"type:varchar(64);not null"`
	ReceiverID *string       `bson:"receiver_id,omitempty" json:"receiver_id" gorm:"type:varchar(64);index"`
	ListingID  *string       `bson:"listing_id,omitempty" json:"listing_id" gorm:"type:varchar(64)"`
	Body       string        `bson:"message" json:"message" gorm:"column:message;type:text;not null"`
	CreatedAt  time.Time     `bson:"created_at" json:"timestamp" gorm:"not null;index:idx_chat_messages_room_created,priority:2"`
	State      DeliveryState `bson:"state" json:"state" gorm:"not null;default:0"`
}

// TableName gorm table
func (Message) TableName() string {
	return "chat_messages"
}

// NewMessage create an unread message with a fresh id, timestamp truncated to ms so every store round-trips it
func NewMessage(roomID, senderID string, receiverID, listingID *string, body string, now time.Time) *Message {
	return &Message{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		ListingID:  listingID,
		Body:       body,
		CreatedAt:  now.UTC().Truncate(time.Millisecond),
		State:      StateUnread,
	}
}

// IsReceiver user is the addressed receiver
func (m *Message) IsReceiver(userID string) bool {
	return m.ReceiverID != nil && *m.ReceiverID == userID
}

// RoomUnread definition unread by room
type RoomUnread struct {
	RoomID      string `bson:"room_id" json:"room_id"`
	SenderID    string `bson:"sender_id" json:"sender_id"`
	UnreadCount int    `bson:"unread_count" json:"unread_count"`
}
