package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/chat/hub"
	"marketplace_chat_service/internal/chat/repository"
	errprocess "marketplace_chat_service/pkg/err"
	"marketplace_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Broadcaster room fan-out used by the use case
type Broadcaster interface {
	Broadcast(roomID string, frame []byte, exclude *hub.Conn) int
}

// MessageUseCase 負責處理聊天訊息, every store write happens before the matching broadcast
type MessageUseCase struct {
	msgRepo repository.MessageRepository
	rooms   Broadcaster
	events  EventSink
	timeout time.Duration
	now     func() time.Time
}

// NewMessageUseCase init message use case, timeout bounds each store call
func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	rooms Broadcaster,
	events EventSink,
	timeout time.Duration,
) *MessageUseCase {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MessageUseCase{
		msgRepo: msgRepo,
		rooms:   rooms,
		events:  events,
		timeout: timeout,
		now:     time.Now,
	}
}

// SendInput validated "message" event plus its routing
type SendInput struct {
	RoomID     string
	SenderID   string
	ReceiverID *string
	ListingID  *string
	Body       string
	ClientID   string
}

// Send persist as unread then broadcast to the whole room, sender included
func (uc *MessageUseCase) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	msg := domain.NewMessage(in.RoomID, in.SenderID, in.ReceiverID, in.ListingID, in.Body, uc.now())

	storeCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	if err := uc.msgRepo.Create(storeCtx, msg); err != nil {
		logger.Log.Error("persist message",
			zap.String("room_id", in.RoomID),
			zap.String("sender_id", in.SenderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("persist message: %w", err)
	}

	frame, err := domain.Encode(domain.NewMessageFrame(domain.EventMessage, *msg, in.ClientID))
	if err != nil {
		return msg, err
	}
	uc.rooms.Broadcast(in.RoomID, frame, nil)

	event := domain.NewChatEvent(domain.KindMessageCreated, in.RoomID, in.SenderID)
	event.MessageID = msg.ID
	event.Message = msg
	uc.events.Dispatch(event)

	return msg, nil
}

// MarkRead receiver acknowledged reading; read receipt broadcast whenever accepted
func (uc *MessageUseCase) MarkRead(ctx context.Context, roomID, messageID, readerID string) error {
	changed, err := uc.raise(ctx, roomID, messageID, readerID, domain.StateSeen)
	if err != nil {
		return err
	}

	if err := uc.broadcastReceipt(domain.EventRead, roomID, messageID, readerID); err != nil {
		return err
	}
	if changed {
		event := domain.NewChatEvent(domain.KindMessageRead, roomID, readerID)
		event.MessageID = messageID
		uc.events.Dispatch(event)
	}
	return nil
}

// MarkDelivered raise to at least delivered, receipt only when the state moved
func (uc *MessageUseCase) MarkDelivered(ctx context.Context, roomID, messageID, readerID string) error {
	changed, err := uc.raise(ctx, roomID, messageID, readerID, domain.StateDelivered)
	if err != nil || !changed {
		return err
	}

	if err := uc.broadcastReceipt(domain.EventDelivered, roomID, messageID, readerID); err != nil {
		return err
	}
	event := domain.NewChatEvent(domain.KindMessageDelivered, roomID, readerID)
	event.MessageID = messageID
	uc.events.Dispatch(event)
	return nil
}

// raise ErrNotFound when the message is absent, in another room or not addressed to reader
func (uc *MessageUseCase) raise(ctx context.Context, roomID, messageID, readerID string, state domain.DeliveryState) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	msg, err := uc.msgRepo.FindByID(storeCtx, messageID)
	if err != nil {
		return false, err
	}
	if msg.RoomID != roomID || !msg.IsReceiver(readerID) {
		return false, fmt.Errorf("message %s for %s in %s: %w", messageID, readerID, roomID, errprocess.ErrNotFound)
	}

	return uc.msgRepo.SetState(storeCtx, messageID, state)
}

func (uc *MessageUseCase) broadcastReceipt(eventType domain.EventType, roomID, messageID, readerID string) error {
	frame, err := domain.Encode(domain.ReceiptFrame{
		Type:      eventType,
		RoomID:    roomID,
		MessageID: messageID,
		ReaderID:  readerID,
	})
	if err != nil {
		return err
	}
	uc.rooms.Broadcast(roomID, frame, nil)
	return nil
}

// EnterRoom flip reader's unread in room to seen, one bulk_read for all of them
func (uc *MessageUseCase) EnterRoom(ctx context.Context, roomID, readerID string) (int, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	unread, err := uc.msgRepo.ListUnread(storeCtx, roomID, readerID)
	if err != nil {
		return 0, err
	}

	count := 0
	var flipErr error
	for _, m := range unread {
		changed, err := uc.msgRepo.SetState(storeCtx, m.ID, domain.StateSeen)
		if err != nil {
			// 已成功的部分仍然要通知
			flipErr = fmt.Errorf("mark %s seen: %w", m.ID, err)
			break
		}
		if changed {
			count++
		}
	}
	if count == 0 {
		return 0, flipErr
	}

	frame, encErr := domain.Encode(domain.BulkReadFrame{
		Type:     domain.EventBulkRead,
		RoomID:   roomID,
		ReaderID: readerID,
		Count:    count,
	})
	if encErr != nil {
		return count, encErr
	}
	uc.rooms.Broadcast(roomID, frame, nil)

	event := domain.NewChatEvent(domain.KindRoomBulkRead, roomID, readerID)
	event.Count = count
	uc.events.Dispatch(event)
	return count, flipErr
}

// History room messages, ascending created_at
func (uc *MessageUseCase) History(ctx context.Context, roomID string) ([]domain.Message, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.msgRepo.ListByRoom(storeCtx, roomID)
}

// UnreadCounts unread addressed to user grouped by room and sender
func (uc *MessageUseCase) UnreadCounts(ctx context.Context, userID string) ([]domain.RoomUnread, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.msgRepo.CountUnreadByRoom(storeCtx, userID)
}

// IsIgnorable errors the protocol drops without telling the client
func IsIgnorable(err error) bool {
	return errors.Is(err, errprocess.ErrNotFound) || errors.Is(err, errprocess.ErrValidation)
}
