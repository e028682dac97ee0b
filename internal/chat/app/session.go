package app

import (
	"context"
	"sync"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/chat/hub"
	"marketplace_chat_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// SessionState lifecycle of one websocket session
type SessionState int

const (
	// StateConnecting upgrade in progress
	StateConnecting SessionState = iota
	// StateAuthenticated token accepted, not yet in the room
	StateAuthenticated
	// StateActive registered, joined, reading frames
	StateActive
	// StateClosed cleanup done
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateActive:
		return "ACTIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SessionSocket the socket a session reads from and its conn writes to
type SessionSocket interface {
	hub.Socket
	ReadMessage() (messageType int, p []byte, err error)
}

// SessionParams identity and routing resolved before the upgrade
type SessionParams struct {
	UserID     string
	RoomID     string
	ReceiverID string
	ListingID  string
}

// ChatService 負責 websocket session 的生命週期
type ChatService struct {
	presence *hub.Presence
	rooms    *hub.Broadcaster
	fanout   Broadcaster
	messages *MessageUseCase
	decoder  domain.Decoder
	connOpts hub.ConnOptions
}

// NewChatService create ChatService
func NewChatService(
	presence *hub.Presence,
	rooms *hub.Broadcaster,
	fanout Broadcaster,
	messages *MessageUseCase,
	decoder domain.Decoder,
	connOpts hub.ConnOptions,
) *ChatService {
	// live frames wait until the joiner has its roster and history
	connOpts.HoldFanout = true
	return &ChatService{
		presence: presence,
		rooms:    rooms,
		fanout:   fanout,
		messages: messages,
		decoder:  decoder,
		connOpts: connOpts,
	}
}

type session struct {
	params  SessionParams
	conn    *hub.Conn
	log     *logger.LogInfo
	state   SessionState
	cleanup sync.Once
}

func (s *session) transition(next SessionState) {
	s.log.Debug("session state",
		zap.String("from", s.state.String()),
		zap.String("to", next.String()),
	)
	s.state = next
}

// Serve run one authenticated session until the socket fails or the client leaves
func (cs *ChatService) Serve(ctx context.Context, socket SessionSocket, params SessionParams) {
	conn := hub.NewConn(params.UserID, params.RoomID, socket, cs.connOpts)
	sess := &session{params: params, conn: conn, log: conn.Log(), state: StateConnecting}
	sess.transition(StateAuthenticated)

	go conn.WritePump()
	defer cs.close(sess)

	cs.presence.OnConnect(conn)
	cs.rooms.Join(params.RoomID, conn)
	sess.transition(StateActive)

	if _, err := cs.messages.EnterRoom(ctx, params.RoomID, params.UserID); err != nil {
		sess.log.Error("flip unread on join", zap.Error(err))
	}

	err := cs.sendJoinState(ctx, sess)
	conn.GoLive()
	if err != nil {
		sess.log.Debug("join state not delivered", zap.Error(err))
		return
	}

	for {
		messageType, raw, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := cs.decoder.Decode(raw)
		if err != nil {
			sess.log.Debug("drop inbound frame", zap.Error(err))
			continue
		}
		cs.dispatch(ctx, sess, event)
	}
}

// sendJoinState roster then history, to the joining conn only
func (cs *ChatService) sendJoinState(ctx context.Context, sess *session) error {
	roster, err := domain.Encode(domain.OnlineUsersFrame{
		Type:    domain.EventOnlineUsers,
		UserIDs: cs.presence.OnlineUsers(),
	})
	if err != nil {
		return err
	}
	if err := sess.conn.Send(ctx, roster); err != nil {
		return err
	}

	history, err := cs.messages.History(ctx, sess.params.RoomID)
	if err != nil {
		// 歷史讀取失敗不影響即時聊天
		sess.log.Error("load history", zap.Error(err))
		return nil
	}
	for _, m := range history {
		frame, err := domain.Encode(domain.NewMessageFrame(domain.EventHistory, m, ""))
		if err != nil {
			return err
		}
		if err := sess.conn.Send(ctx, frame); err != nil {
			return err
		}
	}
	return nil
}

func (cs *ChatService) dispatch(ctx context.Context, sess *session, event domain.InboundEvent) {
	p := sess.params

	var err error
	switch e := event.(type) {
	case *domain.SendMessage:
		_, err = cs.messages.Send(ctx, SendInput{
			RoomID:     p.RoomID,
			SenderID:   p.UserID,
			ReceiverID: cs.receiverFor(p, e.ReceiverID.Ptr()),
			ListingID:  orElse(e.ListingID.Ptr(), p.ListingID),
			Body:       e.Body,
			ClientID:   e.ClientID,
		})
	case *domain.Typing:
		err = cs.typing(p, domain.EventTyping, sess.conn)
	case *domain.StopTyping:
		err = cs.typing(p, domain.EventStopTyping, sess.conn)
	case *domain.ReadReceipt:
		err = cs.messages.MarkRead(ctx, p.RoomID, e.MessageID.String(), p.UserID)
	case *domain.DeliveredReceipt:
		err = cs.messages.MarkDelivered(ctx, p.RoomID, e.MessageID.String(), p.UserID)
	case *domain.Ping:
		var pong []byte
		if pong, err = domain.Encode(domain.PongFrame{Type: domain.EventPong}); err == nil {
			err = sess.conn.Send(ctx, pong)
		}
	}

	switch {
	case err == nil:
	case IsIgnorable(err):
		sess.log.Debug("ignored event", zap.String("type", string(event.Type())), zap.Error(err))
	default:
		sess.log.Error("handle event", zap.String("type", string(event.Type())), zap.Error(err))
	}
}

// typing is never echoed to the typing conn
func (cs *ChatService) typing(p SessionParams, eventType domain.EventType, self *hub.Conn) error {
	frame, err := domain.Encode(domain.TypingFrame{Type: eventType, RoomID: p.RoomID, UserID: p.UserID})
	if err != nil {
		return err
	}
	cs.fanout.Broadcast(p.RoomID, frame, self)
	return nil
}

// receiverFor frame receiver_id, then query receiver_id, then the other side of a pair room
func (cs *ChatService) receiverFor(p SessionParams, fromFrame *string) *string {
	if id := orElse(fromFrame, p.ReceiverID); id != nil {
		return id
	}
	if other, ok := domain.CounterpartOf(p.RoomID, p.UserID); ok {
		return &other
	}
	return nil
}

// orElse v when set, otherwise fallback, nil when both are empty
func orElse(v *string, fallback string) *string {
	if v != nil {
		return v
	}
	if fallback == "" {
		return nil
	}
	return &fallback
}

// close exactly once: leave the room, drop presence, close the conn
func (cs *ChatService) close(sess *session) {
	sess.cleanup.Do(func() {
		cs.rooms.Leave(sess.params.RoomID, sess.conn)
		cs.presence.OnDisconnect(sess.conn)
		sess.conn.Close()
		sess.transition(StateClosed)
	})
}

