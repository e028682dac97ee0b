package app

import (
	"context"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/pkg/logger"
	"marketplace_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler fiber 與 ChatService 之間的轉接
type ChatWebsocketHandler struct {
	service       *ChatService
	pongWait      time.Duration
	maxFrameBytes int64
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(service *ChatService, pongWait time.Duration, maxFrameBytes int64) *ChatWebsocketHandler {
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	return &ChatWebsocketHandler{
		service:       service,
		pongWait:      pongWait,
		maxFrameBytes: maxFrameBytes,
	}
}

// Upgrade reject a bad room id or a plain http request before the upgrade
func (h *ChatWebsocketHandler) Upgrade(c *fiber.Ctx) error {
	if err := domain.ValidateRoomID(c.Params("room_id")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// HandleConnection 是 WebSocket 連線的進入點
// @Summary Chat websocket
// @Description Upgrade to a websocket joined to room_id. Token from ?auth=, ?token=, auth_token cookie or Bearer header.
// @Tags Chat
// @Param room_id path string true "Room id, [A-Za-z0-9_.:-]{1,128}"
// @Param receiver_id query string false "Default receiver of sent messages"
// @Param listing_id query string false "Listing the conversation is about"
// @Param auth query string false "JWT"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /chat/ws/{room_id} [get]
func (h *ChatWebsocketHandler) HandleConnection(conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	params := SessionParams{
		UserID:     memberID,
		RoomID:     conn.Params("room_id"),
		ReceiverID: conn.Query("receiver_id"),
		ListingID:  conn.Query("listing_id"),
	}
	logger.Log.Info("websocket open",
		zap.String("user_id", params.UserID),
		zap.String("room_id", params.RoomID),
	)

	if h.maxFrameBytes > 0 {
		conn.SetReadLimit(h.maxFrameBytes)
	}
	socket := &fiberSocket{Conn: conn, pongWait: h.pongWait}
	socket.extend()

	//server發出ping之後client連線正常會回pong, 延長讀取期限
	conn.SetPongHandler(func(string) error {
		socket.extend()
		return nil
	})

	h.service.Serve(context.Background(), socket, params)
	logger.Log.Info("websocket close",
		zap.String("user_id", params.UserID),
		zap.String("room_id", params.RoomID),
	)
}

// fiberSocket any inbound frame counts as liveness
type fiberSocket struct {
	*websocket.Conn
	pongWait time.Duration
}

func (s *fiberSocket) extend() {
	if err := s.SetReadDeadline(time.Now().Add(s.pongWait)); err != nil {
		logger.Log.Debug("set read deadline", zap.Error(err))
	}
}

// ReadMessage read and push the deadline forward
func (s *fiberSocket) ReadMessage() (int, []byte, error) {
	messageType, data, err := s.Conn.ReadMessage()
	if err == nil {
		s.extend()
	}
	return messageType, data, err
}
