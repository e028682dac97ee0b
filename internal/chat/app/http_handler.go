package app

import (
	"fmt"
	"strconv"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/chat/hub"
	"marketplace_chat_service/pkg/logger"
	"marketplace_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler REST side of the chat service
type ChatHTTPHandler struct {
	messages *MessageUseCase
	presence *hub.Presence
	rooms    *hub.Broadcaster
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(messages *MessageUseCase, presence *hub.Presence, rooms *hub.Broadcaster) *ChatHTTPHandler {
	return &ChatHTTPHandler{messages: messages, presence: presence, rooms: rooms}
}

// HealthResponse GET /healthz body
type HealthResponse struct {
	Status      string `json:"status"`
	OnlineUsers int    `json:"online_users"`
	Rooms       int    `json:"rooms"`
}

// History room history, the caller's unread in the room become seen
// @Summary Room history
// @Description Messages of room_id in created order. Opening the history marks the caller's unread as seen and broadcasts bulk_read.
// @Tags Chat
// @Security BearerAuth
// @Param room_id path string true "Room id"
// @Success 200 {array} domain.MessageFrame
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /chat/history/{room_id} [get]
func (h *ChatHTTPHandler) History(c *fiber.Ctx) error {
	roomID := c.Params("room_id")
	if err := domain.ValidateRoomID(roomID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx := c.UserContext()
	if _, err := h.messages.EnterRoom(ctx, roomID, middlewares.MemberID(c)); err != nil {
		logger.Log.Error("history mark seen", zap.String("room_id", roomID), zap.Error(err))
	}

	messages, err := h.messages.History(ctx, roomID)
	if err != nil {
		logger.Log.Error("history", zap.String("room_id", roomID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load history failed"})
	}

	frames := make([]domain.MessageFrame, 0, len(messages))
	for _, m := range messages {
		frames = append(frames, domain.NewMessageFrame(domain.EventHistory, m, ""))
	}
	return c.JSON(frames)
}

// Unread unread counts of the caller grouped by room and sender
// @Summary Unread counts
// @Tags Chat
// @Security BearerAuth
// @Param user_id path string true "Must be the caller"
// @Success 200 {array} domain.RoomUnread
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /chat/unread/{user_id} [get]
func (h *ChatHTTPHandler) Unread(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID != middlewares.MemberID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}

	counts, err := h.messages.UnreadCounts(c.UserContext(), userID)
	if err != nil {
		logger.Log.Error("unread counts", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load unread failed"})
	}
	if counts == nil {
		counts = []domain.RoomUnread{}
	}
	return c.JSON(counts)
}

// Health liveness plus hub size
// @Summary Health check
// @Tags Shared
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *ChatHTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:      "ok",
		OnlineUsers: len(h.presence.OnlineUsers()),
		Rooms:       h.rooms.Rooms(),
	})
}

// DebugLogFlag toggle debug log flag
// @Summary Toggle Debug Log Flag
// @Description Enable or disable debug logging
// @Tags Shared
// @Param status query bool true "Debug status"
// @Security BearerAuth
// @Success 200 {string} string "debug mode updated"
// @Failure 400 {string} string "Invalid status value"
// @Failure 401 {object} map[string]string
// @Router /debug [post]
func DebugLogFlag(c *fiber.Ctx) error {
	statusStr := c.Query("status")
	logger.Log.Info("debug", zap.String("status", statusStr))
	status, err := strconv.ParseBool(statusStr)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	logger.Log.SetDebugMode(status)
	return c.SendString(fmt.Sprintf("debug mode is : %t", status))
}
