package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserHeader = "X-Test-User"

func newTestHTTP(t *testing.T) (*fiber.App, *testChat) {
	tc := newTestChat(t)
	h := NewChatHTTPHandler(tc.service.messages, tc.presence, tc.rooms)

	app := fiber.New()
	app.Get("/healthz", h.Health)
	app.Post("/debug", DebugLogFlag)
	auth := func(c *fiber.Ctx) error {
		c.Locals(middlewares.TokenMemberID, c.Get(testUserHeader))
		return c.Next()
	}
	app.Get("/chat/history/:room_id", auth, h.History)
	app.Get("/chat/unread/:user_id", auth, h.Unread)
	return app, tc
}

func doGet(t *testing.T, app *fiber.App, target, user string) (int, []byte) {
	req := httptest.NewRequest("GET", target, nil)
	req.Header.Set(testUserHeader, user)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestChatHTTPHandler_UnreadAndHistory(t *testing.T) {
	app, tc := newTestHTTP(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, body := range []string{"hi", "still there?"} {
		m := domain.NewMessage("1-2", "1", strPtr("2"), nil, body, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, tc.repo.Create(ctx, m))
	}

	code, _ := doGet(t, app, "/chat/unread/2", "1")
	assert.Equal(t, fiber.StatusForbidden, code)

	code, body := doGet(t, app, "/chat/unread/2", "2")
	require.Equal(t, fiber.StatusOK, code)
	var counts []domain.RoomUnread
	require.NoError(t, json.Unmarshal(body, &counts))
	require.Len(t, counts, 1)
	assert.Equal(t, domain.RoomUnread{RoomID: "1-2", SenderID: "1", UnreadCount: 2}, counts[0])

	code, body = doGet(t, app, "/chat/history/1-2", "2")
	require.Equal(t, fiber.StatusOK, code)
	var frames []domain.MessageFrame
	require.NoError(t, json.Unmarshal(body, &frames))
	require.Len(t, frames, 2)
	assert.Equal(t, "hi", frames[0].Body)
	assert.True(t, frames[0].IsRead)
	assert.Equal(t, domain.EventHistory, frames[0].Type)

	_, body = doGet(t, app, "/chat/unread/2", "2")
	assert.JSONEq(t, `[]`, string(body))

	code, _ = doGet(t, app, "/chat/history/bad%20room", "2")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestChatHTTPHandler_HealthAndDebug(t *testing.T) {
	app, _ := newTestHTTP(t)

	code, body := doGet(t, app, "/healthz", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","online_users":0,"rooms":0}`, string(body))

	resp, err := app.Test(httptest.NewRequest("POST", "/debug?status=true", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/debug?status=maybe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
