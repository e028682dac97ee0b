package app

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/chat/hub"
	"marketplace_chat_service/internal/chat/repository"
	"marketplace_chat_service/pkg/database"
	"marketplace_chat_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

// fakeSocket client side is driven through in, written frames are recorded
type fakeSocket struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	// writeDelay slow client
	writeDelay time.Duration

	mu     sync.Mutex
	frames [][]byte
	closes int
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case raw, ok := <-f.in:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, raw, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	if f.writeDelay > 0 {
		time.Sleep(f.writeDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSocket) send(t *testing.T, frame any) {
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	f.in <- raw
}

func (f *fakeSocket) received() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, raw := range f.frames {
		var m map[string]any
		_ = json.Unmarshal(raw, &m)
		out = append(out, m)
	}
	return out
}

func (f *fakeSocket) ofType(eventType domain.EventType) []map[string]any {
	var out []map[string]any
	for _, m := range f.received() {
		if m["type"] == string(eventType) {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSocket) types() []string {
	var out []string
	for _, m := range f.received() {
		out = append(out, m["type"].(string))
	}
	return out
}

func (f *fakeSocket) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// waitFor poll until n frames of eventType arrived
func (f *fakeSocket) waitFor(t *testing.T, eventType domain.EventType, n int) []map[string]any {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.ofType(eventType)) >= n
	}, 2*time.Second, 5*time.Millisecond, "waiting for %d %s frames, got %v", n, eventType, f.types())
	return f.ofType(eventType)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.ChatEvent
}

func (r *recordingSink) Dispatch(event domain.ChatEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) kinds() []domain.ChatEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ChatEventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type broadcastCall struct {
	roomID  string
	frame   map[string]any
	exclude *hub.Conn
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (r *recordingBroadcaster) Broadcast(roomID string, frame []byte, exclude *hub.Conn) int {
	var m map[string]any
	_ = json.Unmarshal(frame, &m)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcastCall{roomID: roomID, frame: m, exclude: exclude})
	return 1
}

func (r *recordingBroadcaster) sent() []broadcastCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcastCall(nil), r.calls...)
}

type testChat struct {
	service  *ChatService
	presence *hub.Presence
	rooms    *hub.Broadcaster
	repo     repository.MessageRepository
	events   *recordingSink
}

// newTestChat full stack on an in-memory badger store
func newTestChat(t *testing.T) *testChat {
	t.Helper()
	return newTestChatWith(t, hub.ConnOptions{SendBuffer: 64, WriteWait: time.Second, PingPeriod: time.Hour})
}

func newTestChatWith(t *testing.T, connOpts hub.ConnOptions) *testChat {
	t.Helper()
	db, err := database.NewBadgerDB("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewBadgerMessageRepository(db)
	rooms := hub.NewBroadcaster()
	presence := hub.NewPresence(hub.NewRegistry(), nil, time.Second)
	fanout := NewRoomFanout(rooms, repository.NewNopRoomRelay())
	events := &recordingSink{}
	messages := NewMessageUseCase(repo, fanout, events, time.Second)

	service := NewChatService(presence, rooms, fanout, messages,
		domain.Decoder{MaxBodyLength: 2000},
		connOpts,
	)
	return &testChat{service: service, presence: presence, rooms: rooms, repo: repo, events: events}
}

// connect run a session in the background, done closes when Serve returns
func (tc *testChat) connect(params SessionParams) (*fakeSocket, <-chan struct{}) {
	s := newFakeSocket()
	return s, tc.serve(s, params)
}

func (tc *testChat) serve(s *fakeSocket, params SessionParams) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		tc.service.Serve(context.Background(), s, params)
	}()
	return done
}

// indexOf position of the first frame matching want, -1 when none
func (f *fakeSocket) indexOf(want func(map[string]any) bool) int {
	for i, m := range f.received() {
		if want(m) {
			return i
		}
	}
	return -1
}

// lastIndexOf position of the last frame of eventType, -1 when none
func (f *fakeSocket) lastIndexOf(eventType domain.EventType) int {
	last := -1
	for i, m := range f.received() {
		if m["type"] == string(eventType) {
			last = i
		}
	}
	return last
}
