package hub

import (
	"context"
	"sync"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// StatusRecorder persist presence changes, optional
type StatusRecorder interface {
	RecordStatus(ctx context.Context, userID string, status domain.PresenceStatus) error
}

// Presence online/offline from registry cardinality
type Presence struct {
	// mu 讓 register 與 user_status 廣播成為一個步驟, online/offline 不會亂序
	mu       sync.Mutex
	registry *Registry
	recorder StatusRecorder
	timeout  time.Duration

	// users per-user lock held across transition and record, the store sees the same order as the room
	usersMu sync.Mutex
	users   map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// NewPresence create Presence, recorder may be nil
func NewPresence(registry *Registry, recorder StatusRecorder, timeout time.Duration) *Presence {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Presence{registry: registry, recorder: recorder, timeout: timeout, users: map[string]*userLock{}}
}

// OnConnect register conn, broadcast online when it is the user's first conn
func (p *Presence) OnConnect(c *Conn) bool {
	unlock := p.lockUser(c.UserID())
	defer unlock()

	p.mu.Lock()
	first := p.registry.Register(c.UserID(), c)
	if first {
		p.announce(c.UserID(), domain.StatusOnline)
	}
	p.mu.Unlock()

	if first {
		p.record(c.UserID(), domain.StatusOnline)
	}
	return first
}

// OnDisconnect unregister conn, broadcast offline when it was the user's last conn
func (p *Presence) OnDisconnect(c *Conn) bool {
	unlock := p.lockUser(c.UserID())
	defer unlock()

	p.mu.Lock()
	last := p.registry.Unregister(c.UserID(), c)
	if last {
		p.announce(c.UserID(), domain.StatusOffline)
	}
	p.mu.Unlock()

	if last {
		p.record(c.UserID(), domain.StatusOffline)
	}
	return last
}

// lockUser lock userID, the entry is dropped once nobody holds or waits on it
func (p *Presence) lockUser(userID string) func() {
	p.usersMu.Lock()
	l, ok := p.users[userID]
	if !ok {
		l = &userLock{}
		p.users[userID] = l
	}
	l.refs++
	p.usersMu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.usersMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.users, userID)
		}
		p.usersMu.Unlock()
	}
}

// OnlineUsers roster for the initial push
func (p *Presence) OnlineUsers() []string {
	return p.registry.OnlineUsers()
}

func (p *Presence) announce(userID string, status domain.PresenceStatus) {
	frame, err := domain.Encode(domain.UserStatusFrame{
		Type:   domain.EventUserStatus,
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	p.registry.SendToAllExcept(userID, frame)
}

func (p *Presence) record(userID string, status domain.PresenceStatus) {
	if p.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.recorder.RecordStatus(ctx, userID, status); err != nil {
		logger.Log.Warn("record presence status",
			zap.String("user_id", userID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
