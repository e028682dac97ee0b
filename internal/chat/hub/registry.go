package hub

import (
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Registry live conns per user
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

// NewRegistry create Registry
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[*Conn]struct{})}
}

// Register add conn, true when it is the user's first one
func (r *Registry) Register(userID string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.conns[userID] = set
	}
	set[c] = struct{}{}
	return !ok
}

// Unregister remove conn, true when the user has none left
func (r *Registry) Unregister(userID string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, member := set[c]; !member {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

// SendToUser enqueue on every live conn of the user, returns how many accepted it
func (r *Registry) SendToUser(userID string, frame []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sendLocked(r.conns[userID], frame)
}

// SendToAllExcept enqueue on every conn of every other user
func (r *Registry) SendToAllExcept(userID string, frame []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for user, set := range r.conns {
		if user == userID {
			continue
		}
		sent += r.sendLocked(set, frame)
	}
	return sent
}

// 失敗的 conn 已被 Close, 由它自己的 session cleanup 取消註冊
func (r *Registry) sendLocked(set map[*Conn]struct{}, frame []byte) int {
	sent := 0
	for c := range set {
		if err := c.Enqueue(frame); err != nil {
			c.Log().Debug("registry send skipped", zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// OnlineUsers sorted user ids with at least one conn
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	users := lo.Keys(r.conns)
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// ConnectionCount live conns of the user
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}
