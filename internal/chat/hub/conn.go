package hub

import (
	"context"
	"sync"
	"time"

	errprocess "marketplace_chat_service/pkg/err"
	"marketplace_chat_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Socket write side of a websocket, the write pump is its only writer
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// ConnOptions outbound queue and keepalive setting
type ConnOptions struct {
	SendBuffer int
	WriteWait  time.Duration
	PingPeriod time.Duration
	// HoldFanout park fan-out frames until GoLive, direct replies still flow
	HoldFanout bool
}

// Conn one live websocket of a user in a room
type Conn struct {
	id     string
	userID string
	roomID string

	socket Socket
	opts   ConnOptions
	log    *logger.LogInfo

	// send fan-out frames, bounded by SendBuffer, overflow drops the conn
	send chan []byte
	// direct replies to this conn only (roster, history, pong), never count as overflow
	direct   chan []byte
	live     chan struct{}
	liveOnce sync.Once

	done      chan struct{}
	closeOnce sync.Once
}

// NewConn create conn with a bounded outbound queue
func NewConn(userID, roomID string, socket Socket, opts ConnOptions) *Conn {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}

	id := uuid.NewString()
	c := &Conn{
		id:     id,
		userID: userID,
		roomID: roomID,
		socket: socket,
		opts:   opts,
		log: logger.Log.With(
			zap.String("conn_id", id),
			zap.String("user_id", userID),
			zap.String("room_id", roomID),
		),
		send:   make(chan []byte, opts.SendBuffer),
		direct: make(chan []byte, opts.SendBuffer),
		live:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if !opts.HoldFanout {
		c.GoLive()
	}
	return c
}

// GoLive let the write pump drain fan-out frames, idempotent
func (c *Conn) GoLive() {
	c.liveOnce.Do(func() { close(c.live) })
}

// ID connection id
func (c *Conn) ID() string { return c.id }

// UserID owner
func (c *Conn) UserID() string { return c.userID }

// RoomID joined room
func (c *Conn) RoomID() string { return c.roomID }

// Log child logger with conn fields
func (c *Conn) Log() *logger.LogInfo { return c.log }

// Done closed once the conn is closed
func (c *Conn) Done() <-chan struct{} { return c.done }

// Closed report closed
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Enqueue fan-out, non-blocking, a full queue closes the conn and returns ErrSlowConsumer
func (c *Conn) Enqueue(frame []byte) error {
	if c.Closed() {
		return errprocess.ErrConnClosed
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errprocess.ErrConnClosed
	default:
		c.log.Warn("send queue full, dropping connection", zap.Int("buffer", c.opts.SendBuffer))
		c.Close()
		return errprocess.ErrSlowConsumer
	}
}

// Send wait for direct queue space, used for replies to this conn only
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	if c.Closed() {
		return errprocess.ErrConnClosed
	}

	select {
	case c.direct <- frame:
		return nil
	case <-c.done:
		return errprocess.ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close idempotent, wakes the write pump and closes the socket
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.socket.Close(); err != nil {
			c.log.Debug("socket close", zap.Error(err))
		}
	})
}

// WritePump 單一 goroutine 負責寫入 socket, returns when the conn closes or a write fails
// Direct replies are written before fan-out frames; fan-out waits for GoLive.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	live := c.live
	var fanout chan []byte
	for {
		select {
		case frame := <-c.direct:
			if !c.writeFrame(frame) {
				return
			}
			continue
		default:
		}

		select {
		case <-c.done:
			return
		case <-live:
			live = nil
			fanout = c.send
		case frame := <-c.direct:
			if !c.writeFrame(frame) {
				return
			}
		case frame := <-fanout:
			if !c.writeFrame(frame) {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Conn) writeFrame(frame []byte) bool {
	if err := c.write(websocket.TextMessage, frame); err != nil {
		c.log.Debug("write failed", zap.Error(err))
		return false
	}
	return true
}

func (c *Conn) write(messageType int, data []byte) error {
	if err := c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	return c.socket.WriteMessage(messageType, data)
}
