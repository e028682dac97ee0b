package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type fakeSocket struct {
	mu       sync.Mutex
	frames   [][]byte
	pings    int
	closes   int
	writeErr error
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if data == nil {
		f.pings++
		return nil
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeSocket) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

func (f *fakeSocket) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

var errBroken = errors.New("broken pipe")

func newTestConn(userID, roomID string, buffer int) (*Conn, *fakeSocket) {
	s := &fakeSocket{}
	return NewConn(userID, roomID, s, ConnOptions{SendBuffer: buffer, WriteWait: time.Second, PingPeriod: time.Hour}), s
}

// drain queued frames without a write pump
func drain(c *Conn) [][]byte {
	var out [][]byte
	for {
		select {
		case f := <-c.send:
			out = append(out, f)
		default:
			return out
		}
	}
}

func frameTypes(frames [][]byte) []map[string]any {
	out := make([]map[string]any, 0, len(frames))
	for _, f := range frames {
		var m map[string]any
		_ = json.Unmarshal(f, &m)
		out = append(out, m)
	}
	return out
}
