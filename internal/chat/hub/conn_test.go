package hub

import (
	"context"
	"testing"
	"time"

	errprocess "marketplace_chat_service/pkg/err"
	"marketplace_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func TestConn_EnqueueFullClosesConn(t *testing.T) {
	c, s := newTestConn("1", "r", 2)

	require.NoError(t, c.Enqueue([]byte("a")))
	require.NoError(t, c.Enqueue([]byte("b")))

	err := c.Enqueue([]byte("c"))
	assert.ErrorIs(t, err, errprocess.ErrSlowConsumer)
	assert.True(t, c.Closed())
	assert.Equal(t, 1, s.closeCount())

	assert.ErrorIs(t, c.Enqueue([]byte("d")), errprocess.ErrConnClosed)
}

func TestConn_CloseIdempotent(t *testing.T) {
	c, s := newTestConn("1", "r", 1)
	c.Close()
	c.Close()
	assert.Equal(t, 1, s.closeCount())

	err := c.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, errprocess.ErrConnClosed)
}

func TestConn_SendUnblocksOnClose(t *testing.T) {
	c, _ := newTestConn("1", "r", 1)
	require.NoError(t, c.Send(context.Background(), []byte("a")))

	errCh := make(chan error, 1)
	go func() { errCh <- c.Send(context.Background(), []byte("b")) }()

	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errprocess.ErrConnClosed)
	case <-time.After(time.Second):
		t.Fatal("Send did not return after Close")
	}
}

func TestConn_WritePumpOrderAndExit(t *testing.T) {
	c, s := newTestConn("1", "r", 8)
	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()

	for _, f := range []string{"1", "2", "3"} {
		require.NoError(t, c.Enqueue([]byte(f)))
	}
	assert.Eventually(t, func() bool { return len(s.written()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2"), []byte("3")}, s.written())

	c.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit")
	}
}

func TestConn_WritePumpErrorClosesConn(t *testing.T) {
	c, s := newTestConn("1", "r", 8)
	s.writeErr = errBroken
	go c.WritePump()

	require.NoError(t, c.Enqueue([]byte("x")))
	assert.Eventually(t, c.Closed, time.Second, 5*time.Millisecond)
}

func TestConn_DirectRepliesDoNotCountAsOverflow(t *testing.T) {
	c, _ := newTestConn("1", "r", 2)

	// direct queue full, no write pump running
	require.NoError(t, c.Send(context.Background(), []byte("h1")))
	require.NoError(t, c.Send(context.Background(), []byte("h2")))

	require.NoError(t, c.Enqueue([]byte("status")))
	assert.False(t, c.Closed())
}

func TestConn_HoldFanoutUntilLive(t *testing.T) {
	s := &fakeSocket{}
	c := NewConn("1", "r", s, ConnOptions{SendBuffer: 8, WriteWait: time.Second, PingPeriod: time.Hour, HoldFanout: true})
	go c.WritePump()
	defer c.Close()

	require.NoError(t, c.Enqueue([]byte("live")))
	require.NoError(t, c.Send(context.Background(), []byte("h1")))
	require.NoError(t, c.Send(context.Background(), []byte("h2")))

	require.Eventually(t, func() bool { return len(s.written()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, [][]byte{[]byte("h1"), []byte("h2")}, s.written())

	c.GoLive()
	c.GoLive()
	require.Eventually(t, func() bool { return len(s.written()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("live"), s.written()[2])
}
