package notify

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/civiceye/civiceye/internal/logging"
)

// fakeConn is a scripted websocket connection. Frames pushed to the
// frames channel are returned by ReadMessage; closing the connection
// unblocks the read with an error.
type fakeConn struct {
	frames chan []byte
	once   sync.Once
	done   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.frames:
		return 1, data, nil
	case <-c.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func staticToken(tok string) TokenSource {
	return func() string { return tok }
}

// newTestChannel wires a channel to a dial stub that records attempts
// and hands out fake connections.
func newTestChannel(t *testing.T, token string, delay time.Duration) (*Channel, *int32, chan *fakeConn) {
	t.Helper()

	var dials int32
	conns := make(chan *fakeConn, 16)

	ch := NewChannel("ws://backend/ws/notifications/", staticToken(token), delay, logging.Discard())
	ch.dial = func(url string) (wsConn, error) {
		atomic.AddInt32(&dials, 1)
		conn := newFakeConn()
		conns <- conn
		return conn, nil
	}
	t.Cleanup(ch.Close)
	return ch, &dials, conns
}

// drainUntil pumps the channel's message queue until pred returns true
// or the deadline passes.
func drainUntil(t *testing.T, ch *Channel, pred func(tea.Msg) bool) tea.Msg {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		var msg tea.Msg
		select {
		case msg = <-ch.msgs:
		case <-deadline:
			t.Fatal("timed out waiting for channel message")
		}
		if pred(msg) {
			return msg
		}
	}
}

func TestConnectWithoutTokenMakesNoAttempt(t *testing.T) {
	ch, dials, _ := newTestChannel(t, "", time.Hour)

	ch.Connect()

	require.Equal(t, StateDisconnected, ch.State())
	require.Equal(t, int32(0), atomic.LoadInt32(dials))
}

func TestConnectReachesConnected(t *testing.T) {
	ch, dials, _ := newTestChannel(t, "tok", time.Hour)

	ch.Connect()
	drainUntil(t, ch, func(m tea.Msg) bool {
		sm, ok := m.(StateMsg)
		return ok && sm.State == StateConnected
	})

	require.Equal(t, StateConnected, ch.State())
	require.Equal(t, int32(1), atomic.LoadInt32(dials))
}

func TestDuplicateConnectIsNoOp(t *testing.T) {
	ch, dials, _ := newTestChannel(t, "tok", time.Hour)

	ch.Connect()
	drainUntil(t, ch, func(m tea.Msg) bool {
		sm, ok := m.(StateMsg)
		return ok && sm.State == StateConnected
	})

	// Already connected: further attempts must not dial again.
	ch.Connect()
	ch.Connect()
	require.Equal(t, int32(1), atomic.LoadInt32(dials))
}

func TestMessagesParsedInArrivalOrder(t *testing.T) {
	ch, _, conns := newTestChannel(t, "tok", time.Hour)

	ch.Connect()
	conn := <-conns
	conn.frames <- []byte(`{"id":1,"message":"first","is_read":false}`)
	conn.frames <- []byte(`{"id":2,"message":"second","is_read":false}`)

	first := drainUntil(t, ch, func(m tea.Msg) bool { _, ok := m.(EventMsg); return ok })
	require.Equal(t, int64(1), first.(EventMsg).Event.ID)

	second := drainUntil(t, ch, func(m tea.Msg) bool { _, ok := m.(EventMsg); return ok })
	require.Equal(t, int64(2), second.(EventMsg).Event.ID)
}

func TestMalformedPayloadDroppedWithoutTeardown(t *testing.T) {
	ch, _, conns := newTestChannel(t, "tok", time.Hour)

	ch.Connect()
	conn := <-conns
	conn.frames <- []byte(`{not json`)
	conn.frames <- []byte(`{"id":9,"message":"after garbage","is_read":false}`)

	// The bad frame is skipped; the connection survives and the next
	// frame still arrives.
	msg := drainUntil(t, ch, func(m tea.Msg) bool { _, ok := m.(EventMsg); return ok })
	require.Equal(t, int64(9), msg.(EventMsg).Event.ID)
	require.Equal(t, StateConnected, ch.State())
}

func TestDropSchedulesExactlyOneReconnect(t *testing.T) {
	ch, _, conns := newTestChannel(t, "tok", time.Hour)

	ch.Connect()
	conn := <-conns
	drainUntil(t, ch, func(m tea.Msg) bool {
		sm, ok := m.(StateMsg)
		return ok && sm.State == StateConnected
	})

	// Simulate the close event.
	conn.Close()
	drainUntil(t, ch, func(m tea.Msg) bool {
		sm, ok := m.(StateMsg)
		return ok && sm.State == StateDisconnected
	})

	ch.mu.Lock()
	require.Equal(t, 1, ch.scheduled)
	require.NotNil(t, ch.reconnect)
	ch.mu.Unlock()

	// A second drop before the pending attempt fires must not stack a
	// second timer.
	ch.dropAndReschedule()
	ch.mu.Lock()
	require.Equal(t, 1, ch.scheduled)
	ch.mu.Unlock()
}

func TestReconnectAttemptsAfterDelay(t *testing.T) {
	ch, dials, conns := newTestChannel(t, "tok", 10*time.Millisecond)

	ch.Connect()
	conn := <-conns
	conn.Close()

	// The scheduled attempt fires and redials.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(dials) >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	ch, dials, conns := newTestChannel(t, "tok", 20*time.Millisecond)

	ch.Connect()
	conn := <-conns
	conn.Close()
	drainUntil(t, ch, func(m tea.Msg) bool {
		sm, ok := m.(StateMsg)
		return ok && sm.State == StateDisconnected
	})

	// Teardown before the reconnect fires.
	ch.Close()
	attempts := atomic.LoadInt32(dials)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, attempts, atomic.LoadInt32(dials))
	require.Equal(t, StateDisconnected, ch.State())

	// And a closed channel refuses new connects entirely.
	ch.Connect()
	require.Equal(t, attempts, atomic.LoadInt32(dials))
}
