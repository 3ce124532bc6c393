package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civiceye/civiceye/internal/logging"
	"github.com/civiceye/civiceye/internal/model"
)

func TestPollerEmitsSnapshots(t *testing.T) {
	snapshot := []model.NotificationEvent{event(1, false), event(2, true)}
	p := NewPoller(func(ctx context.Context) ([]model.NotificationEvent, error) {
		return snapshot, nil
	}, time.Hour, logging.Discard())
	defer p.Stop()

	p.Start()

	// The initial poll happens immediately, before the first tick.
	select {
	case msg := <-p.msgs:
		require.Equal(t, SnapshotMsg{Events: snapshot}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot emitted")
	}
}

func TestPollerAbsorbsFetchErrors(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context) ([]model.NotificationEvent, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("backend unreachable")
		}
		return []model.NotificationEvent{event(5, false)}, nil
	}, time.Hour, logging.Discard())
	defer p.Stop()

	p.Start()
	p.Refresh() // second attempt succeeds

	select {
	case msg := <-p.msgs:
		events := msg.(SnapshotMsg).Events
		require.Len(t, events, 1)
		require.Equal(t, int64(5), events[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after recovery")
	}
}

func TestPollerStopHaltsLoop(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context) ([]model.NotificationEvent, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}, 10*time.Millisecond, logging.Discard())

	p.Start()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	settled := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	// At most one in-flight poll can land after Stop.
	require.LessOrEqual(t, atomic.LoadInt32(&calls), settled+1)
}
