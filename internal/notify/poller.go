package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/civiceye/civiceye/internal/model"
)

// SnapshotMsg is a tea.Msg carrying a full authoritative notification
// snapshot from a poll. Overlapping polls may complete out of order;
// each snapshot stands on its own, so last-completed wins.
type SnapshotMsg struct {
	Events []model.NotificationEvent
}

// FetchFunc retrieves the complete notification list.
type FetchFunc func(ctx context.Context) ([]model.NotificationEvent, error)

// fetchTimeout bounds a single poll round-trip.
const fetchTimeout = 10 * time.Second

// Poller is the fixed-interval fallback for environments where the
// realtime channel is unavailable. Failures are absorbed: the next
// tick retries naturally.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	logger   *slog.Logger

	msgs      chan tea.Msg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      sync.Mutex
	running bool
}

// NewPoller creates a poller that fetches snapshots every interval.
func NewPoller(fetch FetchFunc, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{
		fetch:     fetch,
		interval:  interval,
		logger:    logger,
		msgs:      make(chan tea.Msg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling loop and returns the subscription command
// for its messages. Starting twice is a no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return p.WaitForMsg()
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()
	return p.WaitForMsg()
}

// Stop halts the polling loop; no further snapshots are emitted.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// Refresh requests an immediate poll outside the fixed cadence.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll fetches one snapshot and emits it. Errors are logged only; the
// previous snapshot simply stays current until the next tick succeeds.
func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	events, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("notification poll failed", "error", err)
		return
	}

	select {
	case p.msgs <- SnapshotMsg{Events: events}:
	default:
	}
}

// WaitForMsg returns a tea.Cmd that blocks for the next snapshot.
func (p *Poller) WaitForMsg() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-p.msgs
		if !ok {
			return nil
		}
		return msg
	}
}
