package notify

import (
	"sync"

	"github.com/civiceye/civiceye/internal/model"
)

// Feed is the in-memory notification list with its unread counter.
// In realtime mode the counter is monotonic: each delivered event
// increments it and each mark-read decrements it, so no O(n) rescan
// happens per message. Only Replace, used by the polling fallback,
// derives the counter from the snapshot itself.
type Feed struct {
	mu     sync.Mutex
	events []model.NotificationEvent
	unread int
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Add prepends an event in arrival order and increments the unread
// counter by one.
func (f *Feed) Add(ev model.NotificationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append([]model.NotificationEvent{ev}, f.events...)
	f.unread++
}

// MarkRead flips the event's read flag and decrements the unread
// counter, floored at zero.
func (f *Feed) MarkRead(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.events {
		if f.events[i].ID == id {
			f.events[i].IsRead = true
			break
		}
	}
	if f.unread > 0 {
		f.unread--
	}
}

// MarkAllRead flips every read flag and resets the counter to exactly
// zero.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.events {
		f.events[i].IsRead = true
	}
	f.unread = 0
}

// Replace swaps in a full authoritative snapshot. The unread count is
// recomputed from the snapshot; this is the one derived-count mode,
// used by polling where every fetch is a complete picture.
func (f *Feed) Replace(events []model.NotificationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = make([]model.NotificationEvent, len(events))
	copy(f.events, events)

	unread := 0
	for _, ev := range events {
		if !ev.IsRead {
			unread++
		}
	}
	f.unread = unread
}

// Events returns a copy of the current list, newest first.
func (f *Feed) Events() []model.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.NotificationEvent, len(f.events))
	copy(out, f.events)
	return out
}

// Unread returns the current unread count.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}
