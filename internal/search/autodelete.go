package search

import (
	"fmt"
	"sync"
	"time"
)

// autoDeleteDelay is how long a paginated group response lives before
// being deleted, per §4.4's "Auto-delete of paginated messages".
const autoDeleteDelay = 120 * time.Second

// AutoDeleter schedules deletion of paginated bot responses in group
// chats, keyed by (chatID, messageID). Rescheduling under the same key
// atomically cancels the prior timer, matching §5's "rescheduling
// under the same key must atomically cancel-then-insert". Adapted from
// the teacher's internal/concurrency.Debouncer, keyed by a composite
// string instead of a bare message id and driven by an explicit
// Schedule/Cancel API instead of debounced Do.
type AutoDeleter struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewAutoDeleter constructs an empty scheduler using the standard
// 120 s delay.
func NewAutoDeleter() *AutoDeleter {
	return NewAutoDeleterWithDelay(autoDeleteDelay)
}

// NewAutoDeleterWithDelay constructs a scheduler with a caller-chosen
// delay, so tests don't have to wait out the real 120 s window.
func NewAutoDeleterWithDelay(delay time.Duration) *AutoDeleter {
	return &AutoDeleter{delay: delay, pending: make(map[string]*time.Timer)}
}

func key(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

// Schedule arranges for delete to run after the auto-delete delay,
// canceling any previously scheduled deletion for the same message.
func (a *AutoDeleter) Schedule(chatID int64, messageID int, del func()) {
	k := key(chatID, messageID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.pending[k]; ok {
		existing.Stop()
	}
	a.pending[k] = time.AfterFunc(a.delay, func() {
		a.mu.Lock()
		delete(a.pending, k)
		a.mu.Unlock()
		del()
	})
}

// Cancel stops any pending deletion for (chatID, messageID). A cancel
// racing the timer's own fire is a benign no-op per §5.
func (a *AutoDeleter) Cancel(chatID int64, messageID int) {
	k := key(chatID, messageID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.pending[k]; ok {
		existing.Stop()
		delete(a.pending, k)
	}
}

// StopAll cancels every pending deletion, used on shutdown.
func (a *AutoDeleter) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, t := range a.pending {
		t.Stop()
		delete(a.pending, k)
	}
}

// Pending reports how many deletions are currently scheduled. Exposed
// for tests.
func (a *AutoDeleter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
