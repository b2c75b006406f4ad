package sessions

import (
	"context"
	"sync"
)

// SessionCreatedFunc is invoked once per newly established session, before
// application code is handed the session.
type SessionCreatedFunc func(ctx context.Context, session Session)

// Lifecycle is an explicit registry of session-creation callbacks. The
// embedding stack constructs one at startup, hands it to interested
// components (e.g. amp.Manager.AttachTo), and calls SessionCreated exactly
// once for each session it establishes.
//
// Callbacks run synchronously on the caller's goroutine, in registration
// order, so registrants can finish their default setup before any
// application code observes the session.
type Lifecycle struct {
	mu     sync.RWMutex
	nextID int
	cbs    map[int]SessionCreatedFunc
	order  []int
	closed bool
}

// NewLifecycle returns an empty callback registry.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{cbs: make(map[int]SessionCreatedFunc)}
}

// OnSessionCreated registers cb and returns a function that unregisters it.
// Unregistering twice is harmless.
func (lc *Lifecycle) OnSessionCreated(cb SessionCreatedFunc) (unregister func()) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	id := lc.nextID
	lc.nextID++
	lc.cbs[id] = cb
	lc.order = append(lc.order, id)

	return func() {
		lc.mu.Lock()
		defer lc.mu.Unlock()
		delete(lc.cbs, id)
	}
}

// SessionCreated notifies every registered callback about a newly
// established session. Callbacks registered while a dispatch is in flight
// are not invoked for that session.
func (lc *Lifecycle) SessionCreated(ctx context.Context, session Session) {
	lc.mu.RLock()
	if lc.closed {
		lc.mu.RUnlock()
		return
	}
	// Snapshot under the read lock so a callback may register or unregister
	// without deadlocking.
	snapshot := make([]SessionCreatedFunc, 0, len(lc.order))
	for _, id := range lc.order {
		if cb, ok := lc.cbs[id]; ok {
			snapshot = append(snapshot, cb)
		}
	}
	lc.mu.RUnlock()

	for _, cb := range snapshot {
		cb(ctx, session)
	}
}

// Close stops all further dispatch. Registered callbacks are dropped.
func (lc *Lifecycle) Close() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.closed {
		return
	}
	lc.closed = true
	lc.cbs = nil
	lc.order = nil
}
