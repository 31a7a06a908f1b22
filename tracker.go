package driveauth

import (
	"sync"
	"time"

	"github.com/ritasahaa/driveauth/store"
)

// Interaction classifies a user input the hosting application observed.
// The tracker treats every kind identically; the enumeration exists so the
// host can wire each of its input sources to a named class.
type Interaction uint8

const (
	InteractionPointer Interaction = iota
	InteractionKey
	InteractionScroll
	InteractionTouch
	InteractionFocus
	InteractionVisibility
)

// ActivityTracker turns observed interactions into throttled writes of the
// tab's activity timestamp. One tracker serves one authenticated session.
//
// For an exempt role the tracker is inert: Start is a no-op and no timestamp
// is ever written, so an exempt session can never accumulate the state that
// inactivity expiry reads.
type ActivityTracker struct {
	store    *store.TabStore
	throttle time.Duration
	exempt   bool

	mu        sync.Mutex
	started   bool
	lastWrite time.Time
}

func newActivityTracker(st *store.TabStore, throttle time.Duration, exempt bool) *ActivityTracker {
	return &ActivityTracker{
		store:    st,
		throttle: throttle,
		exempt:   exempt,
	}
}

// Start begins recording. Calling Start on an exempt tracker does nothing.
func (t *ActivityTracker) Start() {
	if t == nil || t.exempt {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	t.lastWrite = time.Time{}
}

// Stop ends recording. Idempotent, and safe to call on a tracker that was
// never started.
func (t *ActivityTracker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
}

// Observe records one interaction. Writes are throttled: at most one
// timestamp write per throttle window, so a burst of events costs a single
// store write.
func (t *ActivityTracker) Observe(_ Interaction) {
	if t == nil || t.exempt {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	now := time.Now()
	if !t.lastWrite.IsZero() && now.Sub(t.lastWrite) < t.throttle {
		return
	}
	t.lastWrite = now
	t.store.TouchActivity(now)
}
