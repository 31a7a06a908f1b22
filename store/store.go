// Package store owns the per-tab persistence for the session lifecycle: the
// bearer token, the last-activity timestamp, the last-known-role hint, and
// the session-expired flag.
//
// Each [TabStore] is scoped to one client surface ("tab") and shares nothing
// with any other instance. That isolation is deliberate: one tab logging out
// must never silently invalidate another tab's independent session. The one
// exception is the cross-tab logout signal, which lives in [LogoutSignal]
// and is write-only broadcast state, not session state.
//
// # Architecture boundaries
//
// This package never interprets token contents and never talks to the
// backend. Decoding belongs to the token package; liveness policy belongs to
// the session manager.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ritasahaa/driveauth/role"
)

// TabStore holds the session keys for a single tab. All writes are strictly
// sequential under one mutex, so a Clear is fully applied before any
// subsequent Load can observe a stale value.
//
// Key lifetimes differ on purpose:
//
//   - token and activity are credentials; [TabStore.Clear] wipes them.
//   - the role hint and the expired flag exist to be read by the NEXT
//     session in this tab (which login page to offer, whether to show the
//     session-expired page). Clear leaves them; [TabStore.Reset], the
//     logout path, wipes everything.
type TabStore struct {
	mu sync.Mutex

	id uuid.UUID

	token    string
	hasToken bool

	activity    time.Time
	hasActivity bool

	roleHint    role.Role
	hasRoleHint bool

	sessionExpired bool
}

// NewTabStore creates an empty store for a fresh tab.
func NewTabStore() *TabStore {
	return &TabStore{id: uuid.New()}
}

// ID returns the tab's stable identifier. It names this tab in the logout
// broadcast and in emitted events; it carries no session meaning.
func (s *TabStore) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SaveToken stores the bearer token for this tab.
func (s *TabStore) SaveToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.hasToken = token != ""
}

// LoadToken returns the stored token, if any.
func (s *TabStore) LoadToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.hasToken
}

// TouchActivity records t as the last observed user interaction.
func (s *TabStore) TouchActivity(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = t
	s.hasActivity = true
}

// ReadActivity returns the last recorded interaction instant, if any.
func (s *TabStore) ReadActivity() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activity, s.hasActivity
}

// SaveRoleHint records the last-known role so the session-expired page can
// offer the right login without a token to decode.
func (s *TabStore) SaveRoleHint(r role.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleHint = r
	s.hasRoleHint = true
}

// RoleHint returns the last-known role, if one was recorded.
func (s *TabStore) RoleHint() (role.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roleHint, s.hasRoleHint
}

// MarkSessionExpired sets the flag the next Initialize in this tab consults.
func (s *TabStore) MarkSessionExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionExpired = true
}

// SessionExpired reports whether an expiry was recorded for this tab.
func (s *TabStore) SessionExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionExpired
}

// ClearSessionExpired removes the expired flag.
func (s *TabStore) ClearSessionExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionExpired = false
}

// Clear removes the credential keys: token and activity timestamp. The role
// hint and expired flag survive; they are consumed by the next session in
// this tab.
func (s *TabStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.hasToken = false
	s.activity = time.Time{}
	s.hasActivity = false
}

// Reset removes every key this store ever wrote. Used by logout, which owes
// the next session a blank slate.
func (s *TabStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.hasToken = false
	s.activity = time.Time{}
	s.hasActivity = false
	s.roleHint = role.User
	s.hasRoleHint = false
	s.sessionExpired = false
}

// Empty reports whether no credential keys are present.
func (s *TabStore) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.hasToken && !s.hasActivity
}
