package driveauth

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ritasahaa/driveauth/role"
	"github.com/ritasahaa/driveauth/store"
	"github.com/ritasahaa/driveauth/token"
)

// Manager owns one tab's session state and is the only component permitted
// to mutate it. Construct it through [Builder.Build]; a fresh Manager per
// tab, no shared singletons.
//
// Methods are safe for concurrent use. At most one validation runs at a
// time: a sweep firing while a validation is in flight is dropped, never
// raced against the first.
type Manager struct {
	cfg       Config
	api       APIClient
	tab       *store.TabStore
	signal    store.LogoutSignal
	events    *eventDispatcher
	metrics   *Metrics
	validator *sessionValidator

	mu      sync.Mutex
	phase   Phase
	user    *UserProfile
	role    role.Role
	hasRole bool
	tracker *ActivityTracker

	timerMu     sync.Mutex
	timerCancel context.CancelFunc
	timerWG     sync.WaitGroup

	validating atomic.Bool
	closed     atomic.Bool
	closeOnce  sync.Once
}

// Snapshot returns the clean state tuple guards and the hosting application
// consume. Validator failures never surface here; they are visible only as
// an unauthenticated snapshot.
func (m *Manager) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Phase: PhaseUninitialized, Loading: true}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Phase:           m.phase,
		User:            m.user,
		Role:            m.role,
		HasRole:         m.hasRole,
		IsAuthenticated: m.phase == PhaseAuthenticated,
		Loading:         m.phase == PhaseUninitialized || m.phase == PhaseLoading,
	}
}

// TabID names this tab in the logout broadcast and in emitted events.
func (m *Manager) TabID() uuid.UUID {
	if m == nil || m.tab == nil {
		return uuid.Nil
	}
	return m.tab.ID()
}

// LastKnownRole returns the role hint persisted for this tab, used by the
// session-expired page to offer the right login.
func (m *Manager) LastKnownRole() (role.Role, bool) {
	if m == nil || m.tab == nil {
		return role.User, false
	}
	return m.tab.RoleHint()
}

// MetricsSnapshot returns a copy of the lifecycle counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return m.metrics.Snapshot()
}

// EventsDropped reports how many lifecycle events were discarded because the
// dispatcher buffer was full.
func (m *Manager) EventsDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.events.Dropped()
}

// EventsDroppedByType breaks the drop count down per event type.
func (m *Manager) EventsDroppedByType() map[EventType]uint64 {
	if m == nil {
		return nil
	}
	return m.events.DroppedByType()
}

// Initialize runs once at application start. currentPath is the path the
// tab opened on.
//
// An admin-prefixed path clears any stale session-expired flag and never
// redirects to the generic expired page. On any other path, a previously
// recorded expiry short-circuits to an unauthenticated state and redirects
// to the session-expired page without touching the network. Otherwise a
// stored token is validated and, on success, the recurring sweeps start.
func (m *Manager) Initialize(ctx context.Context, currentPath string) (Decision, error) {
	if m == nil {
		return Allow(), ErrManagerNotReady
	}
	if m.closed.Load() {
		return Allow(), ErrManagerClosed
	}

	m.mu.Lock()
	if m.phase != PhaseUninitialized {
		m.mu.Unlock()
		return Allow(), ErrAlreadyInitialized
	}
	m.phase = PhaseLoading
	m.mu.Unlock()

	adminSection := strings.HasPrefix(currentPath, m.cfg.Policy.AdminPathPrefix)
	if adminSection {
		// Admin sections are never parked on the generic expired page.
		m.tab.ClearSessionExpired()
	} else if m.tab.SessionExpired() {
		// Consumed on read so a reload of the expired page cannot loop.
		m.tab.ClearSessionExpired()
		m.setUnauthenticated()
		m.emit(EventInitialized, false, "session previously expired", "")
		return RedirectTo(m.cfg.Policy.SessionExpiredPath), nil
	}

	if _, ok := m.tab.LoadToken(); !ok {
		m.setUnauthenticated()
		m.emit(EventInitialized, true, "", "")
		return Allow(), nil
	}

	res, ran := m.runValidation(ctx)
	if !ran {
		// No sweeps exist yet, so nothing else can hold the gate here.
		m.setUnauthenticated()
		return Allow(), nil
	}
	if res.Outcome == OutcomeAborted {
		// The caller's context was cancelled before the backend answered.
		// Nothing was decided; roll back so Initialize can be retried.
		m.mu.Lock()
		m.phase = PhaseUninitialized
		m.mu.Unlock()
		return Allow(), ctx.Err()
	}
	m.metrics.Inc(outcomeMetric(res.Outcome))

	switch res.Outcome {
	case OutcomeValid:
		m.adoptSession(mustToken(m.tab), res.Role, res.Profile)
		m.emit(EventInitialized, true, "", res.Role.String())
		return Allow(), nil

	case OutcomeExpiredByInactivity, OutcomeExpiredByToken:
		m.tab.MarkSessionExpired()
		m.setUnauthenticated()
		m.emit(expiryEvent(res.Outcome), false, "", res.Role.String())
		if adminSection {
			return Allow(), nil
		}
		return RedirectTo(m.cfg.Policy.SessionExpiredPath), nil

	case OutcomeInvalid:
		m.setUnauthenticated()
		m.emit(EventInvalidated, false, "", "")
		return Allow(), nil

	default: // OutcomeNoSession
		m.setUnauthenticated()
		m.emit(EventInitialized, true, "", "")
		return Allow(), nil
	}
}

// LoginWithCredentials exchanges email/password at the login endpoint and
// adopts the resulting session: token persisted, activity stamped, role and
// profile adopted, sweeps started.
func (m *Manager) LoginWithCredentials(ctx context.Context, email, password string) (*UserProfile, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(EventLogin, false, err.Error(), "")
		return nil, err
	}

	r, err := role.Parse(res.Profile.Role)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(EventLogin, false, err.Error(), "")
		return nil, fmt.Errorf("%w: %v", ErrLoginInvalid, err)
	}

	profile := res.Profile
	m.adoptSession(res.Token, r, &profile)
	m.metrics.Inc(MetricLoginSuccess)
	m.emit(EventLogin, true, "", r.String())
	return &profile, nil
}

// AdoptToken adopts a token the caller obtained out-of-band (for example
// from a prior OAuth-style redirect). The token's structural shape is
// checked before adoption, then the role-appropriate identity endpoint
// resolves the profile.
func (m *Manager) AdoptToken(ctx context.Context, raw string) (*UserProfile, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	claims, err := token.Decode(raw)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(EventLogin, false, err.Error(), "")
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	profile, err := m.api.WhoAmI(ctx, claims.Role, raw)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(EventLogin, false, err.Error(), claims.Role.String())
		return nil, err
	}

	m.adoptSession(raw, claims.Role, profile)
	m.metrics.Inc(MetricLoginSuccess)
	m.emit(EventLogin, true, "", claims.Role.String())
	return profile, nil
}

// Logout broadcasts the cross-tab logout signal, clears this tab's session
// state and store, and cancels all timers.
//
// The broadcast is written first: a listener in another tab must never
// observe the signal before this tab's own clear has begun, and the local
// logout completes whether or not the broadcast lands.
func (m *Manager) Logout(ctx context.Context) error {
	if m == nil {
		return ErrManagerNotReady
	}

	if err := m.signal.Announce(ctx, m.tab.ID(), time.Now()); err != nil {
		log.Print("driveauth: logout broadcast failed")
		m.emit(EventBroadcastFailed, false, err.Error(), "")
	}

	m.stopTimers()

	m.mu.Lock()
	if m.tracker != nil {
		m.tracker.Stop()
		m.tracker = nil
	}
	m.mu.Unlock()

	m.tab.Reset()

	m.mu.Lock()
	m.phase = PhaseUnauthenticated
	m.user = nil
	m.role = role.User
	m.hasRole = false
	m.mu.Unlock()

	m.metrics.Inc(MetricLogout)
	m.emit(EventLogout, true, "", "")
	return nil
}

// ObserveInteraction forwards one user interaction to the current session's
// activity tracker. A no-op when unauthenticated or exempt.
func (m *Manager) ObserveInteraction(kind Interaction) {
	if m == nil {
		return
	}
	m.mu.Lock()
	tracker := m.tracker
	m.mu.Unlock()
	tracker.Observe(kind)
}

// Close cancels all timers and drains the event dispatcher. Idempotent;
// call on tab teardown.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.stopTimers()
		m.mu.Lock()
		if m.tracker != nil {
			m.tracker.Stop()
			m.tracker = nil
		}
		m.mu.Unlock()
		m.events.Close()
	})
}

// GuardRole applies [GuardRole] to the current state.
func (m *Manager) GuardRole(required []role.Role) Decision {
	return GuardRole(m.Snapshot(), required)
}

// GuardAdminOnly applies [GuardAdminOnly] to the current state, re-deriving
// admin status from the stored token while the state is still loading.
func (m *Manager) GuardAdminOnly() Decision {
	if m == nil {
		return GuardAdminOnly(Snapshot{}, nil)
	}
	return GuardAdminOnly(m.Snapshot(), m.tab.LoadToken)
}

// GuardPublicOnly applies [GuardPublicOnly] to the current state.
func (m *Manager) GuardPublicOnly() Decision {
	return GuardPublicOnly(m.Snapshot())
}

// adoptSession installs an authenticated session: store writes, tracker,
// state, timers. The previous session's timers are settled first so two
// sweep sets never coexist.
func (m *Manager) adoptSession(tok string, r role.Role, profile *UserProfile) {
	m.stopTimers()

	m.tab.SaveToken(tok)
	m.tab.TouchActivity(time.Now())
	m.tab.SaveRoleHint(r)
	m.tab.ClearSessionExpired()

	exempt := m.cfg.Policy.Exempt(r)
	tracker := newActivityTracker(m.tab, m.cfg.Thresholds.ActivityThrottle, exempt)
	tracker.Start()

	m.mu.Lock()
	if m.tracker != nil {
		m.tracker.Stop()
	}
	m.tracker = tracker
	m.phase = PhaseAuthenticated
	m.user = profile
	m.role = r
	m.hasRole = true
	m.mu.Unlock()

	m.startTimers(exempt)
}

func (m *Manager) setUnauthenticated() {
	m.mu.Lock()
	m.phase = PhaseUnauthenticated
	m.user = nil
	m.role = role.User
	m.hasRole = false
	m.mu.Unlock()
}

// runValidation is the single-flight gate around the validator. The second
// of two overlapping calls reports ran=false and is dropped.
func (m *Manager) runValidation(ctx context.Context) (ValidationResult, bool) {
	if !m.validating.CompareAndSwap(false, true) {
		return ValidationResult{}, false
	}
	defer m.validating.Store(false)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.API.Timeout)
	defer cancel()
	return m.validator.validate(ctx), true
}

func (m *Manager) startTimers(exempt bool) {
	if m.closed.Load() {
		return
	}
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	m.timerCancel = cancel

	m.timerWG.Add(1)
	go m.revalidateLoop(ctx)

	if !exempt {
		m.timerWG.Add(1)
		go m.inactivityLoop(ctx)
	}
}

// stopTimers cancels the sweeps and waits for them to exit. Never call from
// inside a sweep goroutine; sweeps use cancelTimersAsync.
func (m *Manager) stopTimers() {
	m.timerMu.Lock()
	cancel := m.timerCancel
	m.timerCancel = nil
	m.timerMu.Unlock()

	if cancel != nil {
		cancel()
		m.timerWG.Wait()
	}
}

// cancelTimersAsync requests sweep shutdown without waiting, for use from a
// sweep that is ending its own session. The next stopTimers still waits for
// the goroutines to drain.
func (m *Manager) cancelTimersAsync() {
	m.timerMu.Lock()
	if m.timerCancel != nil {
		m.timerCancel()
	}
	m.timerMu.Unlock()
}

// Revalidate re-runs the validator outside the sweep schedule, for example
// when the hosting surface regains focus. The result is applied to the
// session state exactly as a sweep result would be. ran is false when a
// validation was already in flight (the call is dropped, never raced) or
// when no authenticated session exists.
func (m *Manager) Revalidate(ctx context.Context) (ValidationResult, bool) {
	if m == nil || m.closed.Load() {
		return ValidationResult{}, false
	}
	return m.revalidateOnce(ctx)
}

func (m *Manager) revalidateLoop(ctx context.Context) {
	defer m.timerWG.Done()
	ticker := time.NewTicker(m.cfg.Timers.RevalidateEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.revalidateOnce(ctx)
		}
	}
}

func (m *Manager) revalidateOnce(ctx context.Context) (ValidationResult, bool) {
	m.mu.Lock()
	authenticated := m.phase == PhaseAuthenticated
	m.mu.Unlock()
	if !authenticated {
		return ValidationResult{}, false
	}

	res, ran := m.runValidation(ctx)
	if !ran {
		m.metrics.Inc(MetricSweepDropped)
		m.emit(EventSweepDropped, false, "validation in flight", "")
		return ValidationResult{}, false
	}
	if res.Outcome == OutcomeAborted {
		// Cancelled mid-flight: the validator decided nothing and left the
		// store alone, so the session state must stay put too. When the
		// cancel came from stopTimers, the caller of stopTimers settles the
		// state itself.
		return ValidationResult{}, false
	}
	m.metrics.Inc(outcomeMetric(res.Outcome))

	switch res.Outcome {
	case OutcomeValid:
		m.mu.Lock()
		if m.phase == PhaseAuthenticated {
			m.user = res.Profile
		}
		m.mu.Unlock()
		m.emit(EventValidated, true, "", res.Role.String())

	case OutcomeExpiredByInactivity, OutcomeExpiredByToken:
		m.tab.MarkSessionExpired()
		m.endSessionFromSweep()
		m.emit(expiryEvent(res.Outcome), false, "", res.Role.String())

	case OutcomeNoSession:
		// The token vanished under us (logout raced the sweep). Nothing to
		// clear and nothing to report.

	default: // OutcomeInvalid
		m.endSessionFromSweep()
		m.emit(EventInvalidated, false, "", "")
	}
	return res, true
}

func (m *Manager) inactivityLoop(ctx context.Context) {
	defer m.timerWG.Done()
	ticker := time.NewTicker(m.cfg.Timers.InactivitySweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepInactivity()
		}
	}
}

func (m *Manager) sweepInactivity() {
	m.mu.Lock()
	authenticated := m.phase == PhaseAuthenticated
	r := m.role
	hasRole := m.hasRole
	m.mu.Unlock()

	if !authenticated || !hasRole || m.cfg.Policy.Exempt(r) {
		return
	}
	last, ok := m.tab.ReadActivity()
	if !ok {
		return
	}
	if time.Since(last) <= m.cfg.Thresholds.SweepInactivity {
		return
	}

	m.tab.SaveRoleHint(r)
	m.tab.Clear()
	m.tab.MarkSessionExpired()
	m.metrics.Inc(MetricInactivityTrip)
	m.endSessionFromSweep()
	m.emit(EventExpiredInactivity, false, "", r.String())
}

// endSessionFromSweep drops to Unauthenticated from inside a sweep
// goroutine. The store was already handled by the caller.
func (m *Manager) endSessionFromSweep() {
	m.mu.Lock()
	if m.tracker != nil {
		m.tracker.Stop()
		m.tracker = nil
	}
	m.phase = PhaseUnauthenticated
	m.user = nil
	m.role = role.User
	m.hasRole = false
	m.mu.Unlock()

	m.cancelTimersAsync()
}

func (m *Manager) emit(t EventType, success bool, errMsg, roleName string) {
	if m.events == nil {
		return
	}
	m.events.Emit(context.Background(), Event{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Type:      t,
		TabID:     m.tab.ID().String(),
		Role:      roleName,
		Success:   success,
		Error:     errMsg,
	})
}

func expiryEvent(o Outcome) EventType {
	if o == OutcomeExpiredByToken {
		return EventExpiredToken
	}
	return EventExpiredInactivity
}

// mustToken re-reads the stored token after a Valid outcome; a best-effort
// refresh may have replaced the one Initialize started with.
func mustToken(tab *store.TabStore) string {
	tok, _ := tab.LoadToken()
	return tok
}
