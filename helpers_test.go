package driveauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ritasahaa/driveauth/role"
	"github.com/ritasahaa/driveauth/store"
)

func mintToken(t *testing.T, roleName string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": roleName,
		"exp":  exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

func seededTab(t *testing.T, roleName string, exp time.Time, lastActive time.Time) *store.TabStore {
	t.Helper()
	tab := store.NewTabStore()
	tab.SaveToken(mintToken(t, roleName, exp))
	tab.TouchActivity(lastActive)
	return tab
}

// fakeAPI implements APIClient with overridable behavior and call counters.
// The zero value answers WhoAmI with a profile matching the requested role
// and rejects Login.
type fakeAPI struct {
	mu          sync.Mutex
	whoamiCalls int
	loginCalls  int

	whoamiFn func(r role.Role, token string) (*UserProfile, error)
	loginFn  func(email, password string) (LoginResult, error)
}

func (f *fakeAPI) WhoAmI(_ context.Context, r role.Role, token string) (*UserProfile, error) {
	f.mu.Lock()
	f.whoamiCalls++
	fn := f.whoamiFn
	f.mu.Unlock()
	if fn != nil {
		return fn(r, token)
	}
	return &UserProfile{ID: "u-1", Name: "Fake User", Email: "fake@test.dev", Role: r.String()}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (LoginResult, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.loginFn
	f.mu.Unlock()
	if fn != nil {
		return fn(email, password)
	}
	return LoginResult{}, ErrInvalidCredentials
}

func (f *fakeAPI) WhoAmICalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.whoamiCalls
}

func (f *fakeAPI) setWhoAmI(fn func(r role.Role, token string) (*UserProfile, error)) {
	f.mu.Lock()
	f.whoamiFn = fn
	f.mu.Unlock()
}

// refreshingAPI adds a Refresh method so the renewal window path sees a
// TokenRefresher.
type refreshingAPI struct {
	*fakeAPI

	mu           sync.Mutex
	refreshCalls int
	refreshFn    func(token string) (string, error)
}

func (f *refreshingAPI) Refresh(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()
	if fn != nil {
		return fn(token)
	}
	return "", ErrIdentityUnavailable
}

func (f *refreshingAPI) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// recordingSignal captures logout announcements and, when a tab reference is
// attached, whether the token was still present at announce time.
type recordingSignal struct {
	mu            sync.Mutex
	announcements []store.LogoutAnnouncement
	tab           *store.TabStore
	tokenAtCall   []bool
	err           error
}

func (s *recordingSignal) Announce(_ context.Context, tabID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.announcements = append(s.announcements, store.LogoutAnnouncement{TabID: tabID, At: at})
	if s.tab != nil {
		_, ok := s.tab.LoadToken()
		s.tokenAtCall = append(s.tokenAtCall, ok)
	}
	return nil
}

func (s *recordingSignal) Last(context.Context) (store.LogoutAnnouncement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.announcements) == 0 {
		return store.LogoutAnnouncement{}, false, nil
	}
	return s.announcements[len(s.announcements)-1], true, nil
}

func (s *recordingSignal) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.announcements)
}

func newTestManager(t *testing.T, api APIClient, mutate func(cfg *Config), opts ...func(*Builder)) *Manager {
	t.Helper()
	cfg := defaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b := New().WithConfig(cfg).WithAPIClient(api)
	for _, opt := range opts {
		opt(b)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %v: %s", timeout, msg)
}
