package driveauth

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/ritasahaa/driveauth/role"
)

// Config groups every tunable of the session lifecycle. Zero values are not
// usable; start from the defaults the [Builder] seeds and override the
// fields you need, or load overrides with [ConfigFromEnv].
type Config struct {
	Thresholds ThresholdConfig
	Timers     TimerConfig
	Policy     PolicyConfig
	API        APIConfig
	Events     EventConfig
	Signal     SignalConfig
	Metrics    MetricsConfig
}

/*
====================================
THRESHOLD CONFIG
====================================
*/

// ThresholdConfig holds the liveness windows.
//
// Inactivity and SweepInactivity are deliberately two separate values: the
// validator applies the short threshold on every run, while the periodic
// sweep applies the long one. The platform has always shipped with the two
// values apart (10m vs 30m); collapsing them is a policy change, so both
// stay independently configurable.
type ThresholdConfig struct {
	// Inactivity is the maximum idle time the validator tolerates for a
	// non-exempt session.
	Inactivity time.Duration
	// SweepInactivity is the longer idle ceiling enforced by the recurring
	// inactivity sweep.
	SweepInactivity time.Duration
	// ActivityThrottle is the minimum gap between two activity-timestamp
	// writes.
	ActivityThrottle time.Duration
	// RenewalWindow is how close to exp a token must be before a best-effort
	// refresh is attempted.
	RenewalWindow time.Duration
}

/*
====================================
TIMER CONFIG
====================================
*/

// TimerConfig holds the recurring sweep cadences started on authentication.
type TimerConfig struct {
	// RevalidateEvery is the cadence of the full revalidation sweep.
	RevalidateEvery time.Duration
	// InactivitySweepEvery is the cadence of the inactivity-only sweep,
	// started for non-exempt roles.
	InactivitySweepEvery time.Duration
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig holds the role policy and the paths the manager redirects to.
type PolicyConfig struct {
	// ExemptRoles are excluded from inactivity tracking and from client-side
	// expiry enforcement; their liveness is deferred entirely to the backend.
	// Default: admin and superadmin. This is a policy list, not a hardcoded
	// special case, so the exemption can be revisited per deployment.
	ExemptRoles []role.Role
	// AdminPathPrefix marks the section whose Initialize never redirects to
	// the session-expired page.
	AdminPathPrefix string
	// SessionExpiredPath is where non-exempt expiries land.
	SessionExpiredPath string
}

// Exempt reports whether r is excluded from inactivity/expiry enforcement.
func (p PolicyConfig) Exempt(r role.Role) bool {
	return slices.Contains(p.ExemptRoles, r)
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig configures the built-in HTTP client when no custom [APIClient]
// is supplied to the builder.
type APIConfig struct {
	BaseURL string
	// Timeout bounds every identity, login, and refresh call. A timed-out
	// call is indistinguishable from a network failure.
	Timeout time.Duration
}

/*
====================================
EVENT CONFIG
====================================
*/

// EventConfig configures the async lifecycle-event dispatcher.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking: events beyond the buffer are
	// counted and discarded instead of stalling the session path.
	DropIfFull bool
}

/*
====================================
SIGNAL CONFIG
====================================
*/

// SignalConfig configures the cross-tab logout broadcast.
type SignalConfig struct {
	// RedisPrefix namespaces the broadcast key.
	RedisPrefix string
	// TTL bounds how long a logout announcement stays observable.
	TTL time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Thresholds: ThresholdConfig{
			Inactivity:       10 * time.Minute,
			SweepInactivity:  30 * time.Minute,
			ActivityThrottle: 60 * time.Second,
			RenewalWindow:    300 * time.Second,
		},
		Timers: TimerConfig{
			RevalidateEvery:      5 * time.Minute,
			InactivitySweepEvery: time.Minute,
		},
		Policy: PolicyConfig{
			ExemptRoles:        []role.Role{role.Admin, role.SuperAdmin},
			AdminPathPrefix:    "/admin",
			SessionExpiredPath: "/session-expired",
		},
		API: APIConfig{
			Timeout: 10 * time.Second,
		},
		Events: EventConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Signal: SignalConfig{
			RedisPrefix: "da",
			TTL:         time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Policy.ExemptRoles = slices.Clone(cfg.Policy.ExemptRoles)
	return out
}

// Validate checks the configuration for values the lifecycle cannot run
// with. It is called by [Builder.Build]; direct callers only need it when
// mutating a Config after construction.
func (c Config) Validate() error {
	if c.Thresholds.Inactivity <= 0 {
		return errors.New("inactivity threshold must be positive")
	}
	if c.Thresholds.SweepInactivity <= 0 {
		return errors.New("sweep inactivity threshold must be positive")
	}
	if c.Thresholds.SweepInactivity < c.Thresholds.Inactivity {
		return errors.New("sweep inactivity threshold must not undercut the validator threshold")
	}
	if c.Thresholds.ActivityThrottle <= 0 {
		return errors.New("activity throttle must be positive")
	}
	if c.Thresholds.RenewalWindow < 0 {
		return errors.New("renewal window must not be negative")
	}
	if c.Timers.RevalidateEvery <= 0 {
		return errors.New("revalidation interval must be positive")
	}
	if c.Timers.InactivitySweepEvery <= 0 {
		return errors.New("inactivity sweep interval must be positive")
	}
	for _, r := range c.Policy.ExemptRoles {
		if !r.Valid() {
			return errors.New("exempt role outside the closed role set")
		}
	}
	if c.Policy.SessionExpiredPath == "" || !strings.HasPrefix(c.Policy.SessionExpiredPath, "/") {
		return errors.New("session expired path must be absolute")
	}
	if c.Policy.AdminPathPrefix == "" || !strings.HasPrefix(c.Policy.AdminPathPrefix, "/") {
		return errors.New("admin path prefix must be absolute")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api timeout must be positive")
	}
	if c.Events.Enabled && c.Events.BufferSize < 0 {
		return errors.New("event buffer size must not be negative")
	}
	return nil
}
