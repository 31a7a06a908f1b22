package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSignalUnavailable is returned when the logout-signal backend cannot be
// reached. Callers treat a failed broadcast as non-fatal: local logout must
// complete regardless.
var ErrSignalUnavailable = errors.New("logout signal backend unavailable")

// LogoutAnnouncement is one observed logout broadcast.
type LogoutAnnouncement struct {
	TabID uuid.UUID
	At    time.Time
}

// LogoutSignal is the single deliberately shared piece of cross-tab state: a
// write-only broadcast that a tab logged out. Other tabs MAY observe it and
// react; none is required to, and observing it never forces a logout.
type LogoutSignal interface {
	// Announce publishes the logout of tabID at the given instant. The
	// announcement must be durable before the announcing tab considers its
	// own logout complete.
	Announce(ctx context.Context, tabID uuid.UUID, at time.Time) error
	// Last returns the most recent announcement, if any.
	Last(ctx context.Context) (LogoutAnnouncement, bool, error)
}

// NoopLogoutSignal is the signal used when no shared backend is configured,
// e.g. a single-surface client. Announce succeeds and is lost.
type NoopLogoutSignal struct{}

// Announce implements [LogoutSignal].
func (NoopLogoutSignal) Announce(context.Context, uuid.UUID, time.Time) error { return nil }

// Last implements [LogoutSignal]. It never observes an announcement.
func (NoopLogoutSignal) Last(context.Context) (LogoutAnnouncement, bool, error) {
	return LogoutAnnouncement{}, false, nil
}

const logoutSignalKey = "logout"

// RedisLogoutSignal stores the broadcast under a single prefixed key. Last
// write wins; history is not kept. A TTL bounds how long a stale announcement
// stays observable.
type RedisLogoutSignal struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLogoutSignal creates a signal over the given client. An empty
// prefix defaults to "da". A non-positive ttl keeps announcements for an
// hour.
func NewRedisLogoutSignal(client *redis.Client, prefix string, ttl time.Duration) *RedisLogoutSignal {
	if prefix == "" {
		prefix = "da"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLogoutSignal{redis: client, prefix: prefix, ttl: ttl}
}

func (s *RedisLogoutSignal) key() string {
	return s.prefix + ":" + logoutSignalKey
}

// Announce implements [LogoutSignal].
func (s *RedisLogoutSignal) Announce(ctx context.Context, tabID uuid.UUID, at time.Time) error {
	value := tabID.String() + "|" + strconv.FormatInt(at.UnixMilli(), 10)
	if err := s.redis.Set(ctx, s.key(), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSignalUnavailable, err)
	}
	return nil
}

// Last implements [LogoutSignal].
func (s *RedisLogoutSignal) Last(ctx context.Context) (LogoutAnnouncement, bool, error) {
	value, err := s.redis.Get(ctx, s.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return LogoutAnnouncement{}, false, nil
		}
		return LogoutAnnouncement{}, false, fmt.Errorf("%w: %v", ErrSignalUnavailable, err)
	}

	ann, err := parseAnnouncement(value)
	if err != nil {
		// A corrupt value is unreadable, not fatal; treat as no signal.
		return LogoutAnnouncement{}, false, nil
	}
	return ann, true, nil
}

func parseAnnouncement(value string) (LogoutAnnouncement, error) {
	id, rest, ok := strings.Cut(value, "|")
	if !ok {
		return LogoutAnnouncement{}, errors.New("missing separator")
	}
	tabID, err := uuid.Parse(id)
	if err != nil {
		return LogoutAnnouncement{}, err
	}
	millis, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return LogoutAnnouncement{}, err
	}
	return LogoutAnnouncement{TabID: tabID, At: time.UnixMilli(millis)}, nil
}
