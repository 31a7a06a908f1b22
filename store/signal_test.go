package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newSignalTest(t *testing.T) (*RedisLogoutSignal, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sig := NewRedisLogoutSignal(rdb, "da", time.Hour)
	return sig, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestSignalAnnounceThenLast(t *testing.T) {
	sig, _, done := newSignalTest(t)
	defer done()
	ctx := context.Background()

	tabID := uuid.New()
	at := time.Now().Truncate(time.Millisecond)

	if err := sig.Announce(ctx, tabID, at); err != nil {
		t.Fatalf("announce: %v", err)
	}

	ann, ok, err := sig.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if !ok {
		t.Fatal("announcement should be observable")
	}
	if ann.TabID != tabID {
		t.Fatalf("tab id: got %v want %v", ann.TabID, tabID)
	}
	if !ann.At.Equal(at) {
		t.Fatalf("timestamp: got %v want %v", ann.At, at)
	}
}

func TestSignalLastWriteWins(t *testing.T) {
	sig, _, done := newSignalTest(t)
	defer done()
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	if err := sig.Announce(ctx, first, time.Now()); err != nil {
		t.Fatalf("first announce: %v", err)
	}
	if err := sig.Announce(ctx, second, time.Now()); err != nil {
		t.Fatalf("second announce: %v", err)
	}

	ann, ok, err := sig.Last(ctx)
	if err != nil || !ok {
		t.Fatalf("last: %v ok=%v", err, ok)
	}
	if ann.TabID != second {
		t.Fatalf("expected last write to win, got tab %v", ann.TabID)
	}
}

func TestSignalEmpty(t *testing.T) {
	sig, _, done := newSignalTest(t)
	defer done()

	_, ok, err := sig.Last(context.Background())
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if ok {
		t.Fatal("no announcement was made")
	}
}

func TestSignalCorruptValueIgnored(t *testing.T) {
	sig, mr, done := newSignalTest(t)
	defer done()

	if err := mr.Set("da:logout", "garbage"); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	_, ok, err := sig.Last(context.Background())
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if ok {
		t.Fatal("corrupt value must read as no signal")
	}
}

func TestSignalBackendDown(t *testing.T) {
	sig, mr, done := newSignalTest(t)
	defer done()
	mr.Close()
	ctx := context.Background()

	if err := sig.Announce(ctx, uuid.New(), time.Now()); !errors.Is(err, ErrSignalUnavailable) {
		t.Fatalf("announce with backend down: expected ErrSignalUnavailable, got %v", err)
	}
	if _, _, err := sig.Last(ctx); !errors.Is(err, ErrSignalUnavailable) {
		t.Fatalf("last with backend down: expected ErrSignalUnavailable, got %v", err)
	}
}

func TestNoopSignal(t *testing.T) {
	var sig NoopLogoutSignal
	ctx := context.Background()

	if err := sig.Announce(ctx, uuid.New(), time.Now()); err != nil {
		t.Fatalf("noop announce: %v", err)
	}
	if _, ok, err := sig.Last(ctx); err != nil || ok {
		t.Fatalf("noop last: err=%v ok=%v", err, ok)
	}
}
