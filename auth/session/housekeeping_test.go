package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/auth/storage/mem"
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/logger"
	"github.com/goserg/memberportal/internal/metrics"
)

type sweepStore struct {
	storage.SessionStorage
	err    error
	sweeps chan struct{}
}

func (s *sweepStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	defer func() {
		select {
		case s.sweeps <- struct{}{}:
		default:
		}
	}()
	if s.err != nil {
		return 0, s.err
	}
	return s.SessionStorage.DeleteExpiredSessions(ctx, now)
}

func TestHousekeeper_DeletesExpired(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	inner := mem.New()
	now := time.Now().UTC()
	user := newUser(users.RoleUser)
	require.NoError(t, inner.CreateSession(ctx, users.Session{
		TokenHash: "expired",
		Identity:  user.Identity(),
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, inner.CreateSession(ctx, users.Session{
		TokenHash: "live",
		Identity:  user.Identity(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	store := &sweepStore{SessionStorage: inner, sweeps: make(chan struct{}, 1)}
	mt := metrics.New()
	h := NewHousekeeper(store, logger.Discard(), time.Hour, mt)
	h.Start()

	select {
	case <-store.sweeps:
	case <-time.After(5 * time.Second):
		t.Fatal("no sweep on start")
	}
	h.Stop()

	_, err := inner.GetSession(ctx, "expired")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = inner.GetSession(ctx, "live")
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.SessionsEvicted))
}

func TestHousekeeper_Ticks(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &sweepStore{SessionStorage: mem.New(), sweeps: make(chan struct{}, 8)}
	h := NewHousekeeper(store, logger.Discard(), 10*time.Millisecond, nil)
	h.Start()
	for i := 0; i < 3; i++ {
		select {
		case <-store.sweeps:
		case <-time.After(5 * time.Second):
			t.Fatalf("sweep %d did not happen", i)
		}
	}
	h.Stop()
}

func TestHousekeeper_StoreError(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &sweepStore{
		SessionStorage: mem.New(),
		err:            errors.New("locked"),
		sweeps:         make(chan struct{}, 1),
	}
	h := NewHousekeeper(store, logger.Discard(), time.Hour, metrics.New())
	h.Start()
	select {
	case <-store.sweeps:
	case <-time.After(5 * time.Second):
		t.Fatal("no sweep on start")
	}
	h.Stop()
}

func TestNewHousekeeper_DefaultInterval(t *testing.T) {
	h := NewHousekeeper(mem.New(), logger.Discard(), 0, nil)
	assert.Equal(t, DefaultHousekeepingInterval, h.interval)
}
