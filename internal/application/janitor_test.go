package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_Sweep(t *testing.T) {
	clock := newClock()
	db := newMemDB(clock)
	sessions := NewSessionManager(sessionStore{db}, nil, nil).WithClock(clock.Now)
	ledger := NewResetLedger(resetStore{db}).WithClock(clock.Now)
	ctx := context.Background()

	_, err := sessions.Create(ctx, "user-1", "", "", time.Minute)
	require.NoError(t, err)
	longer, err := sessions.Create(ctx, "user-1", "", "", time.Hour)
	require.NoError(t, err)
	_, err = ledger.Open(ctx, "user-1", "tok", time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	j := NewJanitor(sessionStore{db}, ledger, time.Minute, time.Minute, nil)
	j.now = clock.Now

	expired, purged := j.Sweep(ctx)
	assert.Equal(t, int64(2), expired)
	assert.Equal(t, int64(1), purged)

	s, err := sessionStore{db}.GetByID(ctx, longer.ID)
	require.NoError(t, err)
	assert.False(t, s.IsActive)
}

func TestJanitor_RunStopsWithContext(t *testing.T) {
	clock := newClock()
	db := newMemDB(clock)
	j := NewJanitor(sessionStore{db}, NewResetLedger(resetStore{db}), time.Hour, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
