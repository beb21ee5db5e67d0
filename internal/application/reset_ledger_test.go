package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetLedger_ConsumeOnce(t *testing.T) {
	clock := newClock()
	db := newMemDB(clock)
	l := NewResetLedger(resetStore{db}).WithClock(clock.Now)
	ctx := context.Background()

	r, err := l.Open(ctx, "user-1", "tok", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, HashToken("tok"), r.TokenHash)
	assert.NotEqual(t, "tok", r.TokenHash)

	uid, err := l.Consume(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)

	_, err = l.Consume(ctx, "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = l.Consume(ctx, "unknown")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetLedger_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	clock := newClock()
	l := NewResetLedger(resetStore{newMemDB(clock)}).WithClock(clock.Now)
	ctx := context.Background()
	_, err := l.Open(ctx, "user-1", "tok", time.Hour)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Consume(ctx, "tok"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestResetLedger_Expiry(t *testing.T) {
	clock := newClock()
	l := NewResetLedger(resetStore{newMemDB(clock)}).WithClock(clock.Now)
	ctx := context.Background()
	_, err := l.Open(ctx, "user-1", "tok", time.Hour)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = l.Consume(ctx, "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetLedger_Purge(t *testing.T) {
	clock := newClock()
	db := newMemDB(clock)
	l := NewResetLedger(resetStore{db}).WithClock(clock.Now)
	ctx := context.Background()

	_, err := l.Open(ctx, "user-1", "old", time.Minute)
	require.NoError(t, err)
	_, err = l.Open(ctx, "user-1", "fresh", 2*time.Hour)
	require.NoError(t, err)

	clock.Advance(90 * time.Minute)
	n, err := l.Purge(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	uid, err := l.Consume(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}
