package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartatm/backend/services/atm-service/internal/atm"
)

func newMirror(t *testing.T, ttl time.Duration) (*SessionMirror, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionMirror(client, ttl), mr
}

func TestSessionMirrorRoundTrip(t *testing.T) {
	ctx := context.Background()
	mirror, mr := newMirror(t, time.Minute)

	_, err := mirror.Get(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	started := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)
	require.NoError(t, mirror.Save(ctx, atm.Session{
		ID:        "abc",
		Card:      "1111222233334444",
		State:     atm.StatePinPending,
		StartedAt: started,
	}))

	snap, err := mirror.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.SessionID)
	assert.Equal(t, "************4444", snap.Card)
	assert.Equal(t, atm.StatePinPending, snap.State)
	assert.True(t, started.Equal(snap.StartedAt))
	assert.NotContains(t, mustGet(t, mr), "1111222233334444")
	assert.Equal(t, time.Minute, mr.TTL(SessionKey))

	require.NoError(t, mirror.Clear(ctx))
	_, err = mirror.Get(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionMirrorExpires(t *testing.T) {
	ctx := context.Background()
	mirror, mr := newMirror(t, 30*time.Second)

	require.NoError(t, mirror.Save(ctx, atm.Session{ID: "abc", Card: "1234", State: atm.StateCardInserted}))
	mr.FastForward(31 * time.Second)

	_, err := mirror.Get(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis) string {
	t.Helper()
	v, err := mr.Get(SessionKey)
	require.NoError(t, err)
	return v
}
