package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_GetCreatesAndReuses(t *testing.T) {
	store := NewSessionStore(time.Minute)

	a := store.Get("session-1")
	require.NoError(t, a.AddItem(item(1, "Coxinha", "5.00", 7)))

	b := store.Get("session-1")
	assert.Same(t, a, b)
	assert.Len(t, b.Items(), 1)

	c := store.Get("session-2")
	assert.NotSame(t, a, c)
	assert.Empty(t, c.Items())
}

func TestSessionStore_DropRemovesCart(t *testing.T) {
	store := NewSessionStore(time.Minute)

	a := store.Get("session-1")
	require.NoError(t, a.AddItem(item(1, "Coxinha", "5.00", 7)))

	store.Drop("session-1")

	assert.Empty(t, store.Get("session-1").Items())
}

func TestSessionStore_SweepReapsExpired(t *testing.T) {
	store := NewSessionStore(time.Minute)
	store.Get("session-1")

	// jitter adds up to 60s on top of the TTL
	store.sweep(time.Now().Add(3 * time.Minute))

	store.mu.Lock()
	_, ok := store.sessions["session-1"]
	store.mu.Unlock()
	assert.False(t, ok)
}

func TestSessionStore_SweepSparesInFlightSubmission(t *testing.T) {
	store := NewSessionStore(time.Minute)
	agg := store.Get("session-1")
	require.NoError(t, agg.AddItem(item(1, "Coxinha", "5.00", 7)))
	_, err := agg.BeginSubmit()
	require.NoError(t, err)

	store.sweep(time.Now().Add(3 * time.Minute))

	store.mu.Lock()
	_, ok := store.sessions["session-1"]
	store.mu.Unlock()
	assert.True(t, ok, "in-flight cart must not be reaped")
}
