package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowUpToLimit(t *testing.T) {
	store := NewStore()

	for i := 0; i < 5; i++ {
		res := store.Allow("ip:1.2.3.4", 5, time.Minute)
		assert.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 5-(i+1), res.Remaining)
	}

	res := store.Allow("ip:1.2.3.4", 5, time.Minute)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.False(t, res.ResetAt.IsZero())
}

func TestKeysAreIndependent(t *testing.T) {
	store := NewStore()

	for i := 0; i < 5; i++ {
		store.Allow("ip:1.1.1.1", 5, time.Minute)
	}
	assert.False(t, store.Allow("ip:1.1.1.1", 5, time.Minute).Allowed)
	assert.True(t, store.Allow("ip:2.2.2.2", 5, time.Minute).Allowed)
}

func TestWindowSlides(t *testing.T) {
	store := NewStore()

	for i := 0; i < 3; i++ {
		store.Allow("k", 3, 30*time.Millisecond)
	}
	assert.False(t, store.Allow("k", 3, 30*time.Millisecond).Allowed)

	time.Sleep(40 * time.Millisecond)
	assert.True(t, store.Allow("k", 3, 30*time.Millisecond).Allowed)
}

func TestPruneDropsIdleKeys(t *testing.T) {
	store := NewStore()
	store.Allow("k", 3, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	store.Prune()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.buckets)
}
