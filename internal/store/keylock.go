package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Debounce pacing for repeated mutations of the same key. Rapid repeats (a
// user hammering +) are queued behind the limiter instead of rejected, so
// every click still lands but the backend is not flooded.
const (
	mutationInterval = 250 * time.Millisecond
	mutationBurst    = 8
)

// keyLock serializes mutations per collection item key and paces repeats.
// The second of two back-to-back mutations on the same key waits for the
// first to finish, so its base quantity reflects the first's result.
type keyLock struct {
	mu       sync.Mutex
	locks    map[itemKey]*sync.Mutex
	limiters map[itemKey]*rate.Limiter
}

func newKeyLock() *keyLock {
	return &keyLock{
		locks:    make(map[itemKey]*sync.Mutex),
		limiters: make(map[itemKey]*rate.Limiter),
	}
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyLock) lock(key itemKey) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// pace blocks until the per-key limiter admits another mutation, or the
// context is canceled.
func (k *keyLock) pace(ctx context.Context, key itemKey) error {
	k.mu.Lock()
	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(mutationInterval), mutationBurst)
		k.limiters[key] = l
	}
	k.mu.Unlock()

	return l.Wait(ctx)
}
