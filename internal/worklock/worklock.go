// Package worklock serializes tracking mutations per worker and day.
// Every attendance or task transition for a worker runs inside this lock,
// so a resume racing a start (or two resumes racing each other) cannot both
// reach the read-modify-write.
package worklock

import (
	"math/rand"
	"sync"
	"time"
)

// Registry hands out short-lived try-locks keyed by (workerID, date).
type Registry struct {
	mu      sync.Mutex
	held    map[string]bool
	retries int
}

// NewRegistry creates a registry. retries is the number of acquisition
// attempts before giving up (minimum 1).
func NewRegistry(retries int) *Registry {
	if retries < 1 {
		retries = 1
	}
	return &Registry{
		held:    make(map[string]bool),
		retries: retries,
	}
}

func lockKey(workerID, date string) string {
	return workerID + "@" + date
}

// TryAcquire attempts to take the lock once. The returned release function
// is non-nil only on success.
func (r *Registry) TryAcquire(workerID, date string) (release func(), ok bool) {
	key := lockKey(workerID, date)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held[key] {
		return nil, false
	}
	r.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.held, key)
			r.mu.Unlock()
		})
	}, true
}

// Acquire takes the lock, retrying with jittered backoff up to the
// configured attempt budget. Returns ok=false when the budget is exhausted;
// the caller surfaces that as a CONCURRENT_UPDATE error, never a dropped
// write.
func (r *Registry) Acquire(workerID, date string) (release func(), ok bool) {
	for attempt := 0; attempt < r.retries; attempt++ {
		if release, ok := r.TryAcquire(workerID, date); ok {
			return release, true
		}
		if attempt < r.retries-1 {
			time.Sleep(backoff())
		}
	}
	return nil, false
}

// backoff returns a 10-50ms jittered delay. Randomized so that two clients
// retrying in lockstep do not collide on every attempt.
func backoff() time.Duration {
	return time.Duration(10+rand.Intn(41)) * time.Millisecond
}
