package client

import (
	"sync"
	"time"
)

// CircuitBreaker tracks consecutive upstream failures and short-circuits
// calls while the upstream is considered down. State is shared across all
// calls made through one client instance, so a burst of concurrent failures
// trips the breaker for every caller at once.
//
// All methods are safe for concurrent use.
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time

	threshold int
	openFor   time.Duration
}

// NewCircuitBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for the given duration.
func NewCircuitBreaker(threshold int, openFor time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		openFor:   openFor,
	}
}

// Open reports whether the breaker is rejecting calls at the given time.
// The breaker is open iff the failure count has reached the threshold and
// the cooldown window since the last failure has not yet elapsed.
func (b *CircuitBreaker) Open(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.failures >= b.threshold && now.Sub(b.lastFailure) < b.openFor
}

// RecordFailure increments the failure count and stamps the failure time.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = now
}

// Reset clears the failure count after a successful retry.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.lastFailure = time.Time{}
}

// Failures returns the current consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.failures
}
