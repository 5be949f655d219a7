package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-client and global request rate limits using
// token buckets.
type RateLimiter struct {
	mu        sync.Mutex
	global    *rate.Limiter
	clients   map[string]*rate.Limiter
	perClient rate.Limit
	burst     int
}

// NewRateLimiter creates a rate limiter. globalRPM is the total
// requests/minute across all clients, perClientRPM the per-client budget.
func NewRateLimiter(globalRPM, perClientRPM int) *RateLimiter {
	globalBurst := globalRPM
	if globalBurst < 1 {
		globalBurst = 1
	}
	clientBurst := perClientRPM
	if clientBurst < 1 {
		clientBurst = 1
	}
	return &RateLimiter{
		global:    rate.NewLimiter(rate.Limit(float64(globalRPM)/60.0), globalBurst),
		clients:   make(map[string]*rate.Limiter),
		perClient: rate.Limit(float64(perClientRPM) / 60.0),
		burst:     clientBurst,
	}
}

// Allow reports whether a request from the given client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	if !rl.global.Allow() {
		return false
	}
	rl.mu.Lock()
	limiter, ok := rl.clients[client]
	if !ok {
		limiter = rate.NewLimiter(rl.perClient, rl.burst)
		rl.clients[client] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}
