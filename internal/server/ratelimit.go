package server

import (
	"fmt"
	"sync"
	"time"
)

// pruneThreshold is the number of tracked clients above which idle entries
// are dropped.
const pruneThreshold = 10000

// RateLimiter applies per-client token buckets (per minute and per hour)
// and daily request and data quotas.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // in bytes

	clients map[string]*clientUsage
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	capacity float64
	perSec   float64
}

func newBucket(limit int, window time.Duration) bucket {
	return bucket{tokens: float64(limit), capacity: float64(limit), perSec: float64(limit) / window.Seconds()}
}

func (b *bucket) refill(elapsed time.Duration) {
	b.tokens = min(b.capacity, b.tokens+elapsed.Seconds()*b.perSec)
}

// wait returns how long until one token is available.
func (b *bucket) wait() time.Duration {
	if b.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - b.tokens) / b.perSec * float64(time.Second))
}

type clientUsage struct {
	minute, hour  bucket
	requestsToday int
	dataToday     int64
	day           string
	lastSeen      time.Time
}

// Usage is a snapshot of a client's daily consumption.
type Usage struct {
	RequestsToday int
	DataToday     int64
}

// NewRateLimiter creates a new rate limiter with the given limits. Zero
// disables a limit.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// CheckRateLimit admits or refuses one request of dataSize bytes from
// clientID. Refused requests consume nothing.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.usage(clientID, now)

	if rl.requestsPerMinute > 0 && u.minute.tokens < 1 {
		return &RateLimitError{Type: "minute", Limit: rl.requestsPerMinute, RetryAfter: u.minute.wait()}
	}
	if rl.requestsPerHour > 0 && u.hour.tokens < 1 {
		return &RateLimitError{Type: "hour", Limit: rl.requestsPerHour, RetryAfter: u.hour.wait()}
	}

	resets := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	if rl.maxRequestsPerDay > 0 && u.requestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{Type: "requests", Limit: int64(rl.maxRequestsPerDay), Used: int64(u.requestsToday), Resets: resets}
	}
	if rl.maxDataPerDay > 0 && u.dataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{Type: "data", Limit: rl.maxDataPerDay, Used: u.dataToday, Resets: resets}
	}

	u.minute.tokens--
	u.hour.tokens--
	u.requestsToday++
	u.dataToday += dataSize
	return nil
}

// usage returns the refilled usage record of clientID.
func (rl *RateLimiter) usage(clientID string, now time.Time) *clientUsage {
	u, ok := rl.clients[clientID]
	if !ok {
		if len(rl.clients) >= pruneThreshold {
			rl.prune(now)
		}
		u = &clientUsage{
			minute:   newBucket(rl.requestsPerMinute, time.Minute),
			hour:     newBucket(rl.requestsPerHour, time.Hour),
			lastSeen: now,
		}
		rl.clients[clientID] = u
	}

	elapsed := now.Sub(u.lastSeen)
	if elapsed > 0 {
		u.minute.refill(elapsed)
		u.hour.refill(elapsed)
	}
	u.lastSeen = now

	if day := now.Format(time.DateOnly); day != u.day {
		u.day = day
		u.requestsToday = 0
		u.dataToday = 0
	}
	return u
}

// prune drops clients idle for more than a day.
func (rl *RateLimiter) prune(now time.Time) {
	for id, u := range rl.clients {
		if now.Sub(u.lastSeen) > 24*time.Hour {
			delete(rl.clients, id)
		}
	}
}

// GetUsage returns current usage statistics for a client.
func (rl *RateLimiter) GetUsage(clientID string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u, ok := rl.clients[clientID]
	if !ok || u.day != rl.now().Format(time.DateOnly) {
		return Usage{}
	}
	return Usage{RequestsToday: u.requestsToday, DataToday: u.dataToday}
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
