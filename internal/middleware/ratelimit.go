package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// quota is one agency's request count inside the current window.
type quota struct {
	start time.Time
	used  int
}

// RateLimiter enforces a fixed-window request quota per key (the agency).
type RateLimiter struct {
	mu     sync.Mutex
	quotas map[string]*quota
	limit  int
	window time.Duration
	now    func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewRateLimiter allows requests per window for every key and starts a
// janitor that forgets keys idle for more than two windows.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		quotas: make(map[string]*quota),
		limit:  requests,
		window: window,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Allow consumes one request for key. When the quota is spent it returns
// false and the time left until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	q, ok := rl.quotas[key]
	if !ok || now.Sub(q.start) >= rl.window {
		q = &quota{start: now}
		rl.quotas[key] = q
	}
	if q.used >= rl.limit {
		return false, q.start.Add(rl.window).Sub(now)
	}
	q.used++
	return true, 0
}

// Close stops the janitor.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) janitor() {
	every := rl.window
	if every < time.Minute {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-t.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-2 * rl.window)
	for k, q := range rl.quotas {
		if q.start.Before(cutoff) {
			delete(rl.quotas, k)
		}
	}
}

// RateLimit throttles per agency and answers 429 with Retry-After once the
// agency's quota for the window is spent. Mount it after RequireAgency.
func RateLimit(rl *RateLimiter, _ time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := AgencyFromContext(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}
			ok, wait := rl.Allow(key)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				http.Error(w, "agency request quota exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
