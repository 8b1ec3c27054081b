// Package ratelimit throttles mutating requests per client IP.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window  = time.Minute
	idleTTL = 10 * time.Minute
)

// Limiter counts writes per client in fixed one-minute windows
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*clientWindow
	limit   int
	refused atomic.Int64
	now     func() time.Time

	cleanupEvery time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

type clientWindow struct {
	start time.Time
	last  time.Time
	count int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Decision is the outcome for one request
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time left in the current window when refused
	RetryAfter time.Duration
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		windows:      make(map[string]*clientWindow),
		limit:        config.RequestsPerMinute,
		now:          time.Now,
		cleanupEvery: config.CleanupInterval,
		stop:         make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Decide records a request from clientIP and reports whether it fits in the
// client's current window.
func (rl *Limiter) Decide(clientIP string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cw, ok := rl.windows[clientIP]
	if !ok || now.Sub(cw.start) >= window {
		cw = &clientWindow{start: now}
		rl.windows[clientIP] = cw
	}
	cw.last = now
	cw.count++

	if cw.count > rl.limit {
		rl.refused.Add(1)
		return Decision{RetryAfter: cw.start.Add(window).Sub(now)}
	}
	return Decision{Allowed: true, Remaining: rl.limit - cw.count}
}

func (rl *Limiter) Allow(clientIP string) bool {
	return rl.Decide(clientIP).Allowed
}

func (rl *Limiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stop:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than idleTTL
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleTTL)
	for ip, cw := range rl.windows {
		if cw.last.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Hits is the number of requests refused so far
func (rl *Limiter) Hits() int64 {
	return rl.refused.Load()
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware limits requests whose method mutates state; reads pass freely.
// Refusals carry Retry-After in whole seconds; onLimit, when set, writes the
// body.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			d := rl.Decide(extractIP(r))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				}
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
