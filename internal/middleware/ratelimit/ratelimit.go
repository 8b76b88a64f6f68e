// Package ratelimit limits requests per client with one token bucket per IP.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter provides rate limiting functionality
type Limiter struct {
	mu      sync.Mutex
	clients *gocache.Cache

	limit rate.Limit
	burst int

	hits     atomic.Int64
	rejected atomic.Int64
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// Burst defaults to RequestsPerMinute.
	Burst int
	// IdleTTL is how long an idle client's bucket is kept.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleTTL:           10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}

	return &Limiter{
		clients: gocache.New(config.IdleTTL, config.CleanupInterval),
		limit:   rate.Limit(float64(config.RequestsPerMinute) / 60),
		burst:   config.Burst,
	}
}

func (rl *Limiter) limiterFor(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Get(clientIP); ok {
		l := v.(*rate.Limiter)
		// touching the entry keeps an active client from expiring
		rl.clients.SetDefault(clientIP, l)
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.SetDefault(clientIP, l)
	return l
}

// Allow checks if a request from the given IP should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	return rl.reserve(clientIP) == 0
}

// reserve consumes a token and returns how long the caller would have to
// wait for it; zero means allowed now.
func (rl *Limiter) reserve(clientIP string) time.Duration {
	rl.hits.Add(1)
	l := rl.limiterFor(clientIP)
	if l.Allow() {
		return 0
	}
	rl.rejected.Add(1)

	r := l.Reserve()
	wait := r.Delay()
	r.Cancel()
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.ItemCount()
}

// Stop drops every tracked client. go-cache stops its janitor once the
// cache is garbage collected.
func (rl *Limiter) Stop() {
	rl.clients.Flush()
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64 `json:"totalHits"`
	Rejected    int64 `json:"rejected"`
	ClientCount int64 `json:"clientCount"`
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		Rejected:    rl.rejected.Load(),
		ClientCount: int64(rl.clients.ItemCount()),
	}
}

// Middleware creates HTTP middleware for rate limiting
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractIP(r)

			if wait := rl.reserve(clientIP); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
