package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"incentive-token/internal/observability"
)

// callerLimiter keeps one token bucket per caller. Buckets idle for longer
// than idleTTL are evicted on the next sweep.
type callerLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newCallerLimiter(limit rate.Limit, burst int) *callerLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &callerLimiter{
		limit:   limit,
		burst:   burst,
		idleTTL: 10 * time.Minute,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// allow reports whether caller may perform one more request now.
func (l *callerLimiter) allow(caller string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[caller]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[caller] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// middleware rejects requests over the caller's budget with 429. Requests
// without a caller are passed through and fail later in the handler.
func (l *callerLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(CallerHeader)
		if caller != "" && !l.allow(caller) {
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			observability.RecordRateLimited(route)
			w.Header().Set("Retry-After", "1")
			writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
