package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/upb/chat-fallback-router/models"
	"github.com/upb/chat-fallback-router/utils"
)

const (
	defaultIdleTTL = 10 * time.Minute

	// RateLimitedMessage is the error field of an inbound 429; it differs
	// from the exhaustion messages so the UI can tell them apart
	RateLimitedMessage = "Too many requests. Please slow down and try again shortly."
)

// clientLimiter is one client's token bucket
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP with token buckets.
// Buckets idle for longer than the TTL are dropped by a sweep that runs
// at most once per TTL.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	logger    *zap.Logger
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst per client
func NewRateLimiter(rps float64, burst int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether the client may make a request now
func (l *RateLimiter) Allow(client string) bool {
	return l.limiterFor(client).Allow()
}

func (l *RateLimiter) limiterFor(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.lastSweep.IsZero() {
		l.lastSweep = now
	} else if now.Sub(l.lastSweep) >= l.idleTTL {
		l.evictIdle(now)
		l.lastSweep = now
	}

	if c, ok := l.clients[client]; ok {
		c.lastSeen = now
		return c.limiter
	}

	c := &clientLimiter{
		limiter:  rate.NewLimiter(l.rps, l.burst),
		lastSeen: now,
	}
	l.clients[client] = c
	return c.limiter
}

// evictIdle drops buckets not used within the TTL. Caller holds the lock.
func (l *RateLimiter) evictIdle(now time.Time) {
	for client, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, client)
		}
	}
}

// Len returns the number of tracked clients
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Handler rejects requests over the limit with 429 and the {error, details}
// body the chat UI reads
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !l.Allow(client) {
			l.logger.Warn("rate limit exceeded",
				zap.String("client", client),
				zap.String("path", r.URL.Path),
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
			)
			w.Header().Set("Retry-After", "1")
			_ = utils.WriteJSON(w, http.StatusTooManyRequests, models.ChatErrorResponse{
				Error:   RateLimitedMessage,
				Details: fmt.Sprintf("Limit: %g requests per second per client", float64(l.rps)),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which RealIP has already
// rewritten when proxy headers are present
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
