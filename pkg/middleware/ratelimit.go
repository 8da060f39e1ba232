package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/utafrali/catalogstore/pkg/httputil"
)

// Limiter decides whether the client identified by key may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit returns middleware that answers 429 when limiter refuses the
// client. Clients are keyed by ips; a nil resolver keys by the direct peer.
// Limiter errors are logged and the request is let through.
func RateLimit(name string, limiter Limiter, ips *ClientIPResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ips.Resolve(r)

			ok, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("limiter", name),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				rateLimitedTotal.WithLabelValues(name).Inc()
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("limiter", name),
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteErrorStatus(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPResolver finds the client address of a request. X-Forwarded-For
// and X-Real-IP are only read when the direct peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver trusts forwarding headers set by peers inside
// trustedCIDRs. Invalid CIDRs are logged and skipped.
func NewClientIPResolver(trustedCIDRs []string, logger *slog.Logger) *ClientIPResolver {
	return &ClientIPResolver{trusted: parseCIDRs(trustedCIDRs, "invalid trusted proxy CIDR, skipping", logger)}
}

// Resolve returns the client IP. With a trusted peer it walks
// X-Forwarded-For from the right and returns the first untrusted hop.
func (c *ClientIPResolver) Resolve(r *http.Request) string {
	peer := remoteHost(r)
	if c == nil || !c.isTrusted(net.ParseIP(peer)) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			client = ip.String()
			if !c.isTrusted(ip) {
				break
			}
		}
		if client != "" {
			return client
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	return peer
}

func (c *ClientIPResolver) isTrusted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// --- In-process token bucket ---

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per client in memory. Buckets idle for
// longer than ttl are evicted on a later call.
type LocalLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	nowFunc   func() time.Time
}

// NewLocalLimiter creates a token bucket limiter refilling rps tokens per
// second up to burst.
func NewLocalLimiter(rps float64, burst int, ttl time.Duration) *LocalLimiter {
	return &LocalLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

func (l *LocalLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// --- Redis fixed window ---

// RedisLimiter counts requests per client in fixed windows shared by every
// instance pointing at the same redis.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisLimiter allows limit requests per client per window.
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "catalog:ratelimit:",
	}
}

// Allow increments key's counter in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return count <= l.limit, nil
}
