package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/drawmaster/internal/handlers"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
)

// RateLimiter counts requests per key in fixed Redis windows.
type RateLimiter struct {
	redis      redis.Cmdable
	limit      int64
	window     time.Duration
	prefix     string
	keyFunc    func(*http.Request) string
	failClosed bool
	logger     *logging.Logger
}

// NewRateLimiter builds a limiter. keyFunc picks the bucket; an empty key
// falls back to the client IP. With failClosed, Redis errors reject the
// request instead of letting it through.
func NewRateLimiter(client redis.Cmdable, limit int64, window time.Duration, prefix string, keyFunc func(*http.Request) string, failClosed bool) *RateLimiter {
	return &RateLimiter{
		redis:      client,
		limit:      limit,
		window:     window,
		prefix:     prefix,
		keyFunc:    keyFunc,
		failClosed: failClosed,
		logger:     logging.Default,
	}
}

// ByIdentity keys the limiter on the authenticated uid.
func ByIdentity(r *http.Request) string {
	if id := handlers.GetIdentityFromContext(r.Context()); id != nil {
		return id.UID
	}
	return ""
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := ""
		if rl.keyFunc != nil {
			key = rl.keyFunc(r)
		}
		if key == "" {
			key = "ip:" + GetClientIP(r)
		}

		allowed, remaining, resetTime, err := rl.isAllowed(r.Context(), rl.prefix+key)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", logging.Fields{"error": err, "fail_closed": rl.failClosed})
			if rl.failClosed {
				writeError(w, http.StatusServiceUnavailable, "Rate limiter unavailable. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", resetTime-time.Now().Unix()))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (allowed bool, remaining int64, resetTime int64, err error) {
	windowEnd := time.Now().Truncate(rl.window).Add(rl.window)

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, windowEnd.Unix(), err
	}

	count := incr.Val()
	remaining = rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, windowEnd.Unix(), nil
}

func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		return first
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
