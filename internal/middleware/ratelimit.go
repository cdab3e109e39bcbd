package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/http/respond"
	"github.com/hongminglow/storefront-accounts/internal/metrics"
)

// RateLimiter counts requests per client IP in fixed Redis windows.
// Redis failures let the request through.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *zap.Logger
	proxies     []netip.Prefix
}

// NewRateLimiter builds a limiter. X-Forwarded-For is only read when the
// direct peer falls inside one of trustedProxies.
func NewRateLimiter(client *redis.Client, logger *zap.Logger, trustedProxies []netip.Prefix) *RateLimiter {
	return &RateLimiter{redisClient: client, logger: logger, proxies: trustedProxies}
}

// Limit allows at most limit requests per window for each client in bucket.
func (rl *RateLimiter) Limit(bucket string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := fmt.Sprintf("rate_limit:%s:%s", bucket, clientIP(r, rl.proxies))

			count, err := rl.redisClient.Incr(ctx, key).Result()
			if err != nil {
				rl.logger.Warn("rate limiter unavailable", zap.String("bucket", bucket), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rl.redisClient.Expire(ctx, key, window)
			}

			if count > int64(limit) {
				ttl, err := rl.redisClient.TTL(ctx, key).Result()
				if err != nil || ttl < 0 {
					ttl = window
				}
				metrics.RateLimited.WithLabelValues(bucket).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
				respond.Error(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP walks X-Forwarded-For from the nearest hop outward while each hop
// is a trusted proxy and returns the first untrusted address.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !isTrusted(host, trusted) {
		return host
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		host = hop
		if !isTrusted(hop, trusted) {
			break
		}
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
