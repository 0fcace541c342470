package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/Lixing-Zhang/catalog-service/internal/ratelimit"
	"github.com/Lixing-Zhang/catalog-service/internal/response"
)

// limiter decides whether a client may make another request
type limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// RateLimit rejects clients that exceed the limiter's budget with 429.
// It keys on RemoteAddr, so it belongs after chi's RealIP middleware.
// If the limiter fails the request is let through.
func RateLimit(l limiter, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r.RemoteAddr)

			result, err := l.Allow(r.Context(), client)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "client", client, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				logger.Info("rate limit exceeded", "client", client, "retry_after_s", retryAfter)
				response.WriteError(w, http.StatusTooManyRequests, "Too many requests", logger)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
