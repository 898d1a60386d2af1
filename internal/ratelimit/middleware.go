package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danniokta/notesafe/internal/metrics"
)

// rateLimitMessage is the body of a 429 response
type rateLimitMessage struct {
	Message string `json:"message"`
}

// Middleware gates requests through the limiter keyed by client IP and
// decorates responses with X-RateLimit headers. The name labels the
// limiter in metrics. Run it after chi's RealIP middleware so RemoteAddr
// reflects the originating client.
func Middleware(l *Limiter, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			allowed := l.Check(key)
			resetAt := l.ResetTime(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(key)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(name).Inc()
				writeTooManyRequests(w, resetAt)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client address from the request, without the port
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter, resetAt time.Time) {
	retryAfter := resetAt.Unix() - time.Now().Unix()
	if retryAfter < 0 {
		retryAfter = 0
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(rateLimitMessage{
		Message: "Too many requests. Please try again later.",
	})
}
