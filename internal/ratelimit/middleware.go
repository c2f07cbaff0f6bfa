package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"gatehouse.io/internal/obs"
)

// TooManyRequestsMessage is the body message of every 429 response.
const TooManyRequestsMessage = "Too many requests, please try again later."

// KeyFunc derives the limiter key (normally the client IP) from a request.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with 429. name labels the
// rejection metric.
func Middleware(name string, w *Window, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				k = "unknown"
			}
			d := w.Allow(k)
			rw.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			rw.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				obs.ObserveRateLimited(name)
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				rw.Header().Set("Retry-After", strconv.Itoa(secs))
				rw.Header().Set("Content-Type", "application/json")
				rw.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(rw).Encode(map[string]string{"message": TooManyRequestsMessage})
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}
