package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
)

// RateLimitMessage is the error returned to throttled clients.
const RateLimitMessage = "too many requests, please slow down"

// RateLimit returns per-client-IP token bucket middleware allowing perSecond
// requests. A non-positive rate disables limiting.
func RateLimit(perSecond float64) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	jsonMessage, _ := json.Marshal(map[string]string{"error": RateLimitMessage})

	lmt := tollbooth.NewLimiter(perSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Minute,
	})
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(string(jsonMessage))

	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}
