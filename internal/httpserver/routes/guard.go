package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/storysync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/storysync/internal/httpserver/mw"
)

// local restricts a route to the allowed client networks.
func local(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

// bounded applies the request deadline. Streaming routes must not use it.
func bounded(d deps.Deps) Middleware {
	if d.RequestTimeout <= 0 {
		return passthrough
	}
	return middleware.Timeout(d.RequestTimeout)
}

// limited throttles submissions per client.
func limited(d deps.Deps) Middleware {
	if d.RateLimitBurst <= 0 {
		return passthrough
	}
	return mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.RateLimitBurst,
		RefillPerMin: d.RateLimitRate,
		MaxEntries:   1024,
		IdleTTL:      15 * time.Minute,
		TrustProxy:   d.TrustProxy,
	})
}

func passthrough(next http.Handler) http.Handler { return next }
