package claimlimit

import (
	"net/http"
	"strconv"
	"time"

	"claim-gateway/middleware/claimlimit/application"
	"claim-gateway/middleware/claimlimit/domain"
	"claim-gateway/middleware/claimlimit/infra"

	"go.uber.org/zap"
)

type GuardOptions struct {
	// Throttle nil desliga o token bucket.
	Throttle *infra.Throttle
	// MaxConcurrent <= 0 desliga o limite de concorrência.
	MaxConcurrent  int
	AcquireTimeout time.Duration
	// RetryAfter é usado quando o throttle não sabe a espera (ex: burst 0).
	RetryAfter     time.Duration
	KeyFn          KeyFunc
	AddHeaders     bool
	Logger         *zap.Logger
}

// GuardMiddleware protege a API com token bucket por cliente (429) e com um
// teto de requisições simultâneas (503).
func GuardMiddleware(opts GuardOptions) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ClientKeyFunc("", false)
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var throttle domain.Throttler
	if opts.Throttle != nil {
		throttle = opts.Throttle
	}
	guard := application.NewRequestGuard(throttle, opts.MaxConcurrent, opts.AcquireTimeout)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := opts.KeyFn(r)
			if opts.AddHeaders && opts.Throttle != nil {
				w.Header().Set("X-RateLimit-RPS", formatFloat(opts.Throttle.RPS()))
				w.Header().Set("X-RateLimit-Burst", strconv.Itoa(opts.Throttle.Burst()))
			}

			adm := guard.Admit(r.Context(), client)
			switch adm.Rejection {
			case application.Throttled:
				wait := adm.RetryAfter
				if wait <= 0 {
					wait = opts.RetryAfter
				}
				w.Header().Set("Retry-After", formatSeconds(wait))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				opts.Logger.Debug("request throttled", zap.String("client", client), zap.Duration("retry_after", wait))
				return
			case application.Saturated:
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				opts.Logger.Warn("no concurrency slot available", zap.String("client", client))
				return
			}
			defer adm.Release()

			next.ServeHTTP(w, r)
		})
	}
}
