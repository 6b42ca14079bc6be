package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"ufcstats-gateway/middleware/ratelimit/application"
	"ufcstats-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

// ConcurrencyMiddleware limita quantos requests ficam em voo ao mesmo tempo.
// Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	logger := loggerOrDiscard(opts.Logger)

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				logger.Warn("concurrency limit reached", slog.String("path", r.URL.Path), slog.Any("error", err))
				writeError(w, opts.RejectStatus, "OVERLOADED", http.StatusText(opts.RejectStatus))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
