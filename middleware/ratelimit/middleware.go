package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ufcstats-gateway/middleware/ratelimit/application"
	"ufcstats-gateway/middleware/ratelimit/domain"
)

type Options struct {
	Store  domain.QuotaStore
	Policy domain.Policy
	Clock  domain.Clock
	Stats  domain.StatsStore
	Logger *slog.Logger

	// KeyFn tem precedência sobre KeyPrefix.
	KeyFn     KeyFunc
	KeyPrefix string

	// Route fixa o rótulo de rota das estatísticas. Vazio usa o pattern do
	// ServeMux e, na falta dele, o path do request.
	Route string

	RejectStatus int
	// DisableHeaders omite os X-RateLimit-* (ex: camada de burst na frente do login,
	// para não sobrescrever os headers da cota de login).
	DisableHeaders bool
}

// Middleware é o modo header: consulta a cota antes de chamar next e anexa
// limit/remaining/reset à resposta, admitida ou não. Em negação responde
// RejectStatus (429 por padrão) com Retry-After e corpo JSON, sem chamar next.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyPrefix)
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	logger := loggerOrDiscard(opts.Logger)

	svc := application.Service{
		Store:  opts.Store,
		Policy: opts.Policy,
		Clock:  opts.Clock,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))
			route := routeOf(r, opts.Route)

			res := svc.Quota(key)
			if !opts.DisableHeaders {
				for name, v := range res.Headers {
					w.Header().Set(name, v)
				}
			}
			recordStats(r.Context(), logger, opts.Stats, domain.StatsEvent{
				Key:      key,
				Admitted: !res.RateLimited,
				Method:   r.Method,
				Path:     route,
				At:       opts.Clock.Now(),
			})

			if res.RateLimited {
				retryIn := domain.CeilSeconds(res.ResetAt.Sub(opts.Clock.Now()))
				w.Header().Set("Retry-After", strconv.FormatInt(int64(retryIn/time.Second), 10))
				logger.Info("rate limited",
					slog.String("key", string(key)),
					slog.String("path", r.URL.Path),
					slog.String("route", route),
					slog.Time("reset_at", res.ResetAt),
				)
				writeError(w, opts.RejectStatus, "RATE_LIMITED", (&domain.QuotaExceededError{Key: key, RetryIn: retryIn}).Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func recordStats(ctx context.Context, logger *slog.Logger, stats domain.StatsStore, ev domain.StatsEvent) {
	if stats == nil {
		return
	}
	if err := stats.Record(ctx, ev); err != nil {
		logger.Warn("rate limit stats record failed", slog.Any("error", err))
	}
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
