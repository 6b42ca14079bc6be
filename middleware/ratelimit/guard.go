package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ufcstats-gateway/middleware/ratelimit/application"
	"ufcstats-gateway/middleware/ratelimit/domain"
)

type GuardOptions struct {
	Store     domain.QuotaStore
	Policy    domain.Policy
	Clock     domain.Clock
	Stats     domain.StatsStore
	Logger    *slog.Logger
	KeyPrefix string
	// Route fixa o rótulo de rota das estatísticas (ver Options.Route).
	Route string

	// IdentityFn permite trocar o IP por um identificador de sessão/usuário.
	// String vazia cai de volta no IP.
	IdentityFn func(r *http.Request) string
}

func (o GuardOptions) key(r *http.Request) domain.Key {
	if o.IdentityFn != nil {
		if id := o.IdentityFn(r); id != "" {
			return domain.Key(o.KeyPrefix + id)
		}
	}
	return domain.Key(o.KeyPrefix + ClientIP(r))
}

// GuardRequest é o modo guard: resolve o identificador a partir do request,
// e executa action só se houver cota. Sem cota devolve *domain.QuotaExceededError
// e action não roda.
func GuardRequest[T any](r *http.Request, opts GuardOptions, action func(context.Context) (T, error)) (T, error) {
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	key := opts.key(r)
	svc := application.Service{Store: opts.Store, Policy: opts.Policy, Clock: opts.Clock}

	admitted := true
	out, err := application.Guard(r.Context(), svc, key, action)
	if errors.Is(err, domain.ErrQuotaExceeded) {
		admitted = false
		loggerOrDiscard(opts.Logger).Info("action rate limited",
			slog.String("key", string(key)),
			slog.String("path", r.URL.Path),
		)
	}

	recordStats(r.Context(), loggerOrDiscard(opts.Logger), opts.Stats, domain.StatsEvent{
		Key:      key,
		Admitted: admitted,
		Method:   r.Method,
		Path:     routeOf(r, opts.Route),
		At:       opts.Clock.Now(),
	})
	return out, err
}
