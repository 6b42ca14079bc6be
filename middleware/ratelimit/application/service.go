package application

import (
	"strconv"
	"time"

	"ufcstats-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (status), apenas retorna decisões e metadados.
type Service struct {
	Store  domain.QuotaStore
	Policy domain.Policy
	Clock  domain.Clock
}

// QuotaResult é o resultado do modo header.
type QuotaResult struct {
	RateLimited bool
	Limit       int
	Remaining   int
	ResetAt     time.Time
	// Headers sempre traz limit/remaining/reset, admitido ou não.
	Headers map[string]string
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return domain.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

// Decide chama a primitiva check. Sem store configurado tudo é admitido.
func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Admitted: true, Limit: s.Policy.Limit, Remaining: s.Policy.Limit}
	}
	return s.Store.Check(key, s.Policy)
}

// Quota é o modo header: decide e formata os headers de cota.
func (s Service) Quota(key domain.Key) QuotaResult {
	dec := s.Decide(key)
	return QuotaResult{
		RateLimited: !dec.Admitted,
		Limit:       dec.Limit,
		Remaining:   dec.Remaining,
		ResetAt:     dec.ResetAt,
		Headers:     QuotaHeaders(dec),
	}
}

func QuotaHeaders(dec domain.Decision) map[string]string {
	var reset int64
	if !dec.ResetAt.IsZero() {
		reset = domain.UnixCeil(dec.ResetAt)
	}
	return map[string]string{
		domain.HeaderLimit:     strconv.Itoa(dec.Limit),
		domain.HeaderRemaining: strconv.Itoa(dec.Remaining),
		domain.HeaderReset:     strconv.FormatInt(reset, 10),
	}
}
