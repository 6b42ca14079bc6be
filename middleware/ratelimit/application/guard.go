package application

import (
	"context"

	"ufcstats-gateway/middleware/ratelimit/domain"
)

// Guard executa action somente se a chave ainda tem cota.
//
// Em negação devolve *domain.QuotaExceededError e action não é chamada.
// Em admissão o resultado (e o erro) de action voltam inalterados.
func Guard[T any](ctx context.Context, s Service, key domain.Key, action func(context.Context) (T, error)) (T, error) {
	dec := s.Decide(key)
	if !dec.Admitted {
		var zero T
		return zero, &domain.QuotaExceededError{
			Key:     key,
			RetryIn: dec.RetryIn(s.now()),
			ResetAt: dec.ResetAt,
		}
	}
	return action(ctx)
}
