package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ufcstats-gateway/middleware/ratelimit/domain"
)

var ErrSlotUnavailable = errors.New("concurrency: no slot available")

// ConcurrencyService concentra a regra de aquisição/liberação de vagas com timeout,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - Se `AcquireTimeout <= 0`, espera até ctx cancelar.
//   - Se `AcquireTimeout > 0`, espera até o timeout.
//
// Sem vaga devolve ErrSlotUnavailable (envolvendo o erro do ctx) e release nil.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrSlotUnavailable, context.Cause(acqCtx))
	}
	return release, nil
}
