package infra

import (
	"context"
	"errors"
	"strings"

	"ufcstats-gateway/middleware/ratelimit/domain"
)

func outcome(admitted bool) string {
	if admitted {
		return "admitted"
	}
	return "denied"
}

func routeLabel(ev domain.StatsEvent) string {
	return strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
}

// MultiStatsStore repassa cada evento para todos os stores e junta os erros.
type MultiStatsStore []domain.StatsStore

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
