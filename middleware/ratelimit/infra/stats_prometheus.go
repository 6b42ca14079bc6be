package infra

import (
	"context"

	"ufcstats-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe as decisões como contador por rota e resultado.
// A chave não vira label (cardinalidade).
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer) *PrometheusStatsStore {
	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Admission decisions taken by the rate limiter.",
		},
		[]string{"route", "outcome"},
	)
	if reg != nil {
		reg.MustRegister(decisions)
	}
	return &PrometheusStatsStore{decisions: decisions}
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(routeLabel(ev), outcome(ev.Admitted)).Inc()
	return nil
}

func (s *PrometheusStatsStore) Collector() prometheus.Collector { return s.decisions }
