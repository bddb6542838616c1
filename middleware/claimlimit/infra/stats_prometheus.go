package infra

import (
	"context"

	"claim-gateway/middleware/claimlimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe os resultados de claim como contador.
// O cliente não vira label (cardinalidade).
type PrometheusStatsStore struct {
	claims *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	claims := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimgate_claims_total",
			Help: "Claim attempts by outcome",
		},
		[]string{"outcome"},
	)
	if err := reg.Register(claims); err != nil {
		return nil, err
	}
	return &PrometheusStatsStore{claims: claims}, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.claims.WithLabelValues(string(ev.Outcome)).Inc()
	return nil
}

// MultiStats repassa o evento para vários StatsStore e retorna o primeiro erro.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
