// Package metrics holds the process-wide Prometheus collectors of the router.
package metrics

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

const namespace = "offline_router"

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pagecache_hits_total",
		Help:      "Page cache block lookups served from memory",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pagecache_misses_total",
		Help:      "Page cache block lookups read from disk",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pagecache_evictions_total",
		Help:      "Blocks evicted from the page cache",
	})

	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Route queries by outcome",
	}, []string{"outcome"})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Route query duration",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	CoreLoads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "core_graph_loads_total",
		Help:      "Completed core graph loads",
	})
)

// Log gathers the default registry and logs every router metric at Info.
func Log(logger *zap.Logger) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			fields = append(fields, valueFields(mf.GetType(), m)...)
			logger.Info("metric", fields...)
		}
	}
	return nil
}

func valueFields(t dto.MetricType, m *dto.Metric) []zap.Field {
	switch t {
	case dto.MetricType_COUNTER:
		return []zap.Field{zap.Float64("value", m.GetCounter().GetValue())}
	case dto.MetricType_GAUGE:
		return []zap.Field{zap.Float64("value", m.GetGauge().GetValue())}
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return []zap.Field{
			zap.Uint64("count", h.GetSampleCount()),
			zap.Float64("sum", h.GetSampleSum()),
		}
	default:
		return nil
	}
}
