// Package metrics exposes Prometheus instrumentation of allocation runs.
package metrics

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ipnetlab/internal/domain"
	"ipnetlab/internal/ipam"
)

const namespace = "ipnetlab"

// Run outcomes
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the collectors of one process. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	domains         prometheus.Gauge
	addressesIssued *prometheus.GaugeVec
	poolFreeBlocks  *prometheus.GaugeVec
	poolFreeRatio   *prometheus.GaugeVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_runs_total",
			Help:      "Allocation runs by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_duration_seconds",
			Help:      "Duration of successful allocation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		domains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broadcast_domains",
			Help:      "Broadcast domains found by the last successful run.",
		}),
		addressesIssued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "addresses_issued",
			Help:      "Addresses issued by the last successful run.",
		}, []string{"family"}),
		poolFreeBlocks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_free_blocks",
			Help:      "Free blocks left in the pool after the last successful run.",
		}, []string{"family"}),
		poolFreeRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_free_ratio",
			Help:      "Share of the pool base left free after the last successful run.",
		}, []string{"family"}),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.domains,
		m.addressesIssued,
		m.poolFreeBlocks,
		m.poolFreeRatio,
	)
	for _, r := range []string{ResultSuccess, ResultFailure} {
		m.runsTotal.WithLabelValues(r)
	}
	return m
}

// Registry returns the registry the collectors are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFailure counts a failed run
func (m *Metrics) ObserveFailure() {
	m.runsTotal.WithLabelValues(ResultFailure).Inc()
}

// ObserveResult records a successful run
func (m *Metrics) ObserveResult(res *ipam.Result) {
	m.runsTotal.WithLabelValues(ResultSuccess).Inc()
	m.runDuration.Observe(res.Duration.Seconds())
	m.domains.Set(float64(len(res.Domains)))

	for _, f := range domain.Families {
		m.addressesIssued.WithLabelValues(f.String()).Set(float64(res.Issued[f]))

		pool, ok := res.Pools[f]
		if !ok {
			m.poolFreeBlocks.DeleteLabelValues(f.String())
			m.poolFreeRatio.DeleteLabelValues(f.String())
			continue
		}
		m.poolFreeBlocks.WithLabelValues(f.String()).Set(float64(pool.Len()))
		m.poolFreeRatio.WithLabelValues(f.String()).Set(freeRatio(pool))
	}
}

func freeRatio(pool *ipam.Pool) float64 {
	total := pool.Base().Size()
	if total.Sign() == 0 {
		return 0
	}
	r, _ := new(big.Rat).SetFrac(pool.FreeSize(), total).Float64()
	return r
}
