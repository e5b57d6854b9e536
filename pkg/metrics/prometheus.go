package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchCycles  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	rsi          *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	cacheEntries prometheus.Gauge
	cacheReads   *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchCycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_fetch_cycles_total",
				Help: "Total number of fetch cycles per asset",
			},
			[]string{"asset", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinpulse_last_price",
				Help: "Last recorded price for an asset",
			},
			[]string{"asset"},
		),
		rsi: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinpulse_rsi",
				Help: "Last computed RSI for an asset",
			},
			[]string{"asset"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheEntries: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinpulse_cache_entries",
				Help: "Number of asset snapshots currently cached",
			},
		),
		cacheReads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_cache_reads_total",
				Help: "Cache read outcomes",
			},
			[]string{"outcome"},
		),
	}
}

// RecordFetchCycle records a completed fetch cycle outcome for an asset.
func (r *Recorder) RecordFetchCycle(asset, result string) {
	r.fetchCycles.WithLabelValues(asset, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordRSI records the last computed RSI for an asset.
func (r *Recorder) RecordRSI(asset string, value float64) {
	r.rsi.WithLabelValues(asset).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheSize records the current number of cached snapshots.
func (r *Recorder) RecordCacheSize(n int) {
	r.cacheEntries.Set(float64(n))
}

// RecordCacheRead records a cache read outcome (hit, miss, stale).
func (r *Recorder) RecordCacheRead(outcome string) {
	r.cacheReads.WithLabelValues(outcome).Inc()
}
