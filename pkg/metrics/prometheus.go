package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	drepo "ChochScan/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scanDuration *prometheus.HistogramVec
	signalsTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scanDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chochscan_scan_duration_seconds",
				Help:    "Duration of one symbol scan",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"timeframe"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chochscan_signals_total",
				Help: "Confirmed CHoCH signals",
			},
			[]string{"symbol", "timeframe", "direction", "group"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chochscan_errors_total",
				Help: "Scan and delivery errors by kind",
			},
			[]string{"kind"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chochscan_last_close_timestamp_seconds",
				Help: "Close time of the last scanned candle",
			},
			[]string{"timeframe"},
		),
	}
}

// RecordScan records one completed symbol scan.
func (r *Recorder) RecordScan(symbol string, tf drepo.Timeframe, seconds float64) {
	r.scanDuration.WithLabelValues(string(tf)).Observe(seconds)
}

// RecordSignal records a confirmed signal.
func (r *Recorder) RecordSignal(symbol string, tf drepo.Timeframe, direction, group string) {
	if group == "" {
		group = "NA"
	}
	r.signalsTotal.WithLabelValues(symbol, string(tf), direction, group).Inc()
}

// RecordScanError records an error occurrence by kind.
func (r *Recorder) RecordScanError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastClose records the close boundary the scheduler last fired for.
func (r *Recorder) RecordLastClose(tf drepo.Timeframe, closeTime time.Time) {
	r.lastClose.WithLabelValues(string(tf)).Set(float64(closeTime.Unix()))
}

var _ drepo.Metrics = (*Recorder)(nil)
