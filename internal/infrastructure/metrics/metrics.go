package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Engine metrics
	RecordsProcessed *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	RecordsMalformed prometheus.Counter
	IngestDuration   prometheus.Histogram

	// Account metrics
	Accounts       prometheus.Gauge
	AccountsLocked prometheus.Counter
	OpenDisputes   prometheus.Gauge

	// Sink metrics
	SinkWrites   *prometheus.CounterVec
	SinkDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Engine metrics
		RecordsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_records_processed_total",
				Help: "Total records applied to accounts by kind",
			},
			[]string{"kind"},
		),
		RecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_records_rejected_total",
				Help: "Total records rejected by business rules",
			},
			[]string{"kind", "reason"},
		),
		RecordsMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_records_malformed_total",
			Help: "Total input lines that could not be decoded",
		}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txengine_ingest_duration_seconds",
			Help:    "Duration of a full ingestion run",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		}),

		// Account metrics
		Accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_accounts",
			Help: "Number of client accounts",
		}),
		AccountsLocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_accounts_locked_total",
			Help: "Total accounts locked by a chargeback",
		}),
		OpenDisputes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_open_disputes",
			Help: "Number of deposits currently under dispute",
		}),

		// Sink metrics
		SinkWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_sink_writes_total",
				Help: "Total snapshot writes by sink and status",
			},
			[]string{"sink", "status"},
		),
		SinkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txengine_sink_duration_seconds",
				Help:    "Duration of snapshot writes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txengine_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txengine_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_rate_limit_hits_total",
			Help: "Total requests refused by the rate limiter",
		}),
	}
}
