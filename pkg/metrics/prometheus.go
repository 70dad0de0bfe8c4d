package metrics

import (
	"BotRadar/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	tradesAnalyzed  *prometheus.CounterVec
	classifications *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	actors          *prometheus.GaugeVec
	queueDepth      *prometheus.GaugeVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		tradesAnalyzed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botradar_trades_analyzed_total",
				Help: "Trades run through the detector chain",
			},
			[]string{"venue", "symbol"},
		),
		classifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botradar_classifications_total",
				Help: "Trades attributed to an actor, by pattern",
			},
			[]string{"pattern"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botradar_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botradar_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
		actors: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "botradar_actors",
				Help: "Tracked actors by liveness status",
			},
			[]string{"status"},
		),
		queueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "botradar_analyzer_queue_depth",
				Help: "Trades waiting per analyzer shard",
			},
			[]string{"shard"},
		),
	}
}

func (r *Recorder) RecordTradeAnalyzed(venue, symbol string) {
	r.tradesAnalyzed.WithLabelValues(venue, symbol).Inc()
}

func (r *Recorder) RecordClassification(pattern models.PatternType) {
	r.classifications.WithLabelValues(string(pattern)).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordActors(status models.Status, n int) {
	r.actors.WithLabelValues(string(status)).Set(float64(n))
}

func (r *Recorder) RecordQueueDepth(shard string, n int) {
	r.queueDepth.WithLabelValues(shard).Set(float64(n))
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordTradeAnalyzed(string, string)       {}
func (Nop) RecordClassification(models.PatternType) {}
func (Nop) RecordError(string)                      {}
func (Nop) RecordLatency(string, float64)           {}
func (Nop) RecordActors(models.Status, int)         {}
func (Nop) RecordQueueDepth(string, int)            {}
