// internal/metrics/metrics.go
//
// Prometheus collectors for the solver. Registered on the default registry
// and exposed by the HTTP server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// buildDuration tracks full response-table builds by backend.
	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wordleai_table_build_duration_seconds",
		Help:    "Response table build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45min
	}, []string{"backend"})

	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordleai_table_builds_total",
		Help: "Response table builds by backend and result",
	}, []string{"backend", "result"})

	// tableLoads counts where a session's table came from.
	tableLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordleai_table_acquire_total",
		Help: "Response table acquisitions by source (memory, persisted, built)",
	}, []string{"source"})

	evaluateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wordleai_evaluate_duration_seconds",
		Help:    "Guess evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 3, 12),
	}, []string{"engine", "criterion"})

	narrowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wordleai_narrow_total",
		Help: "Candidate narrowing operations by engine",
	}, []string{"engine"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wordleai_sessions_active",
		Help: "Sessions currently held in the registry",
	})

	sampledGuesses = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wordleai_estimator_sampled_guesses",
		Help:    "Guess words evaluated per approximate evaluation",
		Buckets: prometheus.ExponentialBuckets(1, 4, 9),
	})
)

// ObserveBuild records one table build.
func ObserveBuild(backend string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	buildsTotal.WithLabelValues(backend, result).Inc()
	if err == nil {
		buildDuration.WithLabelValues(backend).Observe(seconds)
	}
}

// TableAcquired records where a table came from.
func TableAcquired(source string) { tableLoads.WithLabelValues(source).Inc() }

// ObserveEvaluate records one evaluation.
func ObserveEvaluate(engine, criterion string, seconds float64) {
	evaluateDuration.WithLabelValues(engine, criterion).Observe(seconds)
}

// Narrowed records one candidate update.
func Narrowed(engine string) { narrowTotal.WithLabelValues(engine).Inc() }

// SessionOpened / SessionClosed track the registry size.
func SessionOpened() { activeSessions.Inc() }
func SessionClosed() { activeSessions.Dec() }

// Sampled records how many guesses an approximate evaluation covered.
func Sampled(n int) { sampledGuesses.Observe(float64(n)) }
