package metrics

import (
	"errors"
	"time"

	"refacto/internal/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// result labels
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultTimeout  = "timeout"
	ResultCached   = "cached"
	ResultFallback = "fallback"
)

var (
	EngineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refacto_engine_runs_total",
		Help: "Code executions by language and result",
	}, []string{"language", "result"})

	EngineRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refacto_engine_run_duration_seconds",
		Help:    "Code execution wall time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"language"})

	LintChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refacto_lint_checks_total",
		Help: "Static checks by result",
	}, []string{"result"})

	Reviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refacto_reviews_total",
		Help: "AI reviews by result",
	}, []string{"result"})
)

// ResultOf maps an error to a result label.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, engine.ErrTimeout):
		return ResultTimeout
	default:
		return ResultError
	}
}

func ObserveRun(language string, err error, elapsed time.Duration) {
	EngineRuns.WithLabelValues(language, ResultOf(err)).Inc()
	EngineRunDuration.WithLabelValues(language).Observe(elapsed.Seconds())
}
