package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Predictive analytics metrics for production monitoring
var (
	// Analysis metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubilitics_predict_analyses_total",
			Help: "Total number of analyses run",
		},
		[]string{"operation", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubilitics_predict_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~200ms
		},
		[]string{"operation"},
	)

	// Anomaly metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubilitics_predict_anomalies_total",
			Help: "Total number of anomalies reported",
		},
		[]string{"metric", "severity"},
	)

	// Capacity metrics
	ScalingRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubilitics_predict_scaling_recommendations_total",
			Help: "Total number of scaling recommendations",
		},
		[]string{"service", "action"},
	)

	ProjectedSavingsUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kubilitics_predict_projected_savings_usd",
			Help: "Potential monthly savings of the most recent capacity plan",
		},
	)

	// Dataset reloads by the watch loop
	DatasetReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubilitics_predict_dataset_reloads_total",
			Help: "Total number of dataset reloads",
		},
		[]string{"outcome"},
	)
)

// ObserveAnalysis records the outcome and duration of one analysis started at
// start.
func ObserveAnalysis(operation string, start time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	AnalysesTotal.WithLabelValues(operation, outcome).Inc()
	AnalysisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
