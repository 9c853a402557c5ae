package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/anomaly"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/capacity"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/report"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/seasonality"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/stats"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/trend"
	"github.com/kubilitics/kubilitics-predict/internal/metrics"
)

// Package analytics composes the predictive analytics components behind a
// single Engine.
//
// IMPORTANT: This package uses ONLY classical statistics. NO model training.
//
// Core Capabilities:
//   - Trend analysis (window comparison, linear regression, time to threshold)
//   - Seasonality detection (autocorrelation, hourly/weekday/weekly profiles)
//   - Anomaly detection (z-score against historical mean ± 2σ)
//   - Capacity planning (target utilization sizing, monthly cost impact)
//
// Every analysis is a pure function of its inputs. The Engine adds logging
// and Prometheus instrumentation and rolls results up into reports; it holds
// no mutable state and is safe for concurrent use.

// Operation names used in logs and metrics.
const (
	OpAnalyzeTrend        = "analyze_trend"
	OpPredictCapacity     = "predict_capacity"
	OpDetectAnomalies     = "detect_anomalies"
	OpSeasonalPatterns    = "seasonal_patterns"
	OpPerformanceTrends   = "performance_trends"
	OpServiceReport       = "service_report"
	OpCalculateStatistics = "calculate_statistics"
)

// CapacityPlan is the capacity outlook of a set of services.
type CapacityPlan struct {
	Predictions      []capacity.Prediction  `json:"predictions" yaml:"predictions"`
	Recommendations  []string               `json:"recommendations" yaml:"recommendations"`
	CostOptimization report.CostSummary     `json:"cost_optimization" yaml:"cost_optimization"`
	ScalingActions   []report.ScalingAction `json:"scaling_actions" yaml:"scaling_actions"`
	GeneratedAt      time.Time              `json:"generated_at" yaml:"generated_at"`
}

// AnomalyReport lists anomalies with their roll-ups. Summary and Alerts cover
// every detected anomaly, Anomalies only those passing the severity filter.
type AnomalyReport struct {
	Anomalies   []anomaly.Record      `json:"anomalies" yaml:"anomalies"`
	Summary     report.AnomalySummary `json:"summary" yaml:"summary"`
	Trends      report.Buckets        `json:"trends" yaml:"trends"`
	Alerts      []report.Alert        `json:"alerts" yaml:"alerts"`
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
}

// PerformanceTrends is the trend analysis of every metric, ordered by metric
// name.
type PerformanceTrends struct {
	Trends      []trend.Result      `json:"trends" yaml:"trends"`
	Summary     report.TrendSummary `json:"summary" yaml:"summary"`
	GeneratedAt time.Time           `json:"generated_at" yaml:"generated_at"`
}

// ServiceReport is the detailed capacity report of one service.
type ServiceReport struct {
	Service                string                 `json:"service" yaml:"service"`
	Prediction             capacity.Prediction    `json:"prediction" yaml:"prediction"`
	UtilizationAnalysis    trend.Result           `json:"utilization_analysis" yaml:"utilization_analysis"`
	ScalingRecommendations []report.ServiceAction `json:"scaling_recommendations" yaml:"scaling_recommendations"`
	Statistics             stats.Summary          `json:"statistics" yaml:"statistics"`
	GeneratedAt            time.Time              `json:"generated_at" yaml:"generated_at"`
}

// Engine is the analytics engine.
type Engine struct {
	logger *zap.Logger
	policy policy.Policy
	now    func() time.Time

	trends      trend.Analyzer
	predictor   capacity.Predictor
	anomalies   anomaly.Detector
	seasonality *seasonality.Detector
}

// NewEngine creates a new analytics engine. A nil logger discards logs.
func NewEngine(logger *zap.Logger, p policy.Policy) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	p = p.Clone()
	return &Engine{
		logger:      logger,
		policy:      p,
		now:         time.Now,
		trends:      trend.NewAnalyzer(p),
		predictor:   capacity.NewPredictor(p),
		anomalies:   anomaly.NewDetector(p),
		seasonality: seasonality.NewDetector(),
	}
}

// WithClock returns a copy of the engine reading time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	out := *e
	out.now = now
	out.seasonality = seasonality.NewDetectorWithClock(now)
	return &out
}

// Policy returns a copy of the engine's policy.
func (e *Engine) Policy() policy.Policy {
	return e.policy.Clone()
}

// AnalyzeTrend classifies and forecasts a single metric history.
func (e *Engine) AnalyzeTrend(ctx context.Context, series []float64, metric string) (result trend.Result, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysis(OpAnalyzeTrend, start, err) }()

	if err = ctx.Err(); err != nil {
		return trend.Result{}, err
	}
	result, err = e.trends.Analyze(series, metric)
	if err != nil {
		e.logger.Debug("Trend analysis failed", zap.String("metric", metric), zap.Error(err))
		return trend.Result{}, err
	}

	e.logger.Debug("Trend analyzed",
		zap.String("metric", metric),
		zap.String("trend", string(result.Trend)),
		zap.Float64("predicted_value", result.PredictedValue),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// PredictCapacityNeeds sizes every service, ordered by service name. The
// context is checked between services.
func (e *Engine) PredictCapacityNeeds(ctx context.Context, services map[string][]float64) (predictions []capacity.Prediction, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysis(OpPredictCapacity, start, err) }()

	predictions = make([]capacity.Prediction, 0, len(services))
	for _, service := range sortedKeys(services) {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		pred, perr := e.predictor.PredictService(service, services[service])
		if perr != nil {
			err = perr
			e.logger.Warn("Capacity prediction failed", zap.String("service", service), zap.Error(err))
			return nil, err
		}
		metrics.ScalingRecommendations.WithLabelValues(service, string(pred.RecommendedScaling.Action)).Inc()
		predictions = append(predictions, pred)
	}

	e.logger.Info("Capacity needs predicted", zap.Int("services", len(predictions)))
	return predictions, nil
}

// DetectAnomalies compares current values against their histories. Metrics
// with too little history or with non-finite values are skipped.
func (e *Engine) DetectAnomalies(ctx context.Context, current map[string]float64, history map[string][]float64) (records []anomaly.Record, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysis(OpDetectAnomalies, start, err) }()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	for metric, value := range current {
		switch {
		case len(history[metric]) < anomaly.MinHistoryPoints:
			e.logger.Debug("Skipping metric with insufficient history",
				zap.String("metric", metric),
				zap.Int("points", len(history[metric])),
				zap.Int("required", anomaly.MinHistoryPoints))
		case !anomaly.Finite(value, history[metric]):
			e.logger.Debug("Skipping metric with non-finite values",
				zap.String("metric", metric))
		}
	}

	records = e.anomalies.Detect(current, history)
	for _, r := range records {
		metrics.AnomaliesDetected.WithLabelValues(r.Metric, string(r.Severity)).Inc()
	}

	e.logger.Info("Anomaly detection completed",
		zap.Int("metrics", len(current)),
		zap.Int("anomalies", len(records)))
	return records, nil
}

// AnalyzeSeasonalPatterns profiles a timestamped history.
func (e *Engine) AnalyzeSeasonalPatterns(ctx context.Context, series []float64, timestamps []time.Time) (pattern seasonality.SeasonalPattern, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysis(OpSeasonalPatterns, start, err) }()

	if err = ctx.Err(); err != nil {
		return seasonality.SeasonalPattern{}, err
	}
	pattern, err = e.seasonality.Analyze(series, timestamps)
	if err != nil {
		return seasonality.SeasonalPattern{}, err
	}

	e.logger.Debug("Seasonal pattern analyzed",
		zap.String("pattern", string(pattern.Pattern)),
		zap.Float64("strength", pattern.SeasonalityStrength))
	return pattern, nil
}

// CapacityPlan predicts capacity needs and rolls them up into costs, scaling
// actions and recommendations.
func (e *Engine) CapacityPlan(ctx context.Context, services map[string][]float64) (*CapacityPlan, error) {
	predictions, err := e.PredictCapacityNeeds(ctx, services)
	if err != nil {
		return nil, fmt.Errorf("failed to generate capacity plan: %w", err)
	}

	plan := &CapacityPlan{
		Predictions:      predictions,
		Recommendations:  report.Recommendations(predictions),
		CostOptimization: report.CostOptimization(predictions),
		ScalingActions:   report.ScalingActions(predictions),
		GeneratedAt:      e.now(),
	}
	metrics.ProjectedSavingsUSD.Set(plan.CostOptimization.PotentialSavings)

	e.logger.Info("Capacity plan generated",
		zap.Int("services", len(predictions)),
		zap.Int("scaling_actions", len(plan.ScalingActions)),
		zap.Float64("potential_savings", plan.CostOptimization.PotentialSavings))
	return plan, nil
}

// AnomalyReport detects anomalies and rolls them up. An empty severity keeps
// every anomaly in the listing.
func (e *Engine) AnomalyReport(ctx context.Context, current map[string]float64, history map[string][]float64, severity policy.Severity) (*AnomalyReport, error) {
	records, err := e.DetectAnomalies(ctx, current, history)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve anomalies: %w", err)
	}

	now := e.now()
	return &AnomalyReport{
		Anomalies:   report.FilterBySeverity(records, severity),
		Summary:     report.SummarizeAnomalies(records),
		Trends:      report.TrendBuckets(history),
		Alerts:      report.Alerts(records, now),
		GeneratedAt: now,
	}, nil
}

// PerformanceTrends analyzes every metric history, ordered by metric name.
// The first failing metric aborts the analysis.
func (e *Engine) PerformanceTrends(ctx context.Context, history map[string][]float64) (result *PerformanceTrends, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysis(OpPerformanceTrends, start, err) }()

	results := make([]trend.Result, 0, len(history))
	for _, metric := range sortedKeys(history) {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		r, aerr := e.trends.Analyze(history[metric], metric)
		if aerr != nil {
			err = fmt.Errorf("failed to retrieve performance trends: metric %s: %w", metric, aerr)
			return nil, err
		}
		results = append(results, r)
	}

	summary := report.SummarizeTrends(results)
	e.logger.Info("Performance trends analyzed",
		zap.Int("metrics", summary.TotalMetrics),
		zap.String("overall_health", string(summary.OverallHealth)))
	return &PerformanceTrends{Trends: results, Summary: summary, GeneratedAt: e.now()}, nil
}

// ServiceReport builds the detailed capacity report of one service.
func (e *Engine) ServiceReport(ctx context.Context, service string, series []float64) (result *ServiceReport, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysis(OpServiceReport, start, err) }()

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	analysis, err := e.trends.Analyze(series, service)
	if err != nil {
		err = fmt.Errorf("failed to generate capacity report for %s: %w", service, err)
		return nil, err
	}

	return &ServiceReport{
		Service:                service,
		Prediction:             e.predictor.FromTrend(service, analysis),
		UtilizationAnalysis:    analysis,
		ScalingRecommendations: report.ServiceScaling(analysis, e.policy.CriticalUtilization),
		Statistics:             stats.Summarize(series),
		GeneratedAt:            e.now(),
	}, nil
}

// CalculateStatistics returns descriptive statistics for every history.
func (e *Engine) CalculateStatistics(ctx context.Context, history map[string][]float64) (summaries map[string]stats.Summary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysis(OpCalculateStatistics, start, err) }()

	summaries = make(map[string]stats.Summary, len(history))
	for _, metric := range sortedKeys(history) {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if len(history[metric]) == 0 {
			err = &stats.InsufficientDataError{Operation: "statistics for " + metric, Required: 1}
			return nil, err
		}
		summaries[metric] = stats.Summarize(history[metric])
	}
	return summaries, nil
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
