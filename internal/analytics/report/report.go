// Package report rolls engine output up into dashboard-ready summaries: cost
// totals, prioritized scaling actions, anomaly counts, alerts and trend
// overviews.
package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/anomaly"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/capacity"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/stats"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/trend"
)

// Priority ranks a scaling action.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Health is the overall verdict of a trend summary.
type Health string

const (
	HealthGood           Health = "good"
	HealthNeedsAttention Health = "needs_attention"
)

const (
	// bucketWindow is the window length compared by TrendBuckets.
	bucketWindow = 10
	// bucketThreshold is the fixed change, in metric units, TrendBuckets
	// requires before calling a window change a trend.
	bucketThreshold = 5.0
)

// CostSummary totals the monthly cost of a set of predictions, rounded to
// whole currency units.
type CostSummary struct {
	CurrentMonthlyCost   float64 `json:"current_monthly_cost" yaml:"current_monthly_cost"`
	ProjectedMonthlyCost float64 `json:"projected_monthly_cost" yaml:"projected_monthly_cost"`
	PotentialSavings     float64 `json:"potential_savings" yaml:"potential_savings"`
}

// ScalingAction is a non-trivial recommendation with its priority.
type ScalingAction struct {
	Service   string               `json:"service" yaml:"service"`
	Action    policy.ScalingAction `json:"action" yaml:"action"`
	Timeframe string               `json:"timeframe" yaml:"timeframe"`
	Priority  Priority             `json:"priority" yaml:"priority"`
}

// AnomalySummary counts anomalies per severity.
type AnomalySummary struct {
	Total    int `json:"total" yaml:"total"`
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
}

// Alert is raised for every high or critical anomaly.
type Alert struct {
	ID        string          `json:"id" yaml:"id"`
	Severity  policy.Severity `json:"severity" yaml:"severity"`
	Metric    string          `json:"metric" yaml:"metric"`
	Message   string          `json:"message" yaml:"message"`
	Actions   []string        `json:"actions" yaml:"actions"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// Buckets groups metric names by the direction of their recent change.
type Buckets struct {
	Increasing []string `json:"increasing" yaml:"increasing"`
	Decreasing []string `json:"decreasing" yaml:"decreasing"`
	Stable     []string `json:"stable" yaml:"stable"`
}

// TrendSummary counts trend results per direction.
type TrendSummary struct {
	TotalMetrics     int    `json:"total_metrics" yaml:"total_metrics"`
	IncreasingTrends int    `json:"increasing_trends" yaml:"increasing_trends"`
	DecreasingTrends int    `json:"decreasing_trends" yaml:"decreasing_trends"`
	StableTrends     int    `json:"stable_trends" yaml:"stable_trends"`
	OverallHealth    Health `json:"overall_health" yaml:"overall_health"`
}

// ServiceAction is a capacity action advised for a single service.
type ServiceAction struct {
	Action   policy.ScalingAction `json:"action" yaml:"action"`
	Reason   string               `json:"reason" yaml:"reason"`
	Timeline string               `json:"timeline" yaml:"timeline"`
	Impact   string               `json:"impact" yaml:"impact"`
}

// CostOptimization totals current and projected cost. Savings are never
// negative.
func CostOptimization(predictions []capacity.Prediction) CostSummary {
	var current, projected float64
	for _, p := range predictions {
		current += p.CostImpact.CurrentCost
		projected += p.CostImpact.PredictedCost
	}
	return CostSummary{
		CurrentMonthlyCost:   math.Round(current),
		ProjectedMonthlyCost: math.Round(projected),
		PotentialSavings:     math.Round(math.Max(0, current-projected)),
	}
}

// PriorityFor ranks a recommendation by its confidence and predicted demand.
func PriorityFor(confidence, demand float64) Priority {
	switch {
	case confidence > 0.8 && demand > 80:
		return PriorityHigh
	case confidence > 0.6 && demand > 60:
		return PriorityMedium
	}
	return PriorityLow
}

// ScalingActions lists the predictions that change capacity.
func ScalingActions(predictions []capacity.Prediction) []ScalingAction {
	actions := make([]ScalingAction, 0)
	for _, p := range predictions {
		if p.RecommendedScaling.Action == policy.Maintain {
			continue
		}
		actions = append(actions, ScalingAction{
			Service:   p.Service,
			Action:    p.RecommendedScaling.Action,
			Timeframe: p.RecommendedScaling.Timeframe,
			Priority:  PriorityFor(p.RecommendedScaling.Confidence, p.PredictedDemand),
		})
	}
	return actions
}

// Recommendations renders one line per scaling change.
func Recommendations(predictions []capacity.Prediction) []string {
	lines := make([]string, 0)
	for _, p := range predictions {
		switch p.RecommendedScaling.Action {
		case policy.ScaleUp:
			lines = append(lines, fmt.Sprintf("Scale up %s to handle predicted %.1f%% demand", p.Service, p.PredictedDemand))
		case policy.ScaleDown:
			lines = append(lines, fmt.Sprintf("Consider scaling down %s to optimize costs", p.Service))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "All services are optimally configured")
	}
	return lines
}

// SummarizeAnomalies counts records per severity.
func SummarizeAnomalies(records []anomaly.Record) AnomalySummary {
	s := AnomalySummary{Total: len(records)}
	for _, r := range records {
		switch r.Severity {
		case policy.SeverityCritical:
			s.Critical++
		case policy.SeverityHigh:
			s.High++
		case policy.SeverityMedium:
			s.Medium++
		case policy.SeverityLow:
			s.Low++
		}
	}
	return s
}

// FilterBySeverity keeps records of the given severity. An empty severity
// keeps everything.
func FilterBySeverity(records []anomaly.Record, severity policy.Severity) []anomaly.Record {
	if severity == "" {
		return records
	}
	out := make([]anomaly.Record, 0, len(records))
	for _, r := range records {
		if r.Severity == severity {
			out = append(out, r)
		}
	}
	return out
}

// Alerts raises an alert for every high or critical record.
func Alerts(records []anomaly.Record, now time.Time) []Alert {
	alerts := make([]Alert, 0)
	for _, r := range records {
		if r.Severity != policy.SeverityHigh && r.Severity != policy.SeverityCritical {
			continue
		}
		msg := fmt.Sprintf("%s anomaly detected: %.2f (expected: %.2f-%.2f)",
			r.Metric, r.Value, r.ExpectedRange.Min, r.ExpectedRange.Max)
		alerts = append(alerts, Alert{
			ID:        "alert-" + uuid.NewString(),
			Severity:  r.Severity,
			Metric:    r.Metric,
			Message:   msg,
			Actions:   r.RecommendedActions,
			Timestamp: now,
		})
	}
	return alerts
}

// TrendBuckets compares the mean of the last ten values of each metric with
// the ten before them, using a fixed threshold of five units. Metrics without
// a previous window are stable. Names in each bucket are sorted.
func TrendBuckets(history map[string][]float64) Buckets {
	metrics := make([]string, 0, len(history))
	for m := range history {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	b := Buckets{Increasing: []string{}, Decreasing: []string{}, Stable: []string{}}
	for _, metric := range metrics {
		data := history[metric]
		split := len(data) - bucketWindow
		if split < 0 {
			split = 0
		}
		start := split - bucketWindow
		if start < 0 {
			start = 0
		}
		recent, older := data[split:], data[start:split]
		if len(recent) == 0 || len(older) == 0 {
			b.Stable = append(b.Stable, metric)
			continue
		}

		recentAvg, olderAvg := stats.Mean(recent), stats.Mean(older)
		switch {
		case recentAvg > olderAvg+bucketThreshold:
			b.Increasing = append(b.Increasing, metric)
		case recentAvg < olderAvg-bucketThreshold:
			b.Decreasing = append(b.Decreasing, metric)
		default:
			b.Stable = append(b.Stable, metric)
		}
	}
	return b
}

// SummarizeTrends counts results per direction. Health is good only when
// stable metrics outnumber the moving ones.
func SummarizeTrends(results []trend.Result) TrendSummary {
	s := TrendSummary{TotalMetrics: len(results)}
	for _, r := range results {
		switch r.Trend {
		case policy.TrendIncreasing:
			s.IncreasingTrends++
		case policy.TrendDecreasing:
			s.DecreasingTrends++
		case policy.TrendStable:
			s.StableTrends++
		}
	}
	s.OverallHealth = HealthNeedsAttention
	if s.StableTrends > s.IncreasingTrends+s.DecreasingTrends {
		s.OverallHealth = HealthGood
	}
	return s
}

// ServiceScaling advises a prompt scale up when a service is trending up and
// its forecast exceeds critical.
func ServiceScaling(result trend.Result, critical float64) []ServiceAction {
	actions := make([]ServiceAction, 0, 1)
	if result.Trend == policy.TrendIncreasing && result.PredictedValue > critical {
		actions = append(actions, ServiceAction{
			Action:   policy.ScaleUp,
			Reason:   "Predicted high utilization",
			Timeline: "within 24 hours",
			Impact:   "prevent performance degradation",
		})
	}
	return actions
}
