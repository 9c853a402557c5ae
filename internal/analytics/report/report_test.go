package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/anomaly"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/capacity"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/trend"
)

func prediction(service string, action policy.ScalingAction, demand, confidence, current, predicted float64) capacity.Prediction {
	return capacity.Prediction{
		Service:         service,
		PredictedDemand: demand,
		RecommendedScaling: capacity.Scaling{
			Action:     action,
			Timeframe:  "immediate",
			Confidence: confidence,
		},
		CostImpact: capacity.CostImpact{CurrentCost: current, PredictedCost: predicted},
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestCostOptimization(t *testing.T) {
	got := CostOptimization([]capacity.Prediction{
		prediction("ecs-service", policy.ScaleDown, 30, 0.9, 100.4, 50.2),
		prediction("rds-instance", policy.Maintain, 50, 0.9, 100, 100),
	})
	assert.Equal(t, 200.0, got.CurrentMonthlyCost)
	assert.Equal(t, 150.0, got.ProjectedMonthlyCost)
	assert.Equal(t, 50.0, got.PotentialSavings)

	got = CostOptimization([]capacity.Prediction{
		prediction("ecs-service", policy.ScaleUp, 200, 0.9, 100, 150),
	})
	assert.Equal(t, 0.0, got.PotentialSavings, "savings are floored at zero")

	assert.Equal(t, CostSummary{}, CostOptimization(nil))
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		confidence, demand float64
		want               Priority
	}{
		{0.9, 90, PriorityHigh},
		{0.8, 90, PriorityMedium},
		{0.9, 80, PriorityMedium},
		{0.7, 70, PriorityMedium},
		{0.6, 70, PriorityLow},
		{0.9, 60, PriorityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriorityFor(tt.confidence, tt.demand), "confidence=%v demand=%v", tt.confidence, tt.demand)
	}
}

func TestScalingActions(t *testing.T) {
	got := ScalingActions([]capacity.Prediction{
		prediction("ecs-service", policy.ScaleUp, 200, 0.95, 100, 150),
		prediction("rds-instance", policy.Maintain, 50, 0.9, 100, 100),
		prediction("elasticache-cluster", policy.ScaleDown, 20, 0.9, 150, 75),
	})
	require.Len(t, got, 2)
	assert.Equal(t, ScalingAction{Service: "ecs-service", Action: policy.ScaleUp, Timeframe: "immediate", Priority: PriorityHigh}, got[0])
	assert.Equal(t, "elasticache-cluster", got[1].Service)
	assert.Equal(t, PriorityLow, got[1].Priority)
}

func TestRecommendations(t *testing.T) {
	got := Recommendations([]capacity.Prediction{
		prediction("ecs-service", policy.ScaleUp, 200, 0.95, 100, 150),
		prediction("rds-instance", policy.ScaleDown, 20, 0.9, 200, 100),
	})
	assert.Equal(t, []string{
		"Scale up ecs-service to handle predicted 200.0% demand",
		"Consider scaling down rds-instance to optimize costs",
	}, got)

	got = Recommendations([]capacity.Prediction{prediction("ecs-service", policy.Maintain, 50, 0.9, 100, 100)})
	assert.Equal(t, []string{"All services are optimally configured"}, got)
}

func TestSummarizeAnomaliesAndFilter(t *testing.T) {
	records := []anomaly.Record{
		{Metric: "cpu_utilization", Severity: policy.SeverityCritical},
		{Metric: "error_rate", Severity: policy.SeverityHigh},
		{Metric: "memory_utilization", Severity: policy.SeverityCritical},
		{Metric: "disk_io", Severity: policy.SeverityMedium},
	}

	assert.Equal(t, AnomalySummary{Total: 4, Critical: 2, High: 1, Medium: 1}, SummarizeAnomalies(records))

	critical := FilterBySeverity(records, policy.SeverityCritical)
	require.Len(t, critical, 2)
	assert.Equal(t, "cpu_utilization", critical[0].Metric)
	assert.Equal(t, "memory_utilization", critical[1].Metric)

	assert.Len(t, FilterBySeverity(records, ""), 4)
	assert.Empty(t, FilterBySeverity(records, policy.SeverityLow))
}

func TestAlerts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []anomaly.Record{
		{
			Metric:             "cpu_utilization",
			Value:              90,
			ExpectedRange:      anomaly.Range{Min: 40, Max: 60},
			Severity:           policy.SeverityCritical,
			RecommendedActions: []string{"Scale up immediately"},
		},
		{Metric: "disk_io", Value: 10, Severity: policy.SeverityMedium},
		{Metric: "error_rate", Value: 4, ExpectedRange: anomaly.Range{Min: 0.5, Max: 1.5}, Severity: policy.SeverityHigh},
	}

	got := Alerts(records, now)
	require.Len(t, got, 2)

	assert.Equal(t, "cpu_utilization", got[0].Metric)
	assert.Equal(t, policy.SeverityCritical, got[0].Severity)
	assert.Equal(t, "cpu_utilization anomaly detected: 90.00 (expected: 40.00-60.00)", got[0].Message)
	assert.Equal(t, []string{"Scale up immediately"}, got[0].Actions)
	assert.Equal(t, now, got[0].Timestamp)
	assert.True(t, strings.HasPrefix(got[0].ID, "alert-"))

	assert.Equal(t, "error_rate", got[1].Metric)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestTrendBuckets(t *testing.T) {
	history := map[string][]float64{
		"cpu_utilization":    append(repeat(50, 10), repeat(60, 10)...),
		"memory_utilization": append(repeat(60, 10), repeat(50, 10)...),
		"network_latency":    repeat(50, 20),
		"error_rate":         repeat(1, 5),
		"disk_io":            append(append(repeat(0, 10), repeat(50, 10)...), repeat(52, 10)...),
	}

	got := TrendBuckets(history)
	assert.Equal(t, []string{"cpu_utilization"}, got.Increasing)
	assert.Equal(t, []string{"memory_utilization"}, got.Decreasing)
	assert.Equal(t, []string{"disk_io", "error_rate", "network_latency"}, got.Stable)
}

func TestTrendBuckets_Empty(t *testing.T) {
	got := TrendBuckets(nil)
	assert.Empty(t, got.Increasing)
	assert.Empty(t, got.Decreasing)
	assert.Empty(t, got.Stable)
}

func TestSummarizeTrends(t *testing.T) {
	results := []trend.Result{
		{Trend: policy.TrendStable},
		{Trend: policy.TrendStable},
		{Trend: policy.TrendIncreasing},
	}
	got := SummarizeTrends(results)
	assert.Equal(t, TrendSummary{
		TotalMetrics:     3,
		IncreasingTrends: 1,
		StableTrends:     2,
		OverallHealth:    HealthGood,
	}, got)

	results = append(results, trend.Result{Trend: policy.TrendDecreasing})
	assert.Equal(t, HealthNeedsAttention, SummarizeTrends(results).OverallHealth)
}

func TestServiceScaling(t *testing.T) {
	got := ServiceScaling(trend.Result{Trend: policy.TrendIncreasing, PredictedValue: 85}, policy.CriticalUtilization)
	require.Len(t, got, 1)
	assert.Equal(t, policy.ScaleUp, got[0].Action)
	assert.Equal(t, "within 24 hours", got[0].Timeline)

	assert.Empty(t, ServiceScaling(trend.Result{Trend: policy.TrendIncreasing, PredictedValue: 80}, policy.CriticalUtilization))
	assert.Empty(t, ServiceScaling(trend.Result{Trend: policy.TrendStable, PredictedValue: 95}, policy.CriticalUtilization))
}
