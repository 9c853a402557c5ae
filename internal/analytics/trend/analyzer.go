// Package trend classifies the direction of a utilization series, forecasts
// its next value and estimates how long until it crosses the critical
// utilization line.
package trend

import (
	"errors"
	"fmt"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/anomaly"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/seasonality"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/stats"
)

const (
	// MinPoints is the shortest series Analyze accepts.
	MinPoints = 5

	maxWindow = 5
)

// Result is the outcome of a trend analysis.
type Result struct {
	MetricName        string         `json:"metric_name" yaml:"metric_name"`
	CurrentValue      float64        `json:"current_value" yaml:"current_value"`
	PredictedValue    float64        `json:"predicted_value" yaml:"predicted_value"`
	Trend             policy.Trend   `json:"trend" yaml:"trend"`
	Confidence        float64        `json:"confidence" yaml:"confidence"`
	Slope             float64        `json:"slope" yaml:"slope"`
	RecommendedAction string         `json:"recommended_action" yaml:"recommended_action"`
	TimeToThreshold   *float64       `json:"time_to_threshold,omitempty" yaml:"time_to_threshold,omitempty"`
	SeasonalPattern   policy.Pattern `json:"seasonal_pattern" yaml:"seasonal_pattern"`
	AnomalyScore      float64        `json:"anomaly_score" yaml:"anomaly_score"`
}

// Analyzer runs trend analysis under a policy. It holds no state and is safe
// for concurrent use.
type Analyzer struct {
	Policy policy.Policy
}

// NewAnalyzer creates an Analyzer with the given policy.
func NewAnalyzer(p policy.Policy) Analyzer {
	return Analyzer{Policy: p}
}

// Analyze classifies and forecasts series. It fails with an
// InsufficientDataError when series has fewer than MinPoints values.
func (a Analyzer) Analyze(series []float64, metricName string) (Result, error) {
	if err := stats.RequireLength("trend analysis", series, MinPoints); err != nil {
		return Result{}, err
	}

	direction := Classify(series)
	reg := stats.LinearRegression(series)

	pattern := policy.PatternNone
	quick, err := seasonality.Detect(series)
	var insufficient *stats.InsufficientDataError
	switch {
	case err == nil:
		pattern = quick.Pattern
	case !errors.As(err, &insufficient):
		return Result{}, fmt.Errorf("seasonality check: %w", err)
	}

	return Result{
		MetricName:        metricName,
		CurrentValue:      series[len(series)-1],
		PredictedValue:    reg.NextValue,
		Trend:             direction,
		Confidence:        reg.Confidence,
		Slope:             reg.Slope,
		RecommendedAction: a.Policy.TrendRecommendation(metricName, direction, reg.NextValue),
		TimeToThreshold:   TimeToThreshold(series, reg.Slope, a.Policy.CriticalUtilization),
		SeasonalPattern:   pattern,
		AnomalyScore:      anomaly.Score(series),
	}, nil
}

// Analyze runs trend analysis with the default policy.
func Analyze(series []float64, metricName string) (Result, error) {
	return NewAnalyzer(policy.Default()).Analyze(series, metricName)
}

// Classify compares the mean of the most recent window against the window
// before it. The window is min(5, len/2). A difference within the dynamic
// threshold is stable; without an older window the series is stable.
func Classify(series []float64) policy.Trend {
	if len(series) < 2 {
		return policy.TrendStable
	}

	window := len(series) / 2
	if window > maxWindow {
		window = maxWindow
	}
	recent := series[len(series)-window:]
	older := series[len(series)-2*window : len(series)-window]
	if len(older) == 0 {
		return policy.TrendStable
	}

	recentAvg := stats.Mean(recent)
	olderAvg := stats.Mean(older)
	threshold := stats.DynamicThreshold(series)

	switch {
	case recentAvg > olderAvg+threshold:
		return policy.TrendIncreasing
	case recentAvg < olderAvg-threshold:
		return policy.TrendDecreasing
	}
	return policy.TrendStable
}

// TimeToThreshold estimates the number of steps until the last value of
// series reaches threshold at the given slope. It is nil when the slope is
// not positive, and 0 when the threshold is already reached.
func TimeToThreshold(series []float64, slope, threshold float64) *float64 {
	if slope <= 0 || len(series) == 0 {
		return nil
	}
	current := series[len(series)-1]
	steps := 0.0
	if current < threshold {
		steps = (threshold - current) / slope
	}
	return &steps
}
