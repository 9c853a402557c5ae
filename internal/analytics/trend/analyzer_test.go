package trend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/stats"
)

func TestAnalyze_ArithmeticSeries(t *testing.T) {
	got, err := Analyze([]float64{10, 20, 30, 40, 50, 60}, "cpu_utilization")
	require.NoError(t, err)

	assert.Equal(t, "cpu_utilization", got.MetricName)
	assert.Equal(t, 60.0, got.CurrentValue)
	assert.Equal(t, policy.TrendIncreasing, got.Trend)
	assert.InDelta(t, 70.0, got.PredictedValue, 1e-9)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.InDelta(t, 10.0, got.Slope, 1e-9)
	assert.Equal(t, "Monitor closely - CPU trend increasing", got.RecommendedAction)
	require.NotNil(t, got.TimeToThreshold)
	assert.InDelta(t, 2.0, *got.TimeToThreshold, 1e-9)
	assert.Equal(t, policy.PatternNone, got.SeasonalPattern)
	assert.InDelta(t, 30.0/(14.142135623730951*3), got.AnomalyScore, 1e-9)
}

func TestAnalyze_ConstantSeries(t *testing.T) {
	got, err := Analyze([]float64{50, 50, 50, 50, 50, 50}, "memory_utilization")
	require.NoError(t, err)

	assert.Equal(t, policy.TrendStable, got.Trend)
	assert.InDelta(t, 50.0, got.PredictedValue, 1e-9)
	assert.Nil(t, got.TimeToThreshold)
	assert.Equal(t, 0.0, got.AnomalyScore)
	assert.Equal(t, "Memory configuration is well-sized for current workload", got.RecommendedAction)
}

func TestAnalyze_DecreasingSeries(t *testing.T) {
	got, err := Analyze([]float64{90, 80, 70, 60, 50, 40}, "cpu_utilization")
	require.NoError(t, err)

	assert.Equal(t, policy.TrendDecreasing, got.Trend)
	assert.InDelta(t, 30.0, got.PredictedValue, 1e-9)
	assert.Nil(t, got.TimeToThreshold)
	assert.Equal(t, "Current capacity appears sufficient", got.RecommendedAction)
}

func TestAnalyze_UnknownMetricFallback(t *testing.T) {
	got, err := Analyze([]float64{10, 20, 30, 40, 50, 60}, "ecs-service")
	require.NoError(t, err)
	assert.Equal(t, "Monitor ecs-service - trend is increasing", got.RecommendedAction)
}

func TestAnalyze_InsufficientData(t *testing.T) {
	_, err := Analyze([]float64{1, 2, 3, 4}, "cpu_utilization")

	var insufficient *stats.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, MinPoints, insufficient.Required)
	assert.Equal(t, 4, insufficient.Actual)
}

func TestAnalyze_Idempotent(t *testing.T) {
	series := []float64{12, 18, 15, 22, 30, 27, 35, 41}

	first, err := Analyze(series, "cpu_utilization")
	require.NoError(t, err)
	second, err := Analyze(series, "cpu_utilization")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []float64{12, 18, 15, 22, 30, 27, 35, 41}, series, "input must not be modified")
}

func TestAnalyze_SeasonalPatternFolded(t *testing.T) {
	series := make([]float64, 48)
	for i := range series {
		series[i] = 30
		if h := i % 24; h >= 9 && h <= 17 {
			series[i] = 75
		}
	}

	got, err := Analyze(series, "cpu_utilization")
	require.NoError(t, err)
	assert.Equal(t, policy.PatternDaily, got.SeasonalPattern)
}

func TestAnalyzer_CustomCriticalUtilization(t *testing.T) {
	p := policy.Default()
	p.CriticalUtilization = 90

	got, err := NewAnalyzer(p).Analyze([]float64{10, 20, 30, 40, 50, 60}, "cpu_utilization")
	require.NoError(t, err)
	require.NotNil(t, got.TimeToThreshold)
	assert.InDelta(t, 3.0, *got.TimeToThreshold, 1e-9)
}

func TestAnalyzer_AdviceFollowsCriticalUtilization(t *testing.T) {
	series := []float64{50, 60, 70, 75, 80, 85}

	got, err := Analyze(series, "cpu_utilization")
	require.NoError(t, err)
	assert.InDelta(t, 94.0, got.PredictedValue, 1e-9)
	assert.Equal(t, "Scale up immediately - CPU utilization approaching critical levels", got.RecommendedAction)

	p := policy.Default()
	p.CriticalUtilization = 95
	got, err = NewAnalyzer(p).Analyze(series, "cpu_utilization")
	require.NoError(t, err)
	assert.Equal(t, policy.TrendIncreasing, got.Trend)
	assert.Equal(t, "Monitor closely - CPU trend increasing", got.RecommendedAction)
	require.NotNil(t, got.TimeToThreshold)
	assert.InDelta(t, 10.0/(120.0/17.5), *got.TimeToThreshold, 1e-9)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   policy.Trend
	}{
		{"single value", []float64{5}, policy.TrendStable},
		{"two rising values", []float64{10, 20}, policy.TrendIncreasing},
		{"low-variance noise", []float64{50, 51, 50, 51, 50, 51, 50, 51, 50, 51}, policy.TrendStable},
		{"rising", []float64{10, 20, 30, 40, 50, 60}, policy.TrendIncreasing},
		{"falling", []float64{60, 50, 40, 30, 20, 10}, policy.TrendDecreasing},
		{"only last ten count", []float64{100, 0, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50}, policy.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.series))
		})
	}
}

func TestTimeToThreshold(t *testing.T) {
	assert.Nil(t, TimeToThreshold([]float64{10, 20}, 0, 80))
	assert.Nil(t, TimeToThreshold([]float64{10, 20}, -1, 80))

	got := TimeToThreshold([]float64{70, 75, 80, 85, 90}, 5, 80)
	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)

	got = TimeToThreshold([]float64{40, 50}, 10, 80)
	require.NotNil(t, got)
	assert.InDelta(t, 3.0, *got, 1e-9)
}
