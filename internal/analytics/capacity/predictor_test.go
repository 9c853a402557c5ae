package capacity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/stats"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/trend"
)

func TestPredict_ScaleUp(t *testing.T) {
	preds, err := Predict(map[string][]float64{
		"ecs-service": {150, 160, 170, 180, 190},
	})
	require.NoError(t, err)
	require.Len(t, preds, 1)

	got := preds[0]
	assert.Equal(t, "ecs-service", got.Service)
	assert.Equal(t, 2, got.CurrentCapacity)
	assert.InDelta(t, 200.0, got.PredictedDemand, 1e-9)
	assert.Equal(t, policy.ScaleUp, got.RecommendedScaling.Action)
	assert.Equal(t, 3, got.RecommendedScaling.TargetCapacity)
	assert.Greater(t, got.RecommendedScaling.Confidence, 0.7)
	assert.Equal(t, "immediate", got.RecommendedScaling.Timeframe)

	assert.Equal(t, 100.0, got.CostImpact.CurrentCost)
	assert.Equal(t, 150.0, got.CostImpact.PredictedCost)
	assert.Nil(t, got.CostImpact.Savings)
}

func TestPredict_ScaleDownWithConfidence(t *testing.T) {
	preds, err := Predict(map[string][]float64{
		"ecs-service": {50, 45, 40, 35, 30},
	})
	require.NoError(t, err)
	require.Len(t, preds, 1)

	got := preds[0]
	assert.Equal(t, policy.ScaleDown, got.RecommendedScaling.Action)
	assert.Equal(t, 1, got.RecommendedScaling.TargetCapacity)
	require.NotNil(t, got.CostImpact.Savings)
	assert.Equal(t, 50.0, *got.CostImpact.Savings)
}

func TestPredict_LowConfidenceNeverScalesDown(t *testing.T) {
	preds, err := Predict(map[string][]float64{
		"lambda-function": {10, 40, 5, 50, 8, 45},
	})
	require.NoError(t, err)
	require.Len(t, preds, 1)

	got := preds[0]
	require.LessOrEqual(t, got.RecommendedScaling.Confidence, 0.7)
	assert.Less(t, NewPredictor(policy.Default()).RequiredCapacity(got.PredictedDemand), got.CurrentCapacity)
	assert.Equal(t, policy.Maintain, got.RecommendedScaling.Action)
	assert.Equal(t, 100, got.RecommendedScaling.TargetCapacity)
}

func TestPredict_UnknownServiceDefaults(t *testing.T) {
	preds, err := Predict(map[string][]float64{
		"search-cluster": {20, 20, 20, 20, 20},
	})
	require.NoError(t, err)
	require.Len(t, preds, 1)

	got := preds[0]
	assert.Equal(t, policy.DefaultCapacity, got.CurrentCapacity)
	assert.Equal(t, policy.DefaultUnitCost, got.CostImpact.CurrentCost)
	assert.Equal(t, policy.Maintain, got.RecommendedScaling.Action)
}

func TestPredict_OrderedByService(t *testing.T) {
	flat := []float64{30, 30, 30, 30, 30}
	preds, err := Predict(map[string][]float64{
		"rds-instance":        flat,
		"ecs-service":         flat,
		"elasticache-cluster": flat,
	})
	require.NoError(t, err)

	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Service
	}
	assert.Equal(t, []string{"ecs-service", "elasticache-cluster", "rds-instance"}, names)
}

func TestPredict_PropagatesInsufficientData(t *testing.T) {
	_, err := Predict(map[string][]float64{
		"ecs-service":  {10, 20, 30, 40, 50},
		"rds-instance": {10, 20},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rds-instance")

	var insufficient *stats.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestPredict_Empty(t *testing.T) {
	preds, err := Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestPredictService_TimeframeFromThreshold(t *testing.T) {
	got, err := NewPredictor(policy.Default()).PredictService("ecs-service", []float64{10, 14, 18, 22, 26})
	require.NoError(t, err)
	assert.Equal(t, "14 time units", got.RecommendedScaling.Timeframe)
}

func TestRecommend(t *testing.T) {
	p := NewPredictor(policy.Default())

	tests := []struct {
		name       string
		current    int
		predicted  float64
		confidence float64
		wantAction policy.ScalingAction
		wantTarget int
	}{
		{"grow", 2, 200, 0.95, policy.ScaleUp, 3},
		{"grow at low confidence", 2, 200, 0.2, policy.ScaleUp, 3},
		{"shrink", 4, 100, 0.9, policy.ScaleDown, 2},
		{"shrink at threshold confidence", 4, 100, 0.7, policy.Maintain, 4},
		{"exact fit", 2, 140, 0.95, policy.Maintain, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Recommend(tt.current, trend.Result{PredictedValue: tt.predicted, Confidence: tt.confidence})
			assert.Equal(t, tt.wantAction, got.Action)
			assert.Equal(t, tt.wantTarget, got.TargetCapacity)
			assert.Equal(t, tt.confidence, got.Confidence)
		})
	}
}

func TestCostImpact(t *testing.T) {
	p := NewPredictor(policy.Default())

	got := p.CostImpact("rds-instance", 3, 70)
	assert.Equal(t, 300.0, got.CurrentCost)
	assert.Equal(t, 100.0, got.PredictedCost)
	require.NotNil(t, got.Savings)
	assert.Equal(t, 200.0, *got.Savings)

	got = p.CostImpact("rds-instance", 1, 70)
	assert.Nil(t, got.Savings, "equal cost has no savings")

	got = p.CostImpact("ecs-service", 2, 0)
	assert.Equal(t, 0.0, got.PredictedCost)
}

func TestTimeframe(t *testing.T) {
	v := func(f float64) *float64 { return &f }

	assert.Equal(t, "immediate", Timeframe(nil))
	assert.Equal(t, "immediate", Timeframe(v(0)))
	assert.Equal(t, "1 time units", Timeframe(v(0.2)))
	assert.Equal(t, "3 time units", Timeframe(v(3)))
}

func TestCustomPolicy(t *testing.T) {
	pol := policy.Default()
	pol.Capacity["ecs-service"] = 10
	pol.UnitCost["ecs-service"] = 20
	pol.ScaleDownConfidence = 0.99

	got, err := NewPredictor(pol).PredictService("ecs-service", []float64{50, 45, 40, 35, 30})
	require.NoError(t, err)
	assert.Equal(t, 10, got.CurrentCapacity)
	assert.Equal(t, policy.Maintain, got.RecommendedScaling.Action)
	assert.Equal(t, 200.0, got.CostImpact.CurrentCost)
}

func TestFromTrend(t *testing.T) {
	got := NewPredictor(policy.Default()).FromTrend("rds-instance", trend.Result{PredictedValue: 150, Confidence: 0.9})
	assert.Equal(t, "rds-instance", got.Service)
	assert.Equal(t, 1, got.CurrentCapacity)
	assert.Equal(t, policy.ScaleUp, got.RecommendedScaling.Action)
	assert.Equal(t, 3, got.RecommendedScaling.TargetCapacity)
	assert.Equal(t, 300.0, got.CostImpact.PredictedCost)
}
