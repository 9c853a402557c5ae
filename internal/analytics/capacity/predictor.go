// Package capacity turns trend forecasts into per-service scaling
// recommendations and monthly cost projections.
package capacity

import (
	"fmt"
	"math"
	"sort"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/trend"
)

// Scaling is the recommended capacity change for a service.
type Scaling struct {
	Action         policy.ScalingAction `json:"action" yaml:"action"`
	TargetCapacity int                  `json:"target_capacity" yaml:"target_capacity"`
	Timeframe      string               `json:"timeframe" yaml:"timeframe"`
	Confidence     float64              `json:"confidence" yaml:"confidence"`
}

// CostImpact is the monthly cost of the current and the recommended
// capacity. Savings is set only when the recommendation is cheaper.
type CostImpact struct {
	CurrentCost   float64  `json:"current_cost" yaml:"current_cost"`
	PredictedCost float64  `json:"predicted_cost" yaml:"predicted_cost"`
	Savings       *float64 `json:"savings,omitempty" yaml:"savings,omitempty"`
}

// Prediction is the capacity outlook of one service.
type Prediction struct {
	Service            string     `json:"service" yaml:"service"`
	CurrentCapacity    int        `json:"current_capacity" yaml:"current_capacity"`
	PredictedDemand    float64    `json:"predicted_demand" yaml:"predicted_demand"`
	RecommendedScaling Scaling    `json:"recommended_scaling" yaml:"recommended_scaling"`
	CostImpact         CostImpact `json:"cost_impact" yaml:"cost_impact"`
}

// Predictor sizes services under a policy. It holds no state and is safe for
// concurrent use.
type Predictor struct {
	Policy policy.Policy
}

// NewPredictor creates a Predictor with the given policy.
func NewPredictor(p policy.Policy) Predictor {
	return Predictor{Policy: p}
}

// Predict sizes every service in series, ordered by service name. The first
// trend analysis failure aborts the whole prediction.
func (p Predictor) Predict(series map[string][]float64) ([]Prediction, error) {
	services := make([]string, 0, len(series))
	for s := range series {
		services = append(services, s)
	}
	sort.Strings(services)

	predictions := make([]Prediction, 0, len(services))
	for _, service := range services {
		pred, err := p.PredictService(service, series[service])
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, pred)
	}
	return predictions, nil
}

// PredictService sizes a single service from its utilization history.
func (p Predictor) PredictService(service string, series []float64) (Prediction, error) {
	result, err := trend.NewAnalyzer(p.Policy).Analyze(series, service)
	if err != nil {
		return Prediction{}, fmt.Errorf("service %s: %w", service, err)
	}

	return p.FromTrend(service, result), nil
}

// FromTrend sizes service from an existing trend result.
func (p Predictor) FromTrend(service string, result trend.Result) Prediction {
	current := p.Policy.CapacityFor(service)
	return Prediction{
		Service:            service,
		CurrentCapacity:    current,
		PredictedDemand:    result.PredictedValue,
		RecommendedScaling: p.Recommend(current, result),
		CostImpact:         p.CostImpact(service, current, result.PredictedValue),
	}
}

// RequiredCapacity is the number of units needed to serve demand at the
// target utilization.
func (p Predictor) RequiredCapacity(demand float64) int {
	target := p.Policy.TargetUtilization
	if target <= 0 {
		target = policy.TargetUtilization
	}
	return int(math.Ceil(demand / target))
}

// CostImpact prices the current capacity of service against the capacity
// required for demand.
func (p Predictor) CostImpact(service string, currentCapacity int, demand float64) CostImpact {
	unitCost := p.Policy.UnitCostFor(service)
	impact := CostImpact{
		CurrentCost:   float64(currentCapacity) * unitCost,
		PredictedCost: float64(p.RequiredCapacity(demand)) * unitCost,
	}
	if impact.CurrentCost > impact.PredictedCost {
		savings := impact.CurrentCost - impact.PredictedCost
		impact.Savings = &savings
	}
	return impact
}

// Recommend decides how to scale from currentCapacity given a trend result.
// Growth is always followed; shrinking requires a forecast confidence above
// the policy's scale-down confidence, otherwise the capacity is kept.
func (p Predictor) Recommend(currentCapacity int, result trend.Result) Scaling {
	required := p.RequiredCapacity(result.PredictedValue)
	scaling := Scaling{
		Action:         policy.Maintain,
		TargetCapacity: currentCapacity,
		Timeframe:      Timeframe(result.TimeToThreshold),
		Confidence:     result.Confidence,
	}

	switch {
	case required > currentCapacity:
		scaling.Action = policy.ScaleUp
		scaling.TargetCapacity = required
	case required < currentCapacity && result.Confidence > p.Policy.ScaleDownConfidence:
		scaling.Action = policy.ScaleDown
		scaling.TargetCapacity = required
	}
	return scaling
}

// Timeframe renders a time-to-threshold estimate. A missing or zero estimate
// means the threshold is already reached or not approaching, which is
// reported as "immediate".
func Timeframe(timeToThreshold *float64) string {
	if timeToThreshold == nil || *timeToThreshold <= 0 {
		return "immediate"
	}
	return fmt.Sprintf("%d time units", int(math.Ceil(*timeToThreshold)))
}

// Predict sizes services with the default policy.
func Predict(series map[string][]float64) ([]Prediction, error) {
	return NewPredictor(policy.Default()).Predict(series)
}
