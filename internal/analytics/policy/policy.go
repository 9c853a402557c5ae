// Package policy centralizes the constants, enumerations and static rule
// tables the analyzers share: the critical utilization line, the target
// utilization used for sizing, the severity-critical metric set, and the
// per-service capacity and unit-cost tables.
package policy

import "sort"

const (
	// CriticalUtilization is the utilization percentage treated as critical
	// system-wide. Time-to-threshold estimates count steps until it is reached.
	CriticalUtilization = 80.0

	// TargetUtilization is the utilization percentage capacity is sized for.
	TargetUtilization = 70.0

	// ScaleDownConfidence is the forecast confidence a shrink recommendation
	// must exceed. Below it the current capacity is kept.
	ScaleDownConfidence = 0.7

	// AnomalyReportThreshold is the anomaly score a value must exceed to be
	// reported.
	AnomalyReportThreshold = 0.7

	// DefaultCapacity is used for services missing from the capacity table.
	DefaultCapacity = 1

	// DefaultUnitCost is the monthly cost per unit for services missing from
	// the cost table.
	DefaultUnitCost = 50.0
)

// Metric names a utilization metric known to the rule tables.
type Metric string

const (
	MetricCPUUtilization    Metric = "cpu_utilization"
	MetricMemoryUtilization Metric = "memory_utilization"
	MetricNetworkLatency    Metric = "network_latency"
	MetricErrorRate         Metric = "error_rate"
)

// Trend is the qualitative direction of a series.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Severity grades an anomaly.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Direction locates an anomalous value relative to its expected range.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Pattern is a detected periodicity.
type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
	PatternNone    Pattern = "none"
)

// ScalingAction is a capacity recommendation.
type ScalingAction string

const (
	ScaleUp   ScalingAction = "scale_up"
	ScaleDown ScalingAction = "scale_down"
	Maintain  ScalingAction = "maintain"
)

// IsSeverityCritical reports whether anomalies on metric are escalated one
// severity level.
func IsSeverityCritical(metric Metric) bool {
	switch metric {
	case MetricCPUUtilization, MetricMemoryUtilization, MetricErrorRate:
		return true
	}
	return false
}

// Policy bundles the tunable numbers and service tables. The zero value is
// not useful; start from Default.
type Policy struct {
	CriticalUtilization    float64
	TargetUtilization      float64
	ScaleDownConfidence    float64
	AnomalyReportThreshold float64
	DefaultCapacity        int
	DefaultUnitCost        float64

	// Capacity is the number of provisioned units per service.
	Capacity map[string]int
	// UnitCost is the monthly cost of one unit per service.
	UnitCost map[string]float64
}

// Default returns a fresh copy of the built-in policy.
func Default() Policy {
	return Policy{
		CriticalUtilization:    CriticalUtilization,
		TargetUtilization:      TargetUtilization,
		ScaleDownConfidence:    ScaleDownConfidence,
		AnomalyReportThreshold: AnomalyReportThreshold,
		DefaultCapacity:        DefaultCapacity,
		DefaultUnitCost:        DefaultUnitCost,
		Capacity: map[string]int{
			"ecs-service":         2,
			"rds-instance":        1,
			"elasticache-cluster": 1,
			"lambda-function":     100,
		},
		UnitCost: map[string]float64{
			"ecs-service":         50,     // per task per month
			"rds-instance":        100,    // per instance per month
			"elasticache-cluster": 75,     // per node per month
			"lambda-function":     0.0001, // per request
		},
	}
}

// CapacityFor returns the provisioned units of service. Unknown services and
// services recorded with zero units fall back to DefaultCapacity.
func (p Policy) CapacityFor(service string) int {
	if c := p.Capacity[service]; c > 0 {
		return c
	}
	return p.DefaultCapacity
}

// UnitCostFor returns the monthly unit cost of service, falling back to
// DefaultUnitCost.
func (p Policy) UnitCostFor(service string) float64 {
	if c := p.UnitCost[service]; c > 0 {
		return c
	}
	return p.DefaultUnitCost
}

// Clone returns a deep copy so callers can adjust tables without touching the
// original.
func (p Policy) Clone() Policy {
	out := p
	out.Capacity = make(map[string]int, len(p.Capacity))
	for k, v := range p.Capacity {
		out.Capacity[k] = v
	}
	out.UnitCost = make(map[string]float64, len(p.UnitCost))
	for k, v := range p.UnitCost {
		out.UnitCost[k] = v
	}
	return out
}

// Services returns the services known to either table, sorted.
func (p Policy) Services() []string {
	seen := make(map[string]struct{}, len(p.Capacity)+len(p.UnitCost))
	for s := range p.Capacity {
		seen[s] = struct{}{}
	}
	for s := range p.UnitCost {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
