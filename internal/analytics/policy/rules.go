package policy

import "fmt"

// adviceFunc renders advice for a predicted value under a policy.
type adviceFunc func(p Policy, predicted float64) string

// trendAdvice holds the recommendation text for one metric, per trend.
// Increasing and decreasing advice may depend on the predicted value.
type trendAdvice struct {
	increasing adviceFunc
	decreasing adviceFunc
	stable     adviceFunc
}

func fixed(s string) adviceFunc {
	return func(Policy, float64) string { return s }
}

func (a trendAdvice) forTrend(p Policy, t Trend, predicted float64) (string, bool) {
	switch t {
	case TrendIncreasing:
		return a.increasing(p, predicted), true
	case TrendDecreasing:
		return a.decreasing(p, predicted), true
	case TrendStable:
		return a.stable(p, predicted), true
	}
	return "", false
}

var trendAdviceTable = map[Metric]trendAdvice{
	MetricCPUUtilization: {
		increasing: func(p Policy, predicted float64) string {
			if predicted > p.CriticalUtilization {
				return "Scale up immediately - CPU utilization approaching critical levels"
			}
			return "Monitor closely - CPU trend increasing"
		},
		decreasing: func(_ Policy, predicted float64) string {
			if predicted < 30 {
				return "Consider scaling down to optimize costs"
			}
			return "Current capacity appears sufficient"
		},
		stable: fixed("Maintain current configuration - metrics are stable"),
	},
	MetricMemoryUtilization: {
		increasing: func(_ Policy, predicted float64) string {
			if predicted > 85 {
				return "Increase memory allocation or scale horizontally"
			}
			return "Monitor memory usage patterns"
		},
		decreasing: func(_ Policy, predicted float64) string {
			if predicted < 40 {
				return "Consider reducing memory allocation to save costs"
			}
			return "Memory usage is optimal"
		},
		stable: fixed("Memory configuration is well-sized for current workload"),
	},
	MetricNetworkLatency: {
		increasing: fixed("Investigate network bottlenecks and consider CDN or edge optimization"),
		decreasing: fixed("Network performance is improving - maintain current configuration"),
		stable:     fixed("Network performance is consistent"),
	},
}

// TrendRecommendation returns the action advised for metric given its trend
// and predicted next value. CPU advice escalates above the policy's critical
// utilization. Metrics without advice get a generic monitoring message.
func (p Policy) TrendRecommendation(metric string, trend Trend, predicted float64) string {
	if advice, ok := trendAdviceTable[Metric(metric)]; ok {
		if text, ok := advice.forTrend(p, trend, predicted); ok {
			return text
		}
	}
	return fmt.Sprintf("Monitor %s - trend is %s", metric, trend)
}

// causeRecord lists plausible causes of an anomaly, per direction.
type causeRecord struct {
	above []string
	below []string
}

var causeTable = map[Metric]causeRecord{
	MetricCPUUtilization: {
		above: []string{"High traffic load", "Inefficient algorithms", "Resource contention", "Memory leaks causing CPU spikes"},
		below: []string{"Reduced traffic", "Performance optimizations", "Caching improvements"},
	},
	MetricMemoryUtilization: {
		above: []string{"Memory leaks", "Large dataset processing", "Inefficient caching", "Increased concurrent users"},
		below: []string{"Memory optimization", "Reduced data processing", "Garbage collection improvements"},
	},
	MetricNetworkLatency: {
		above: []string{"Network congestion", "DNS resolution issues", "Database query slowdowns", "Third-party API delays"},
		below: []string{"Network optimization", "CDN improvements", "Database query optimization"},
	},
	MetricErrorRate: {
		above: []string{"Application bugs", "Database connectivity issues", "Third-party service failures", "Configuration errors"},
		below: []string{"Bug fixes deployed", "Improved error handling", "Infrastructure stability improvements"},
	},
}

var genericCauses = []string{"Unknown cause - requires investigation"}

// PossibleCauses lists causes for an anomaly on metric in direction. The
// returned slice is a copy.
func PossibleCauses(metric string, direction Direction) []string {
	record, ok := causeTable[Metric(metric)]
	if !ok {
		return copyStrings(genericCauses)
	}
	if direction == DirectionAbove {
		return copyStrings(record.above)
	}
	return copyStrings(record.below)
}

// actionRecord lists recommended responses per severity.
type actionRecord struct {
	critical []string
	high     []string
	medium   []string
	low      []string
}

func (r actionRecord) forSeverity(s Severity) ([]string, bool) {
	switch s {
	case SeverityCritical:
		return r.critical, true
	case SeverityHigh:
		return r.high, true
	case SeverityMedium:
		return r.medium, true
	case SeverityLow:
		return r.low, true
	}
	return nil, false
}

var actionTable = map[Metric]actionRecord{
	MetricCPUUtilization: {
		critical: []string{"Scale up immediately", "Investigate CPU-intensive processes", "Enable auto-scaling", "Alert on-call team"},
		high:     []string{"Monitor closely", "Prepare for scaling", "Review recent deployments"},
		medium:   []string{"Schedule performance review", "Monitor trends"},
		low:      []string{"Log for analysis", "Continue monitoring"},
	},
	MetricMemoryUtilization: {
		critical: []string{"Scale up memory", "Investigate memory leaks", "Restart services if necessary", "Alert development team"},
		high:     []string{"Monitor memory patterns", "Review memory allocation", "Check for memory leaks"},
		medium:   []string{"Schedule memory optimization review", "Monitor garbage collection"},
		low:      []string{"Continue monitoring", "Log for trend analysis"},
	},
	MetricErrorRate: {
		critical: []string{"Immediate investigation required", "Check application logs", "Verify database connectivity", "Alert development team"},
		high:     []string{"Review recent deployments", "Check error logs", "Monitor user impact"},
		medium:   []string{"Schedule error analysis", "Review error patterns"},
		low:      []string{"Log for analysis", "Monitor trends"},
	},
}

var genericActions = []string{"Investigate anomaly", "Monitor closely", "Review system logs"}

// AnomalyActions lists recommended responses to an anomaly on metric at
// severity. The returned slice is a copy.
func AnomalyActions(metric string, severity Severity) []string {
	if record, ok := actionTable[Metric(metric)]; ok {
		if actions, ok := record.forSeverity(severity); ok {
			return copyStrings(actions)
		}
	}
	return copyStrings(genericActions)
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
