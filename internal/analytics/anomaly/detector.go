package anomaly

// Package anomaly flags values that deviate from their historical range using
// classical statistics only.
//
// Scoring:
//
//   1. Self-comparison (Score)
//      - Last value of a series against the mean/stddev of the values before it
//      - z / 3, capped at 1
//      - Used inline by trend analysis
//
//   2. Snapshot detection (Detector.Detect)
//      - Current value per metric against that metric's history
//      - Expected range: mean ± 2σ; values inside it score 0
//      - Outside the range: z / 4, capped at 1
//      - Only scores above the report threshold are returned
//
// Metrics with too little history are skipped, not errored: some metrics
// simply have not accumulated history yet.

import (
	"math"
	"sort"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/stats"
)

const (
	// MinSelfScorePoints is the shortest series Score evaluates.
	MinSelfScorePoints = 3

	// MinHistoryPoints is the shortest per-metric history Detect evaluates.
	MinHistoryPoints = 10

	selfScoreDivisor     = 3.0
	snapshotScoreDivisor = 4.0
	rangeWidthSigmas     = 2.0
)

// Range is the expected band of a metric.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the band, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Record describes one reported anomaly.
type Record struct {
	Metric             string          `json:"metric" yaml:"metric"`
	Value              float64         `json:"value" yaml:"value"`
	ExpectedRange      Range           `json:"expected_range" yaml:"expected_range"`
	AnomalyScore       float64         `json:"anomaly_score" yaml:"anomaly_score"`
	Severity           policy.Severity `json:"severity" yaml:"severity"`
	PossibleCauses     []string        `json:"possible_causes" yaml:"possible_causes"`
	RecommendedActions []string        `json:"recommended_actions" yaml:"recommended_actions"`
}

// Score compares the last value of series against all values before it and
// returns a score in [0, 1]. Series shorter than MinSelfScorePoints, or whose
// prior values have no variance, score 0.
func Score(series []float64) float64 {
	if len(series) < MinSelfScorePoints {
		return 0
	}
	last := series[len(series)-1]
	history := series[:len(series)-1]

	stdDev := stats.StdDev(history)
	if stdDev == 0 {
		return 0
	}
	z := math.Abs(last-stats.Mean(history)) / stdDev
	return math.Min(1, z/selfScoreDivisor)
}

// ExpectedRange returns mean ± 2σ of history.
func ExpectedRange(history []float64) Range {
	mean := stats.Mean(history)
	stdDev := stats.StdDev(history)
	return Range{
		Min: mean - rangeWidthSigmas*stdDev,
		Max: mean + rangeWidthSigmas*stdDev,
	}
}

// MetricScore scores value against history: 0 inside the expected range,
// otherwise z / 4 capped at 1. With a zero-variance history any value other
// than the mean scores 1. A NaN or infinite value or history scores 0.
func MetricScore(value float64, history []float64) float64 {
	mean := stats.Mean(history)
	stdDev := stats.StdDev(history)
	if !isFinite(value) || !isFinite(mean) || !isFinite(stdDev) {
		return 0
	}
	if ExpectedRange(history).Contains(value) {
		return 0
	}
	if stdDev == 0 {
		if value == mean {
			return 0
		}
		return 1
	}
	z := math.Abs(value-mean) / stdDev
	return math.Min(1, z/snapshotScoreDivisor)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Finite reports whether value and every point of history are finite
// numbers. Detect never reports a metric for which it is false.
func Finite(value float64, history []float64) bool {
	if !isFinite(value) {
		return false
	}
	for _, v := range history {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// SeverityFor grades a score. Metrics in the severity-critical set are
// escalated one level in the 0.7 and 0.8 bands.
func SeverityFor(score float64, metric string) policy.Severity {
	critical := policy.IsSeverityCritical(policy.Metric(metric))

	switch {
	case score >= 0.9:
		return policy.SeverityCritical
	case score >= 0.8:
		if critical {
			return policy.SeverityCritical
		}
		return policy.SeverityHigh
	case score >= 0.7:
		if critical {
			return policy.SeverityHigh
		}
		return policy.SeverityMedium
	}
	return policy.SeverityLow
}

// Detector runs snapshot detection under a policy. It holds no state and is
// safe for concurrent use.
type Detector struct {
	Policy policy.Policy
}

// NewDetector creates a Detector with the given policy.
func NewDetector(p policy.Policy) Detector {
	return Detector{Policy: p}
}

// Detect evaluates every metric present in both current and history that has
// at least MinHistoryPoints of history. Metrics with a NaN or infinite value
// are skipped. Records are ordered by metric name.
func (d Detector) Detect(current map[string]float64, history map[string][]float64) []Record {
	metrics := make([]string, 0, len(current))
	for m := range current {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	records := make([]Record, 0)
	for _, metric := range metrics {
		hist, ok := history[metric]
		if !ok || len(hist) < MinHistoryPoints {
			continue
		}

		value := current[metric]
		if !Finite(value, hist) {
			continue
		}
		expected := ExpectedRange(hist)
		score := MetricScore(value, hist)
		if score <= d.Policy.AnomalyReportThreshold {
			continue
		}

		severity := SeverityFor(score, metric)
		direction := policy.DirectionBelow
		if value > expected.Max {
			direction = policy.DirectionAbove
		}

		records = append(records, Record{
			Metric:             metric,
			Value:              value,
			ExpectedRange:      expected,
			AnomalyScore:       score,
			Severity:           severity,
			PossibleCauses:     policy.PossibleCauses(metric, direction),
			RecommendedActions: policy.AnomalyActions(metric, severity),
		})
	}
	return records
}

// Detect runs snapshot detection with the default policy.
func Detect(current map[string]float64, history map[string][]float64) []Record {
	return NewDetector(policy.Default()).Detect(current, history)
}
