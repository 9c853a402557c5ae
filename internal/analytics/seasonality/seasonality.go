// Package seasonality detects periodic behaviour in utilization series.
//
// Two entry points exist:
//
//   - Detect is the lightweight check run inline by trend analysis. It looks
//     for daily (lag 24) and weekly (lag 168) autocorrelation in hourly data.
//   - Detector.Analyze profiles a timestamped series by hour of day, by
//     weekday and by 7-day bucket, and reports the strongest profile with its
//     peak hours or peak days.
package seasonality

import (
	"sort"
	"time"

	"github.com/kubilitics/kubilitics-predict/internal/analytics/policy"
	"github.com/kubilitics/kubilitics-predict/internal/analytics/stats"
)

const (
	// DailyLag and WeeklyLag are the autocorrelation lags for hourly samples.
	DailyLag  = 24
	WeeklyLag = 168

	// Daily periodicity is the common case and is accepted at a lower
	// correlation than weekly.
	dailyCorrelationThreshold  = 0.5
	weeklyCorrelationThreshold = 0.4

	// minProfileStrength is the coefficient of variation a profile needs to
	// count as a pattern.
	minProfileStrength = 0.3

	peakHourShare = 0.25
	peakDayShare  = 0.3

	week = 7 * 24 * time.Hour
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Quick is the result of the inline autocorrelation check.
type Quick struct {
	Pattern  policy.Pattern `json:"pattern" yaml:"pattern"`
	Strength float64        `json:"strength" yaml:"strength"`
}

// SeasonalPattern describes the strongest periodic profile of a timestamped
// series.
type SeasonalPattern struct {
	Pattern             policy.Pattern `json:"pattern" yaml:"pattern"`
	PeakHours           []int          `json:"peak_hours,omitempty" yaml:"peak_hours,omitempty"`
	PeakDays            []string       `json:"peak_days,omitempty" yaml:"peak_days,omitempty"`
	SeasonalityStrength float64        `json:"seasonality_strength" yaml:"seasonality_strength"`
	NextPeakPrediction  *time.Time     `json:"next_peak_prediction,omitempty" yaml:"next_peak_prediction,omitempty"`
}

// Detect checks a series of hourly samples for daily or weekly periodicity.
// It needs at least DailyLag samples; the weekly candidate is only evaluated
// with at least WeeklyLag samples.
func Detect(series []float64) (Quick, error) {
	if err := stats.RequireLength("seasonality detection", series, DailyLag); err != nil {
		return Quick{Pattern: policy.PatternNone}, err
	}

	daily := stats.Autocorrelation(series, DailyLag)
	weekly := 0.0
	if len(series) >= WeeklyLag {
		weekly = stats.Autocorrelation(series, WeeklyLag)
	}

	if daily > dailyCorrelationThreshold {
		return Quick{Pattern: policy.PatternDaily, Strength: daily}, nil
	}
	if weekly > weeklyCorrelationThreshold {
		return Quick{Pattern: policy.PatternWeekly, Strength: weekly}, nil
	}
	return Quick{Pattern: policy.PatternNone}, nil
}

// Detector profiles timestamped series. It is safe for concurrent use.
type Detector struct {
	now func() time.Time
}

// NewDetector creates a Detector using the wall clock for next-peak
// prediction.
func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

// NewDetectorWithClock creates a Detector with an explicit clock.
func NewDetectorWithClock(now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{now: now}
}

// Analyze profiles series against timestamps, which must have the same
// length. The hourly profile maps to a daily pattern, the weekday profile to
// a weekly pattern and the 7-day bucket profile to a monthly pattern.
func (d *Detector) Analyze(series []float64, timestamps []time.Time) (SeasonalPattern, error) {
	if len(series) != len(timestamps) {
		return SeasonalPattern{}, &stats.InvalidInputError{
			Field:   "timestamps",
			Message: "metric history and timestamps must have the same length",
		}
	}
	if err := stats.RequireLength("seasonal pattern analysis", series, 1); err != nil {
		return SeasonalPattern{}, err
	}

	candidates := []struct {
		pattern policy.Pattern
		profile profile
	}{
		{policy.PatternDaily, hourlyProfile(series, timestamps)},
		{policy.PatternWeekly, weekdayProfile(series, timestamps)},
		{policy.PatternMonthly, bucketProfile(series, timestamps)},
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].profile.strength > candidates[best].profile.strength {
			best = i
		}
	}

	winner := candidates[best]
	if winner.profile.strength < minProfileStrength {
		return SeasonalPattern{Pattern: policy.PatternNone}, nil
	}

	result := SeasonalPattern{
		Pattern:             winner.pattern,
		SeasonalityStrength: winner.profile.strength,
	}
	switch winner.pattern {
	case policy.PatternDaily:
		result.PeakHours = winner.profile.peakHours
		if len(result.PeakHours) > 0 {
			next := nextHourOccurrence(d.now().In(timestamps[0].Location()), result.PeakHours[0])
			result.NextPeakPrediction = &next
		}
	case policy.PatternWeekly:
		// No next-peak prediction for weekday peaks.
		result.PeakDays = winner.profile.peakDays
	}
	return result, nil
}

// Analyze runs a wall-clock Detector.
func Analyze(series []float64, timestamps []time.Time) (SeasonalPattern, error) {
	return NewDetector().Analyze(series, timestamps)
}

type profile struct {
	strength  float64
	peakHours []int
	peakDays  []string
}

// groupAverage is the average of one group, kept with its key so groups can
// be ranked.
type groupAverage struct {
	key     int64
	average float64
}

// averageBy groups values by key and returns per-group averages ordered by
// ascending key.
func averageBy(series []float64, timestamps []time.Time, key func(time.Time) int64) []groupAverage {
	groups := make(map[int64][]float64)
	for i, ts := range timestamps {
		k := key(ts)
		groups[k] = append(groups[k], series[i])
	}

	out := make([]groupAverage, 0, len(groups))
	for k, values := range groups {
		out = append(out, groupAverage{key: k, average: stats.Mean(values)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// strengthOf is the coefficient of variation of group averages, capped at 1.
func strengthOf(groups []groupAverage) float64 {
	values := make([]float64, len(groups))
	for i, g := range groups {
		values[i] = g.average
	}
	cv := stats.CoefficientOfVariation(values)
	if cv > 1 {
		return 1
	}
	return cv
}

// topKeys ranks groups by average, highest first, ties by key, and returns
// the keys of the top share rounded up.
func topKeys(groups []groupAverage, share float64) []int64 {
	ranked := make([]groupAverage, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].average > ranked[j].average })

	n := ceilShare(len(ranked), share)
	keys := make([]int64, n)
	for i := 0; i < n; i++ {
		keys[i] = ranked[i].key
	}
	return keys
}

func ceilShare(n int, share float64) int {
	k := int(float64(n) * share)
	if float64(k) < float64(n)*share {
		k++
	}
	return k
}

func hourlyProfile(series []float64, timestamps []time.Time) profile {
	groups := averageBy(series, timestamps, func(t time.Time) int64 { return int64(t.Hour()) })
	keys := topKeys(groups, peakHourShare)
	hours := make([]int, len(keys))
	for i, k := range keys {
		hours[i] = int(k)
	}
	return profile{strength: strengthOf(groups), peakHours: hours}
}

func weekdayProfile(series []float64, timestamps []time.Time) profile {
	groups := averageBy(series, timestamps, func(t time.Time) int64 { return int64(t.Weekday()) })
	keys := topKeys(groups, peakDayShare)
	days := make([]string, len(keys))
	for i, k := range keys {
		days[i] = dayNames[k]
	}
	return profile{strength: strengthOf(groups), peakDays: days}
}

func bucketProfile(series []float64, timestamps []time.Time) profile {
	groups := averageBy(series, timestamps, weekBucket)
	if len(groups) < 2 {
		return profile{}
	}
	return profile{strength: strengthOf(groups)}
}

// weekBucket returns floor(unix milliseconds / one week).
func weekBucket(t time.Time) int64 {
	ms := t.UnixMilli()
	w := week.Milliseconds()
	b := ms / w
	if ms%w < 0 {
		b--
	}
	return b
}

// nextHourOccurrence returns the first time strictly after now whose
// wall-clock hour is hour, at minute zero.
func nextHourOccurrence(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
