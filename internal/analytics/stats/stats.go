// Package stats provides the numeric primitives shared by every analyzer:
// mean, population standard deviation, the dynamic noise threshold, least
// squares regression and lag autocorrelation.
//
// All functions are pure. None of them returns NaN or Inf: every division by a
// variance or a mean is guarded and falls back to a defined value.
package stats

import "math"

const (
	// MinConfidence and MaxConfidence bound regression confidence. A fit is
	// never reported as certain nor as impossible.
	MinConfidence = 0.1
	MaxConfidence = 0.95

	// noiseFraction is the share of the mean used as the dynamic threshold
	// when it is tighter than one standard deviation.
	noiseFraction = 0.1
)

// Regression is the result of an ordinary least squares fit of values
// against their index positions.
type Regression struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	NextValue  float64 `json:"next_value"`
	Confidence float64 `json:"confidence"`
}

// Mean returns the arithmetic mean, or 0 for an empty series.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// StdDev returns the population standard deviation.
func StdDev(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	mean := Mean(series)
	var variance float64
	for _, v := range series {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(series))
	return math.Sqrt(variance)
}

// DynamicThreshold returns the noise band a change must exceed before it is
// considered real: 10% of the mean or one standard deviation, whichever is
// smaller.
func DynamicThreshold(series []float64) float64 {
	return math.Min(Mean(series)*noiseFraction, StdDev(series))
}

// CoefficientOfVariation returns stddev/mean, or 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return StdDev(values) / mean
}

// LinearRegression fits y = slope*x + intercept over x = 0..n-1.
//
// NextValue extrapolates one step past the last index and is clamped to be
// non-negative. Confidence is R² clamped to [MinConfidence, MaxConfidence];
// a constant series is a perfect fit.
func LinearRegression(series []float64) Regression {
	n := float64(len(series))
	if len(series) == 0 {
		return Regression{Confidence: MinConfidence}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	var slope float64
	if denom := n*sumX2 - sumX*sumX; denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range series {
		predicted := slope*float64(i) + intercept
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - predicted) * (y - predicted)
	}

	rSquared := 1.0
	if ssTot != 0 {
		rSquared = 1 - ssRes/ssTot
	}

	return Regression{
		Slope:      slope,
		Intercept:  intercept,
		NextValue:  math.Max(0, slope*n+intercept),
		Confidence: clamp(rSquared, MinConfidence, MaxConfidence),
	}
}

// Autocorrelation computes the normalized correlation between the series and
// a copy of itself shifted by lag. Deviations are taken from the global mean.
// It returns 0 when the series is not longer than lag or has no variance.
func Autocorrelation(series []float64, lag int) float64 {
	if lag < 0 || len(series) <= lag {
		return 0
	}
	mean := Mean(series)
	n := len(series) - lag

	var num, den1, den2 float64
	for i := 0; i < n; i++ {
		a := series[i] - mean
		b := series[i+lag] - mean
		num += a * b
		den1 += a * a
		den2 += b * b
	}
	denom := math.Sqrt(den1 * den2)
	if denom == 0 {
		return 0
	}
	return num / denom
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
