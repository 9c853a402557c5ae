package stats

import (
	"math"
	"sort"
)

// Summary holds descriptive statistics of a series.
type Summary struct {
	Mean                   float64 `json:"mean" yaml:"mean"`
	Median                 float64 `json:"median" yaml:"median"`
	StdDev                 float64 `json:"std_dev" yaml:"std_dev"`
	Min                    float64 `json:"min" yaml:"min"`
	Max                    float64 `json:"max" yaml:"max"`
	P50                    float64 `json:"p50" yaml:"p50"`
	P95                    float64 `json:"p95" yaml:"p95"`
	P99                    float64 `json:"p99" yaml:"p99"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation" yaml:"coefficient_of_variation"`
	InterquartileRange     float64 `json:"iqr" yaml:"iqr"`
	Count                  int     `json:"count" yaml:"count"`
}

// Summarize computes descriptive statistics. An empty series yields a zero
// Summary.
func Summarize(series []float64) Summary {
	if len(series) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	mean := Mean(series)
	stdDev := StdDev(series)

	cv := 0.0
	if mean != 0 {
		cv = stdDev / math.Abs(mean)
	}

	p50 := Percentile(sorted, 50)
	return Summary{
		Mean:                   mean,
		Median:                 p50,
		StdDev:                 stdDev,
		Min:                    sorted[0],
		Max:                    sorted[len(sorted)-1],
		P50:                    p50,
		P95:                    Percentile(sorted, 95),
		P99:                    Percentile(sorted, 99),
		CoefficientOfVariation: cv,
		InterquartileRange:     Percentile(sorted, 75) - Percentile(sorted, 25),
		Count:                  len(series),
	}
}

// Percentile returns the p-th percentile of already sorted data using linear
// interpolation between the closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower < 0 {
		return sorted[0]
	}
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
