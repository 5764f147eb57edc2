package matcher

import (
	"fmt"
	"math"
)

// Metric measures how far apart two encodings are. Distances are symmetric,
// non-negative and lower means more similar. Encodings of different length
// are infinitely far apart.
type Metric interface {
	Name() string
	Distance(a, b []float64) float64
}

const (
	MetricEuclidean   = "euclidean"
	MetricCorrelation = "correlation"
	MetricCosine      = "cosine"
)

// DefaultThreshold returns the acceptance threshold each metric was tuned for.
func DefaultThreshold(metric string) float64 {
	switch metric {
	case MetricCorrelation:
		return 0.5
	case MetricCosine:
		return 0.4
	default:
		return 0.6
	}
}

// MetricByName resolves a configured metric name.
func MetricByName(name string) (Metric, error) {
	switch name {
	case MetricEuclidean, "":
		return Euclidean{}, nil
	case MetricCorrelation:
		return Correlation{}, nil
	case MetricCosine:
		return Cosine{}, nil
	}
	return nil, fmt.Errorf("unknown metric %q", name)
}

// Euclidean is the L2 distance.
type Euclidean struct{}

func (Euclidean) Name() string { return MetricEuclidean }

func (Euclidean) Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Correlation is 1 - r, where r is the normalized cross-correlation (Pearson
// coefficient) of the two encodings. Range [0, 2].
type Correlation struct{}

func (Correlation) Name() string { return MetricCorrelation }

func (Correlation) Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		// constant vectors carry no shape to correlate
		if varA == varB && meanA == meanB {
			return 0
		}
		return 1
	}

	r := cov / math.Sqrt(varA*varB)
	return clamp(1-r, 0, 2)
}

// Cosine is 1 - cos(a, b). Range [0, 2].
type Cosine struct{}

func (Cosine) Name() string { return MetricCosine }

func (Cosine) Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return clamp(1-dot/(math.Sqrt(na)*math.Sqrt(nb)), 0, 2)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
