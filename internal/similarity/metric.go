package similarity

import (
	"math"
	"strings"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

// Metric names a comparison function over feature vectors.
type Metric string

const (
	// Cosine ranks by descending cosine similarity.
	Cosine Metric = "cosine"
	// Euclidean ranks by ascending euclidean distance.
	Euclidean Metric = "euclidean"
)

// ParseMetric resolves a metric name, reporting unknown names with an
// InvalidMetricError.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case Cosine:
		return Cosine, nil
	case Euclidean:
		return Euclidean, nil
	}
	return "", &errors.InvalidMetricError{Name: name}
}

// HigherIsBetter reports the ranking direction of the metric.
func (m Metric) HigherIsBetter() bool {
	return m == Cosine
}

// score computes the metric over the given overlap indices. It reports false
// when the comparison is undefined.
func (m Metric) score(a, b []float64, overlap []int) (float64, bool) {
	if len(overlap) == 0 {
		return 0, false
	}
	switch m {
	case Cosine:
		var dot, na, nb float64
		for _, i := range overlap {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 0, false
		}
		s := dot / (math.Sqrt(na) * math.Sqrt(nb))
		return math.Max(-1, math.Min(1, s)), true
	case Euclidean:
		var sum float64
		for _, i := range overlap {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum), true
	}
	return 0, false
}
