package features

import (
	"math"
	"sort"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
)

// Correlation relates two properties over the entities that define both.
// Coefficients are nil when fewer than three pairs exist or a column is
// constant.
type Correlation struct {
	X              string   `json:"x"`
	Y              string   `json:"y"`
	CatalogVersion uint64   `json:"catalog_version"`
	Pairs          int      `json:"pairs"`
	Pearson        *float64 `json:"pearson"`
	Spearman       *float64 `json:"spearman"`
	Strength       string   `json:"strength"`
}

const minCorrelationPairs = 3

// Correlate computes Pearson and Spearman coefficients between two
// properties, using the same base-unit and log transforms as the extractor.
func Correlate(cat *catalog.Catalog, x, y Property) (Correlation, error) {
	if err := CheckSchema(cat, Schema{Properties: []Property{x, y}, Scaling: ScalingZScore}); err != nil {
		return Correlation{}, err
	}
	dx, dy := columnDimension(cat, x), columnDimension(cat, y)

	var xs, ys []float64
	for _, e := range cat.Entities() {
		qx, okx := resolve(e, x)
		qy, oky := resolve(e, y)
		if !okx || !oky {
			continue
		}
		vx, okx := transform(qx, x, dx)
		vy, oky := transform(qy, y, dy)
		if okx && oky {
			xs = append(xs, vx)
			ys = append(ys, vy)
		}
	}

	c := Correlation{X: x.Name, Y: y.Name, CatalogVersion: cat.Version(), Pairs: len(xs), Strength: "undefined"}
	if len(xs) < minCorrelationPairs {
		return c, nil
	}
	if r, ok := pearson(xs, ys); ok {
		c.Pearson = &r
		c.Strength = strength(r)
	}
	if r, ok := pearson(ranks(xs), ranks(ys)); ok {
		c.Spearman = &r
	}
	return c, nil
}

func strength(r float64) string {
	switch {
	case r > 0.7:
		return "strong positive"
	case r < -0.7:
		return "strong negative"
	case r > 0.3:
		return "moderate positive"
	case r < -0.3:
		return "moderate negative"
	default:
		return "weak"
	}
}

func pearson(x, y []float64) (float64, bool) {
	n := float64(len(x))
	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	num := n*sumXY - sumX*sumY
	den := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if den == 0 || math.IsNaN(den) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, num/den)), true
}

// ranks assigns 1-based ranks, averaging over ties.
func ranks(vals []float64) []float64 {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

	out := make([]float64, len(vals))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && vals[idx[j+1]] == vals[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
