package features

import (
	"math"
	"sort"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

// Stats describes one schema column over a whole catalog version, after
// base-unit conversion and the optional log transform.
type Stats struct {
	Property  string          `json:"property"`
	Dimension units.Dimension `json:"dimension"`
	Count     int             `json:"count"`
	Mean      float64         `json:"mean"`
	Std       float64         `json:"std"`
	Min       float64         `json:"min"`
	Max       float64         `json:"max"`
}

// Scale standardizes v against the column statistics. A degenerate column
// (zero spread) maps every value to 0.
func (s Stats) Scale(v float64, scaling Scaling) float64 {
	switch scaling {
	case ScalingMinMax:
		span := s.Max - s.Min
		if span == 0 {
			return 0
		}
		return (v - s.Min) / span
	default:
		if s.Std == 0 {
			return 0
		}
		return (v - s.Mean) / s.Std
	}
}

// resolve picks the first numeric quantity among the property and its
// aliases.
func resolve(e *catalog.Entity, p Property) (units.Quantity, bool) {
	for _, name := range p.candidates() {
		if q := e.Quantity(name); q.IsNumber() {
			return q, true
		}
	}
	return units.Missing(), false
}

// columnDimension returns the most frequent known dimension among the values
// of a property. Unit-less values only decide when nothing else is present.
// Ties go to the lexically smaller dimension.
func columnDimension(cat *catalog.Catalog, p Property) units.Dimension {
	counts := make(map[units.Dimension]int)
	for _, e := range cat.Entities() {
		q, ok := resolve(e, p)
		if !ok {
			continue
		}
		counts[q.Dimension()]++
	}
	delete(counts, units.DimNone)
	if len(counts) == 0 {
		return units.DimNone
	}
	dims := make([]units.Dimension, 0, len(counts))
	for d := range counts {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool {
		if counts[dims[i]] != counts[dims[j]] {
			return counts[dims[i]] > counts[dims[j]]
		}
		return dims[i] < dims[j]
	})
	return dims[0]
}

// transform converts q into the column's comparable value. It reports false
// when the value cannot take part in the column: a different dimension, or a
// non-positive value under log scaling.
func transform(q units.Quantity, p Property, dim units.Dimension) (float64, bool) {
	v, d, ok := q.Base()
	if !ok {
		return 0, false
	}
	if d != dim && d != units.DimNone {
		return 0, false
	}
	if p.LogScale {
		if v <= 0 {
			return 0, false
		}
		v = math.Log10(v)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// computeStats gathers column statistics for p over the catalog. Std is the
// population standard deviation.
func computeStats(cat *catalog.Catalog, p Property) Stats {
	dim := columnDimension(cat, p)
	st := Stats{Property: p.Name, Dimension: dim}

	var values []float64
	for _, e := range cat.Entities() {
		q, ok := resolve(e, p)
		if !ok {
			continue
		}
		if v, ok := transform(q, p, dim); ok {
			values = append(values, v)
		}
	}
	st.Count = len(values)
	if st.Count == 0 {
		return st
	}

	st.Min, st.Max = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	st.Mean = sum / float64(st.Count)
	variance := 0.0
	for _, v := range values {
		variance += (v - st.Mean) * (v - st.Mean)
	}
	st.Std = math.Sqrt(variance / float64(st.Count))
	return st
}
