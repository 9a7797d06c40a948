package features

import (
	"math"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

// PropertyProfile summarizes how one property is populated across a
// catalog version.
type PropertyProfile struct {
	Property       string          `json:"property"`
	CatalogVersion uint64          `json:"catalog_version"`
	Total          int             `json:"total"`
	Numeric        int             `json:"numeric"`
	Text           int             `json:"text"`
	Missing        int             `json:"missing"`
	Incompatible   int             `json:"incompatible"`
	Coverage       float64         `json:"coverage"`
	Dimension      units.Dimension `json:"dimension"`
	Units          map[string]int  `json:"units"`
	UnitEntropy    float64         `json:"unit_entropy"`
	Stats          Stats           `json:"stats"`
}

// Profile reports coverage and unit spread of one property. Coverage is the
// share of entities contributing a usable value to the column.
func (x *Extractor) Profile(cat *catalog.Catalog, p Property) (PropertyProfile, error) {
	if p.Name == "" {
		return PropertyProfile{}, errors.NewInvalidRequestError("property name is empty")
	}
	if err := CheckSchema(cat, Schema{Properties: []Property{p}, Scaling: ScalingZScore}); err != nil {
		return PropertyProfile{}, err
	}

	st := x.Stats(cat, p)
	prof := PropertyProfile{
		Property:       p.Name,
		CatalogVersion: cat.Version(),
		Total:          cat.Len(),
		Dimension:      st.Dimension,
		Units:          make(map[string]int),
		Stats:          st,
	}
	for _, e := range cat.Entities() {
		q, ok := resolve(e, p)
		if !ok {
			if anyText(e, p) {
				prof.Text++
			} else {
				prof.Missing++
			}
			continue
		}
		prof.Numeric++
		prof.Units[q.Unit]++
		if _, ok := transform(q, p, st.Dimension); !ok {
			prof.Incompatible++
		}
	}
	if prof.Total > 0 {
		prof.Coverage = float64(prof.Numeric-prof.Incompatible) / float64(prof.Total)
	}
	prof.UnitEntropy = entropy(prof.Units, prof.Numeric)
	return prof, nil
}

func anyText(e *catalog.Entity, p Property) bool {
	for _, name := range p.candidates() {
		if e.Quantity(name).Kind == units.KindText {
			return true
		}
	}
	return false
}

// entropy computes the Shannon entropy of a count distribution in bits.
func entropy(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(total)
			h -= p * math.Log2(p)
		}
	}
	return h
}
