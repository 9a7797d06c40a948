package similarity

import (
	"math"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

// logRatioCutoff switches a property comparison from linear to log distance.
const logRatioCutoff = 1000

// PropertyComparison is the side-by-side view of one property.
type PropertyComparison struct {
	Property   string          `json:"property"`
	Left       units.Quantity  `json:"left"`
	Right      units.Quantity  `json:"right"`
	Dimension  units.Dimension `json:"dimension,omitempty"`
	Similarity *float64        `json:"similarity"`
	Reason     string          `json:"reason,omitempty"`
}

// Comparison summarizes two entities property by property.
type Comparison struct {
	LeftID     string               `json:"left_id"`
	RightID    string               `json:"right_id"`
	Similarity *float64             `json:"similarity"`
	Compared   int                  `json:"compared"`
	Properties []PropertyComparison `json:"properties"`
}

// Compare lines up two entities over the given property names, or over every
// property they share when names is empty. Each comparable pair scores in
// [0, 1]: linear relative difference, or log distance when the magnitudes
// differ by more than a factor of 1000. Pairs with no numeric value or
// differing dimensions are listed without a score.
func (e *Engine) Compare(cat *catalog.Catalog, leftID, rightID string, names []string) (Comparison, error) {
	left, ok := cat.Get(leftID)
	if !ok {
		return Comparison{}, errors.NewNotFoundError("entity %q", leftID)
	}
	right, ok := cat.Get(rightID)
	if !ok {
		return Comparison{}, errors.NewNotFoundError("entity %q", rightID)
	}
	if len(names) == 0 {
		names = sharedProperties(left, right)
	}

	out := Comparison{LeftID: left.ID, RightID: right.ID, Properties: make([]PropertyComparison, 0, len(names))}
	total := 0.0
	for _, name := range names {
		pc := comparePair(name, left.Quantity(name), right.Quantity(name))
		if pc.Similarity != nil {
			total += *pc.Similarity
			out.Compared++
		}
		out.Properties = append(out.Properties, pc)
	}
	if out.Compared > 0 {
		overall := total / float64(out.Compared)
		out.Similarity = &overall
	}
	return out, nil
}

func sharedProperties(a, b *catalog.Entity) []string {
	var names []string
	for _, name := range a.PropertyNames() {
		if _, ok := b.Data[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func comparePair(name string, l, r units.Quantity) PropertyComparison {
	pc := PropertyComparison{Property: name, Left: l, Right: r}
	lv, ld, lok := l.Base()
	rv, rd, rok := r.Base()
	switch {
	case !lok || !rok:
		pc.Reason = "not numeric on both sides"
		return pc
	case ld != rd && ld != units.DimNone && rd != units.DimNone:
		pc.Reason = "different dimensions"
		return pc
	}
	pc.Dimension = ld
	if ld == units.DimNone {
		pc.Dimension = rd
	}

	hi := math.Max(math.Abs(lv), math.Abs(rv))
	lo := math.Min(math.Abs(lv), math.Abs(rv))
	var s float64
	switch {
	case hi == 0:
		s = 1
	case lo == 0:
		s = 0
	case hi/lo > logRatioCutoff:
		s = 1 - math.Min(1, math.Abs(math.Log10(math.Abs(lv/rv)))/10)
	default:
		s = 1 - math.Min(1, math.Abs(lv-rv)/hi)
	}
	pc.Similarity = &s
	return pc
}
