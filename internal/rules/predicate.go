package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

const (
	defaultRatioMin       = 2
	defaultRatioTolerance = 0.05
)

type comparator struct {
	holds func(observed, limit float64) bool
	// shortfall is how far observed is from satisfying the comparison.
	shortfall func(observed, limit float64) float64
	phrase    string
}

var comparators = map[string]comparator{
	">": {
		holds:     func(o, l float64) bool { return o > l },
		shortfall: func(o, l float64) float64 { return l - o },
		phrase:    "above",
	},
	">=": {
		holds:     func(o, l float64) bool { return o >= l },
		shortfall: func(o, l float64) float64 { return l - o },
		phrase:    "at least",
	},
	"<": {
		holds:     func(o, l float64) bool { return o < l },
		shortfall: func(o, l float64) float64 { return o - l },
		phrase:    "below",
	},
	"<=": {
		holds:     func(o, l float64) bool { return o <= l },
		shortfall: func(o, l float64) float64 { return o - l },
		phrase:    "at most",
	},
}

// check is the outcome of one predicate before weights are applied.
type check struct {
	matched   bool
	property  string
	observed  string
	margin    *float64
	rationale string
}

func (rs *RuleSet) evaluate(r Rule, e *catalog.Entity) check {
	p := r.Predicate
	switch p.Kind {
	case KindThreshold:
		return evalThreshold(p, e)
	case KindIntegerRatio:
		return evalIntegerRatio(p, e)
	case KindExists:
		return evalExists(p, e)
	case KindPattern:
		return evalPattern(p, e)
	case KindOneOf:
		return evalOneOf(p, e)
	case KindNameHint:
		return rs.evalNameHint(r, e)
	case KindScale:
		return evalScale(p, e)
	}
	return check{rationale: fmt.Sprintf("unknown predicate kind %q", p.Kind)}
}

// firstNumber returns the first property in names holding a number, or
// explains why none did.
func firstNumber(e *catalog.Entity, names []string) (string, units.Quantity, string) {
	var text []string
	for _, name := range names {
		q := e.Quantity(name)
		if q.IsNumber() {
			return name, q, ""
		}
		if q.Kind == units.KindText {
			text = append(text, fmt.Sprintf("%s is not numeric (%s)", name, q))
		}
	}
	if len(text) > 0 {
		return "", units.Missing(), strings.Join(text, "; ")
	}
	return "", units.Missing(), fmt.Sprintf("%s missing", strings.Join(names, " / "))
}

func evalThreshold(p Predicate, e *catalog.Entity) check {
	cmp := comparators[p.Op]
	name, q, why := firstNumber(e, p.Properties)
	if name == "" {
		return check{rationale: why}
	}

	observed := q.Value
	if p.Unit != "" {
		conv, _ := units.Lookup(p.Unit)
		base, dim, _ := q.Base()
		if dim != conv.Dimension && dim != units.DimNone {
			return check{
				property:  name,
				observed:  q.String(),
				rationale: fmt.Sprintf("%s = %s is a %s, rule expects %s", name, q, dimensionName(dim), dimensionName(conv.Dimension)),
			}
		}
		if dim != units.DimNone {
			observed = conv.FromBase(base)
		}
	}

	c := check{property: name, observed: q.String()}
	limit := formatLimit(p.Value, p.Unit)
	if cmp.holds(observed, p.Value) {
		c.matched = true
		c.rationale = fmt.Sprintf("%s = %s is %s %s", name, q, cmp.phrase, limit)
		return c
	}
	short := cmp.shortfall(observed, p.Value)
	c.margin = &short
	c.rationale = fmt.Sprintf("%s = %s is not %s %s (short by %s)", name, q, cmp.phrase, limit, formatShort(short, p.Unit))
	return c
}

func evalIntegerRatio(p Predicate, e *catalog.Entity) check {
	minInt := p.Min
	if minInt == 0 {
		minInt = defaultRatioMin
	}
	tol := defaultRatioTolerance
	if p.Tolerance != nil {
		tol = *p.Tolerance
	}

	name, q, why := firstNumber(e, p.Properties)
	if name == "" {
		return check{rationale: why}
	}
	r := q.Value
	nearest := math.Round(r)
	c := check{property: name, observed: q.String()}

	switch off := math.Abs(r - nearest); {
	case nearest < float64(minInt):
		short := float64(minInt) - tol - r
		c.margin = &short
		c.rationale = fmt.Sprintf("%s = %g is below the integer %d by %.3g", name, r, minInt, short)
	case off > tol:
		short := off - tol
		c.margin = &short
		c.rationale = fmt.Sprintf("%s = %g is %.3g from %g, beyond tolerance %g by %.3g", name, r, off, nearest, tol, short)
	default:
		c.matched = true
		c.rationale = fmt.Sprintf("%s = %g is within %g of the integer %g", name, r, tol, nearest)
	}
	return c
}

func evalExists(p Predicate, e *catalog.Entity) check {
	for _, name := range p.Properties {
		if q := e.Quantity(name); q.Present() {
			return check{matched: true, property: name, observed: q.String(), rationale: fmt.Sprintf("%s is present", name)}
		}
	}
	return check{rationale: fmt.Sprintf("none of %s present", strings.Join(p.Properties, ", "))}
}

func evalPattern(p Predicate, e *catalog.Entity) check {
	needle := strings.ToLower(p.Pattern)
	var seen []string
	for _, name := range p.Properties {
		q := e.Quantity(name)
		if !q.Present() {
			continue
		}
		hay := strings.ToLower(q.Raw + " " + q.Annotation)
		if strings.Contains(hay, needle) {
			return check{matched: true, property: name, observed: q.Raw, rationale: fmt.Sprintf("%s mentions %q", name, p.Pattern)}
		}
		seen = append(seen, name)
	}
	if len(seen) == 0 {
		return check{rationale: fmt.Sprintf("none of %s present", strings.Join(p.Properties, ", "))}
	}
	return check{property: seen[0], rationale: fmt.Sprintf("%s does not mention %q", strings.Join(seen, ", "), p.Pattern)}
}

func evalOneOf(p Predicate, e *catalog.Entity) check {
	for _, name := range p.Properties {
		q := e.Quantity(name)
		if !q.Present() {
			continue
		}
		for _, want := range p.Values {
			if sameValue(q, units.Parse(want)) {
				return check{matched: true, property: name, observed: q.Raw, rationale: fmt.Sprintf("%s = %s is one of %s", name, q.Raw, strings.Join(p.Values, ", "))}
			}
		}
		return check{property: name, observed: q.Raw, rationale: fmt.Sprintf("%s = %s is not one of %s", name, q.Raw, strings.Join(p.Values, ", "))}
	}
	return check{rationale: fmt.Sprintf("none of %s present", strings.Join(p.Properties, ", "))}
}

// sameValue compares numerically when both sides parse as numbers in the same
// dimension, otherwise as case-insensitive text.
func sameValue(got, want units.Quantity) bool {
	gv, gd, gok := got.Base()
	wv, wd, wok := want.Base()
	if gok && wok && (gd == wd || wd == units.DimNone) {
		scale := math.Max(math.Abs(gv), math.Abs(wv))
		return math.Abs(gv-wv) <= 1e-9*math.Max(scale, 1e-300)
	}
	return strings.EqualFold(strings.TrimSpace(got.Raw), strings.TrimSpace(want.Raw))
}

func (rs *RuleSet) evalNameHint(r Rule, e *catalog.Entity) check {
	ac := rs.automata[r.ID]
	for _, name := range e.PropertyNames() {
		q := e.Quantity(name)
		if !q.Present() {
			continue
		}
		hay := []byte(strings.ToLower(name))
		if matches := ac.FindAllOverlapping(hay); len(matches) > 0 {
			term := string(hay[matches[0].Start:matches[0].End])
			return check{matched: true, property: name, observed: q.String(), rationale: fmt.Sprintf("property %s suggests %q", name, term)}
		}
	}
	return check{rationale: fmt.Sprintf("no property name contains %s", strings.Join(r.Predicate.Terms, ", "))}
}

func evalScale(p Predicate, e *catalog.Entity) check {
	for _, s := range p.Scales {
		if scale, _ := catalog.ParseScale(s); scale == e.Scale {
			return check{matched: true, observed: string(e.Scale), rationale: fmt.Sprintf("scale %s is one of %s", e.Scale, strings.Join(p.Scales, ", "))}
		}
	}
	return check{observed: string(e.Scale), rationale: fmt.Sprintf("scale %s is not one of %s", e.Scale, strings.Join(p.Scales, ", "))}
}

func formatLimit(v float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("%g %s", v, unit)
}

func formatShort(v float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%.3g", v)
	}
	return fmt.Sprintf("%.3g %s", v, unit)
}

func dimensionName(d units.Dimension) string {
	if d == units.DimNone {
		return "plain number"
	}
	if d.IsOpaque() {
		return "quantity in " + d.BaseUnit()
	}
	return string(d)
}
