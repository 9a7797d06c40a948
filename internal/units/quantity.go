// Package units turns heterogeneous physical property values ("1.5 × 10^12 M☉",
// "220 km/s", "6–8 µm") into a typed Quantity and converts quantities that
// share a physical dimension to a common SI base unit.
package units

import (
	"fmt"
	"strings"
)

// Kind tags which branch of the Quantity union is populated.
type Kind int

const (
	// KindMissing marks a property that has no value at all.
	KindMissing Kind = iota
	// KindNumber marks a property with a parsed numeric value.
	KindNumber
	// KindText marks a property that is present but holds no numeric token.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "number":
		*k = KindNumber
	case "text":
		*k = KindText
	case "missing":
		*k = KindMissing
	default:
		return fmt.Errorf("unknown quantity kind %q", text)
	}
	return nil
}

// Quantity is the normalized form of one raw property value. Downstream
// components consume only this union, never the raw text.
type Quantity struct {
	Kind Kind `json:"kind"`
	// Value is the number as written, or the midpoint of a range.
	Value float64 `json:"value,omitempty"`
	// Spread is the half-width of a range expression.
	Spread  float64 `json:"spread,omitempty"`
	IsRange bool    `json:"is_range,omitempty"`
	// Unit is the canonical unit tag; compound units stay whole ("km/s").
	Unit string `json:"unit,omitempty"`
	// Annotation keeps parenthetical qualifiers and approximation markers.
	Annotation string `json:"annotation,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

// Missing returns the absent quantity.
func Missing() Quantity {
	return Quantity{Kind: KindMissing}
}

// Text returns a present-as-text quantity.
func Text(raw string) Quantity {
	return Quantity{Kind: KindText, Raw: raw}
}

// Number returns a plain numeric quantity in the given unit.
func Number(value float64, unit string) Quantity {
	return Quantity{Kind: KindNumber, Value: value, Unit: CanonicalUnit(unit)}
}

// IsNumber reports whether the quantity carries a numeric value.
func (q Quantity) IsNumber() bool {
	return q.Kind == KindNumber
}

// Present reports whether the property exists, numeric or text.
func (q Quantity) Present() bool {
	return q.Kind != KindMissing
}

// Dimension returns the physical dimension of the quantity's unit.
// Unit-less numbers report DimNone; unknown unit tags report an opaque
// dimension that only matches the identical tag.
func (q Quantity) Dimension() Dimension {
	if q.Unit == "" {
		return DimNone
	}
	if conv, ok := Lookup(q.Unit); ok {
		return conv.Dimension
	}
	return opaqueDimension(q.Unit)
}

// Base converts the value to the SI base unit of its dimension. The boolean
// is false for non-numeric quantities. Unknown units pass through unchanged.
func (q Quantity) Base() (float64, Dimension, bool) {
	if q.Kind != KindNumber {
		return 0, DimNone, false
	}
	if q.Unit == "" {
		return q.Value, DimNone, true
	}
	conv, ok := Lookup(q.Unit)
	if !ok {
		return q.Value, opaqueDimension(q.Unit), true
	}
	return conv.ToBase(q.Value), conv.Dimension, true
}

// BaseSpread converts the range half-width to base units (offsets do not apply).
func (q Quantity) BaseSpread() float64 {
	if conv, ok := Lookup(q.Unit); ok {
		return q.Spread * conv.Factor
	}
	return q.Spread
}

// String renders the quantity for rationale text and CLI output.
func (q Quantity) String() string {
	switch q.Kind {
	case KindMissing:
		return "missing"
	case KindText:
		return fmt.Sprintf("%q", q.Raw)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%g", q.Value)
	if q.IsRange {
		fmt.Fprintf(&b, " ± %g", q.Spread)
	}
	if q.Unit != "" {
		b.WriteString(" ")
		b.WriteString(q.Unit)
	}
	return b.String()
}
