package catalog

import (
	"strings"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

// Scale is one of the nine canonical magnitude tiers.
type Scale string

const (
	ScaleQuantum   Scale = "quantum"
	ScaleAtomic    Scale = "atomic"
	ScaleMolecular Scale = "molecular"
	ScaleCellular  Scale = "cellular"
	ScaleHuman     Scale = "human"
	ScalePlanetary Scale = "planetary"
	ScaleStellar   Scale = "stellar"
	ScaleGalactic  Scale = "galactic"
	ScaleCosmic    Scale = "cosmic"
)

// Scales lists the tiers from smallest to largest.
var Scales = []Scale{
	ScaleQuantum,
	ScaleAtomic,
	ScaleMolecular,
	ScaleCellular,
	ScaleHuman,
	ScalePlanetary,
	ScaleStellar,
	ScaleGalactic,
	ScaleCosmic,
}

// ParseScale accepts a scale name in any case.
func ParseScale(name string) (Scale, error) {
	s := Scale(strings.ToLower(strings.TrimSpace(name)))
	if s.Valid() {
		return s, nil
	}
	return "", errors.WithHintf(
		errors.NewInvalidRequestError("unknown scale %q", name),
		"valid scales: %s", strings.Join(scaleNames(), ", "),
	)
}

// Valid reports whether s is one of the nine tiers.
func (s Scale) Valid() bool {
	return s.Rank() >= 0
}

// Rank orders scales from quantum (0) to cosmic (8); -1 for unknown.
func (s Scale) Rank() int {
	for i, known := range Scales {
		if s == known {
			return i
		}
	}
	return -1
}

func scaleNames() []string {
	names := make([]string, len(Scales))
	for i, s := range Scales {
		names[i] = string(s)
	}
	return names
}
