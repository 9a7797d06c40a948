package features

import (
	"encoding/json"
	"math"
)

// Vector is one entity's schema-ordered feature values. Values[i] is only
// meaningful where Present[i] is true; absent slots hold NaN and encode as
// JSON null.
type Vector struct {
	EntityID string
	Values   []float64
	Present  []bool
}

func newVector(id string, n int) Vector {
	v := Vector{EntityID: id, Values: make([]float64, n), Present: make([]bool, n)}
	for i := range v.Values {
		v.Values[i] = math.NaN()
	}
	return v
}

// PresentCount returns the number of defined dimensions.
func (v Vector) PresentCount() int {
	n := 0
	for _, p := range v.Present {
		if p {
			n++
		}
	}
	return n
}

// Overlap returns the indices defined in both vectors.
func (v Vector) Overlap(other Vector) []int {
	var idx []int
	for i := range v.Present {
		if i < len(other.Present) && v.Present[i] && other.Present[i] {
			idx = append(idx, i)
		}
	}
	return idx
}

type vectorJSON struct {
	EntityID string     `json:"entity_id"`
	Values   []*float64 `json:"values"`
	Present  []bool     `json:"present"`
}

// MarshalJSON encodes absent values as null.
func (v Vector) MarshalJSON() ([]byte, error) {
	out := vectorJSON{EntityID: v.EntityID, Values: make([]*float64, len(v.Values)), Present: v.Present}
	for i := range v.Values {
		if v.Present[i] {
			val := v.Values[i]
			out.Values[i] = &val
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores NaN for null values.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var in vectorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = newVector(in.EntityID, len(in.Values))
	for i, val := range in.Values {
		if val != nil {
			v.Values[i] = *val
			v.Present[i] = true
		}
	}
	return nil
}

// Matrix holds the vectors of every entity of one catalog version under one
// schema, ordered by entity id.
type Matrix struct {
	CatalogVersion uint64   `json:"catalog_version"`
	Schema         Schema   `json:"schema"`
	Stats          []Stats  `json:"stats"`
	Vectors        []Vector `json:"vectors"`

	index map[string]int
}

// Vector returns the row of an entity.
func (m *Matrix) Vector(id string) (Vector, bool) {
	i, ok := m.index[id]
	if !ok {
		return Vector{}, false
	}
	return m.Vectors[i], true
}

// Eligible returns the rows with at least one present dimension.
func (m *Matrix) Eligible() []Vector {
	out := make([]Vector, 0, len(m.Vectors))
	for _, v := range m.Vectors {
		if v.PresentCount() > 0 {
			out = append(out, v)
		}
	}
	return out
}
