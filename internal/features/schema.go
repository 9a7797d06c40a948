// Package features turns catalog entities into fixed-schema numeric vectors
// with a presence mask. Values are converted to base units, optionally
// log-scaled, and scaled against catalog-wide statistics of one catalog
// version.
package features

import (
	"strings"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

// Scaling selects how column values are standardized.
type Scaling string

const (
	// ScalingZScore subtracts the mean and divides by the standard deviation.
	ScalingZScore Scaling = "zscore"
	// ScalingMinMax maps the column range onto [0, 1].
	ScalingMinMax Scaling = "minmax"
)

// ParseScaling accepts "zscore", "standard", "minmax" or "range".
func ParseScaling(name string) (Scaling, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "zscore", "z-score", "standard":
		return ScalingZScore, nil
	case "minmax", "min-max", "range":
		return ScalingMinMax, nil
	}
	return "", errors.NewInvalidRequestError("unknown scaling %q (expected zscore or minmax)", name)
}

// Property is one comparison dimension.
type Property struct {
	Name     string   `json:"name"`
	LogScale bool     `json:"log_scale,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
}

// candidates lists the property names tried in resolution order.
func (p Property) candidates() []string {
	return append([]string{p.Name}, p.Aliases...)
}

func (p Property) cacheKey() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.LogScale {
		b.WriteString("|log")
	}
	for _, a := range p.Aliases {
		b.WriteString("|")
		b.WriteString(a)
	}
	return b.String()
}

// Schema is the ordered list of dimensions for one query. Its length fixes
// the vector length regardless of any entity's completeness.
type Schema struct {
	Properties []Property `json:"properties"`
	Scaling    Scaling    `json:"scaling"`
}

// ParseSchema builds a schema from "name" or "name:log" items.
func ParseSchema(items []string, scaling Scaling) (Schema, error) {
	s := Schema{Scaling: scaling}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, flag, _ := strings.Cut(item, ":")
		p := Property{Name: strings.TrimSpace(name)}
		switch strings.ToLower(strings.TrimSpace(flag)) {
		case "":
		case "log", "log10":
			p.LogScale = true
		default:
			return Schema{}, errors.NewInvalidRequestError("unknown transform %q for property %q", flag, p.Name)
		}
		s.Properties = append(s.Properties, p)
	}
	return s, s.Validate()
}

// Validate rejects empty schemas, blank and duplicate names and unknown scaling.
func (s Schema) Validate() error {
	if len(s.Properties) == 0 {
		return errors.NewInvalidRequestError("schema has no properties")
	}
	switch s.Scaling {
	case ScalingZScore, ScalingMinMax:
	default:
		return errors.NewInvalidRequestError("unknown scaling %q (expected zscore or minmax)", s.Scaling)
	}
	seen := make(map[string]bool, len(s.Properties))
	for _, p := range s.Properties {
		if strings.TrimSpace(p.Name) == "" {
			return errors.NewInvalidRequestError("schema property with empty name")
		}
		if seen[p.Name] {
			return errors.NewInvalidRequestError("duplicate schema property %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Names returns the property names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	return names
}

// Len is the vector length the schema produces.
func (s Schema) Len() int {
	return len(s.Properties)
}

// AliasGroups gathers property names that describe the same quantity under
// different catalog conventions.
var AliasGroups = map[string][]string{
	"mass":        {"mass", "stellar_mass", "mass_mean", "rest_mass"},
	"radius":      {"radius", "mean_radius", "diameter", "disk_diameter", "comoving_diameter", "soma_diameter"},
	"energy":      {"energy", "luminosity", "first_ionization_energy"},
	"time":        {"age", "orbital_period", "lifetime", "life_expectancy_global"},
	"temperature": {"temperature", "mean_temperature", "temperature_anisotropy_rms"},
}

// DefaultAliases returns the other members of name's alias group.
func DefaultAliases(name string) []string {
	for _, group := range AliasGroups {
		for _, member := range group {
			if member != name {
				continue
			}
			out := make([]string, 0, len(group)-1)
			for _, other := range group {
				if other != name {
					out = append(out, other)
				}
			}
			return out
		}
	}
	return nil
}

// WithDefaultAliases fills Aliases from AliasGroups for properties that
// declare none.
func (s Schema) WithDefaultAliases() Schema {
	out := Schema{Scaling: s.Scaling, Properties: make([]Property, len(s.Properties))}
	for i, p := range s.Properties {
		if len(p.Aliases) == 0 {
			p.Aliases = DefaultAliases(p.Name)
		}
		out.Properties[i] = p
	}
	return out
}
