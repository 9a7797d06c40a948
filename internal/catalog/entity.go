package catalog

import (
	"sort"

	"github.com/DrNicoArt/scaleviewer/internal/units"
)

// Entity is one physical object of the catalog. It is never mutated after
// construction; edits produce a new Entity inside a new catalog version.
type Entity struct {
	ID        string         `json:"id"`
	Scale     Scale          `json:"scale"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	Tags      []string       `json:"tags,omitempty"`
	Directory string         `json:"catalog,omitempty"`

	// Quantities holds every property of Data normalized once at load.
	Quantities map[string]units.Quantity `json:"-"`
}

// NewEntity builds an entity and normalizes its properties. The data map is
// copied so the caller cannot mutate the entity afterwards.
func NewEntity(id string, scale Scale, name string, data map[string]any) *Entity {
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}
	return &Entity{
		ID:         id,
		Scale:      scale,
		Name:       name,
		Data:       copied,
		Quantities: units.ParseAll(copied),
	}
}

// Quantity returns the normalized property, Missing if the entity lacks it.
func (e *Entity) Quantity(name string) units.Quantity {
	if q, ok := e.Quantities[name]; ok {
		return q
	}
	return units.Missing()
}

// PropertyNames returns the entity's property names sorted.
func (e *Entity) PropertyNames() []string {
	names := make([]string, 0, len(e.Data))
	for name := range e.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTag reports whether the entity carries tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// withProperties returns a copy of e with updates applied. A nil value
// removes the property.
func (e *Entity) withProperties(updates map[string]any) *Entity {
	data := make(map[string]any, len(e.Data)+len(updates))
	for k, v := range e.Data {
		data[k] = v
	}
	for k, v := range updates {
		if v == nil {
			delete(data, k)
			continue
		}
		data[k] = v
	}
	next := NewEntity(e.ID, e.Scale, e.Name, data)
	next.Tags = append([]string(nil), e.Tags...)
	next.Directory = e.Directory
	return next
}
