// Package catalog holds the versioned object catalog. A Catalog is an
// immutable snapshot; the Store publishes a new snapshot on every reload or
// edit so queries always run against one consistent version.
package catalog

import (
	"sort"
)

// Catalog is one immutable version of the object collection.
type Catalog struct {
	version  uint64
	entities []*Entity
	byID     map[string]*Entity
	byScale  map[Scale][]*Entity
	byTag    map[string][]*Entity
	byDir    map[string][]*Entity
	props    map[string]int
}

// New builds a catalog version from entities. Entities with a duplicate id
// or an invalid scale are dropped; the first occurrence of an id wins.
func New(version uint64, entities []*Entity) *Catalog {
	c := &Catalog{
		version: version,
		byID:    make(map[string]*Entity, len(entities)),
		byScale: make(map[Scale][]*Entity),
		byTag:   make(map[string][]*Entity),
		byDir:   make(map[string][]*Entity),
		props:   make(map[string]int),
	}
	for _, e := range entities {
		if e == nil || e.ID == "" || !e.Scale.Valid() {
			continue
		}
		if _, dup := c.byID[e.ID]; dup {
			continue
		}
		c.byID[e.ID] = e
		c.entities = append(c.entities, e)
	}
	sort.Slice(c.entities, func(i, j int) bool {
		return c.entities[i].ID < c.entities[j].ID
	})
	for _, e := range c.entities {
		c.byScale[e.Scale] = append(c.byScale[e.Scale], e)
		for _, tag := range e.Tags {
			c.byTag[tag] = append(c.byTag[tag], e)
		}
		if e.Directory != "" {
			c.byDir[e.Directory] = append(c.byDir[e.Directory], e)
		}
		for name, q := range e.Quantities {
			if q.Present() {
				c.props[name]++
			}
		}
	}
	return c
}

// Version is the snapshot's version stamp.
func (c *Catalog) Version() uint64 {
	return c.version
}

// Len returns the number of entities.
func (c *Catalog) Len() int {
	return len(c.entities)
}

// Get looks up an entity by id.
func (c *Catalog) Get(id string) (*Entity, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Entities returns all entities ordered by id. The slice must not be modified.
func (c *Catalog) Entities() []*Entity {
	return c.entities
}

// ByScale returns the entities of one scale ordered by id.
func (c *Catalog) ByScale(s Scale) []*Entity {
	return c.byScale[s]
}

// ByTag returns the entities carrying a user-defined tag.
func (c *Catalog) ByTag(tag string) []*Entity {
	return c.byTag[tag]
}

// ByDirectory returns the entities of a user-defined directory.
func (c *Catalog) ByDirectory(dir string) []*Entity {
	return c.byDir[dir]
}

// Tags returns every tag in use, sorted.
func (c *Catalog) Tags() []string {
	return sortedKeys(c.byTag)
}

// Directories returns every directory in use, sorted.
func (c *Catalog) Directories() []string {
	return sortedKeys(c.byDir)
}

// ScaleCounts reports how many entities each scale holds.
func (c *Catalog) ScaleCounts() map[Scale]int {
	counts := make(map[Scale]int, len(c.byScale))
	for s, list := range c.byScale {
		counts[s] = len(list)
	}
	return counts
}

// PropertyNames returns every property present on at least one entity.
func (c *Catalog) PropertyNames() []string {
	return sortedKeys(c.props)
}

// HasProperty reports whether any entity has the property present.
func (c *Catalog) HasProperty(name string) bool {
	return c.props[name] > 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
