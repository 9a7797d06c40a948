package features

import (
	"context"
	"sync"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// Extractor builds feature vectors. It caches column statistics for the
// catalog version it last saw; a request against any other version flushes
// the cache before computing, so no query mixes statistics of two versions.
type Extractor struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	stats   map[string]Stats
}

// NewExtractor creates an extractor with an empty statistics cache.
func NewExtractor() *Extractor {
	return &Extractor{stats: make(map[string]Stats)}
}

// Invalidate drops every cached statistic. Wire it to catalog change
// notifications so the flush happens before new queries arrive.
func (x *Extractor) Invalidate() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.catalog = nil
	x.stats = make(map[string]Stats)
}

// Stats returns the column statistics of p for cat.
func (x *Extractor) Stats(cat *catalog.Catalog, p Property) Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.statsLocked(cat, p)
}

func (x *Extractor) statsLocked(cat *catalog.Catalog, p Property) Stats {
	if x.catalog != cat {
		if x.catalog != nil {
			logger.Debugw("Flushing feature statistics",
				logger.FieldCatalogVersion, cat.Version())
		}
		x.catalog = cat
		x.stats = make(map[string]Stats)
	}
	key := p.cacheKey()
	if st, ok := x.stats[key]; ok {
		return st
	}
	st := computeStats(cat, p)
	x.stats[key] = st
	return st
}

// CheckSchema reports schema properties that no entity of cat carries,
// under their own name or any alias.
func CheckSchema(cat *catalog.Catalog, schema Schema) error {
	var missing []string
	for _, p := range schema.Properties {
		found := false
		for _, name := range p.candidates() {
			if cat.HasProperty(name) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	var err error = &errors.SchemaMismatchError{Properties: missing}
	for _, name := range missing {
		if guess, ok := closestName(name, cat.PropertyNames()); ok {
			err = errors.WithHintf(err, "did you mean %q instead of %q?", guess, name)
		}
	}
	return err
}

// Extract builds the vectors of every entity in cat. It checks ctx between
// entities and returns no partial matrix when cancelled.
func (x *Extractor) Extract(ctx context.Context, cat *catalog.Catalog, schema Schema) (*Matrix, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := CheckSchema(cat, schema); err != nil {
		return nil, err
	}

	stats := x.columnStats(cat, schema)
	m := &Matrix{
		CatalogVersion: cat.Version(),
		Schema:         schema,
		Stats:          stats,
		Vectors:        make([]Vector, 0, cat.Len()),
		index:          make(map[string]int, cat.Len()),
	}
	for _, e := range cat.Entities() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCanceledError(err, "feature extraction")
		}
		m.index[e.ID] = len(m.Vectors)
		m.Vectors = append(m.Vectors, buildVector(e, schema, stats))
	}
	return m, nil
}

// Vector builds a single entity's vector against catalog-wide statistics.
func (x *Extractor) Vector(cat *catalog.Catalog, schema Schema, id string) (Vector, error) {
	if err := schema.Validate(); err != nil {
		return Vector{}, err
	}
	e, ok := cat.Get(id)
	if !ok {
		return Vector{}, errors.NewNotFoundError("entity %q", id)
	}
	if err := CheckSchema(cat, schema); err != nil {
		return Vector{}, err
	}
	return buildVector(e, schema, x.columnStats(cat, schema)), nil
}

func (x *Extractor) columnStats(cat *catalog.Catalog, schema Schema) []Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	stats := make([]Stats, len(schema.Properties))
	for i, p := range schema.Properties {
		stats[i] = x.statsLocked(cat, p)
	}
	return stats
}

func buildVector(e *catalog.Entity, schema Schema, stats []Stats) Vector {
	v := newVector(e.ID, len(schema.Properties))
	for i, p := range schema.Properties {
		q, ok := resolve(e, p)
		if !ok {
			continue
		}
		raw, ok := transform(q, p, stats[i].Dimension)
		if !ok {
			continue
		}
		v.Values[i] = stats[i].Scale(raw, schema.Scaling)
		v.Present[i] = true
	}
	return v
}
