package models

import (
	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error      string   `json:"error"`
	Hints      []string `json:"hints,omitempty"`
	Properties []string `json:"properties,omitempty"` // schema mismatch
	Metric     string   `json:"metric,omitempty"`     // invalid metric
}

// HealthResponse for /health
type HealthResponse struct {
	Status         string `json:"status"`
	CatalogVersion uint64 `json:"catalog_version"`
}

// ReloadResponse for /api/catalog/reload
type ReloadResponse struct {
	CatalogVersion uint64 `json:"catalog_version"`
	Entities       int    `json:"entities"`
}

// EntitySummary is one row of an entity listing
type EntitySummary struct {
	ID         string        `json:"id"`
	Scale      catalog.Scale `json:"scale"`
	Name       string        `json:"name"`
	Tags       []string      `json:"tags,omitempty"`
	Catalog    string        `json:"catalog,omitempty"`
	Properties int           `json:"properties"`
}

// NewEntitySummary condenses an entity for listings
func NewEntitySummary(e *catalog.Entity) EntitySummary {
	return EntitySummary{
		ID:         e.ID,
		Scale:      e.Scale,
		Name:       e.Name,
		Tags:       e.Tags,
		Catalog:    e.Directory,
		Properties: len(e.Data),
	}
}

// EntityListResponse for /api/entities
type EntityListResponse struct {
	CatalogVersion uint64          `json:"catalog_version"`
	Count          int             `json:"count"`
	Entities       []EntitySummary `json:"entities"`
}

// EntityResponse for /api/entities/{id}
type EntityResponse struct {
	CatalogVersion uint64          `json:"catalog_version"`
	Entity         *catalog.Entity `json:"entity"`
	// Normalized is the parsed form of every property, keyed by name
	Normalized map[string]string `json:"normalized"`
}

// NewEntityResponse renders an entity with its normalized properties
func NewEntityResponse(e *catalog.Entity, version uint64) EntityResponse {
	norm := make(map[string]string, len(e.Quantities))
	for name, q := range e.Quantities {
		norm[name] = q.String()
	}
	return EntityResponse{CatalogVersion: version, Entity: e, Normalized: norm}
}

// NormalizeResponse for /api/normalize
type NormalizeResponse struct {
	Quantity  units.Quantity `json:"quantity"`
	Display   string         `json:"display"`
	Base      *float64       `json:"base,omitempty"`
	BaseUnit  string         `json:"base_unit,omitempty"`
	Dimension string         `json:"dimension,omitempty"`
	Problem   string         `json:"problem,omitempty"`
}

// NewNormalizeResponse explains one parsed value
func NewNormalizeResponse(q units.Quantity, parseErr error) NormalizeResponse {
	out := NormalizeResponse{Quantity: q, Display: q.String()}
	if v, dim, ok := q.Base(); ok {
		out.Base = &v
		out.Dimension = string(dim)
		out.BaseUnit = dim.BaseUnit()
	}
	if parseErr != nil {
		out.Problem = parseErr.Error()
	}
	return out
}
