package models

// SchemaRequest names the comparison dimensions. Items are "name" or
// "name:log". Omitted fields are filled from server configuration.
type SchemaRequest struct {
	Schema  []string `json:"schema,omitempty"`
	Scaling string   `json:"scaling,omitempty"`
	Aliases *bool    `json:"aliases,omitempty"`
}

// FeaturesRequest for /api/features and /api/export/features
type FeaturesRequest struct {
	SchemaRequest
	Format string `json:"format,omitempty"`
}

// SimilarRequest for /api/similar and /api/export/similar
type SimilarRequest struct {
	SchemaRequest
	QueryID string `json:"query_id"`
	TopN    *int   `json:"top_n,omitempty"`
	Metric  string `json:"metric,omitempty"`
	Format  string `json:"format,omitempty"`
}

// CompareRequest for /api/compare
type CompareRequest struct {
	Left       string   `json:"left"`
	Right      string   `json:"right"`
	Properties []string `json:"properties,omitempty"`
}

// CandidacyRequest for /api/candidacy/{id}
type CandidacyRequest struct {
	Threshold *float64 `json:"threshold,omitempty"`
}

// CandidatesRequest for /api/candidates and /api/export/candidates
type CandidatesRequest struct {
	Threshold      *float64 `json:"threshold,omitempty"`
	OnlyCandidates bool     `json:"only_candidates,omitempty"`
	// Format selects the export encoding: json (default) or csv
	Format string `json:"format,omitempty"`
}

// EditPropertiesRequest for PATCH /api/entities/{id}/properties.
// A null value removes the property.
type EditPropertiesRequest struct {
	Properties map[string]any `json:"properties"`
}
