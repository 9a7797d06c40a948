// Package similarity ranks catalog entities by their feature-vector
// similarity to a query entity, over the dimensions both entities define.
package similarity

import (
	"context"
	"sort"
	"time"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/features"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// Request carries every tunable of one query.
type Request struct {
	QueryID string          `json:"query_id"`
	Schema  features.Schema `json:"schema"`
	TopN    int             `json:"top_n"`
	Metric  string          `json:"metric"`
}

// Match is one ranked candidate. Overlap counts the dimensions the score was
// computed over.
type Match struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Scale   catalog.Scale `json:"scale"`
	Score   float64       `json:"score"`
	Overlap int           `json:"overlap"`
}

// Result is a ranked list bound to the catalog version it was computed from.
type Result struct {
	QueryID        string   `json:"query_id"`
	Metric         Metric   `json:"metric"`
	CatalogVersion uint64   `json:"catalog_version"`
	Schema         []string `json:"schema"`
	Matches        []Match  `json:"matches"`
	// Notice is set when the catalog had too few eligible entities; the
	// match list is then empty rather than an error being returned.
	Notice *errors.EmptyCatalogError `json:"notice,omitempty"`
}

// Engine answers similarity queries. It holds no index: every query scans
// the snapshot it is given, so catalog edits need no rebuild.
type Engine struct {
	extractor *features.Extractor
}

// NewEngine creates an engine sharing the extractor's statistics cache.
func NewEngine(extractor *features.Extractor) *Engine {
	if extractor == nil {
		extractor = features.NewExtractor()
	}
	return &Engine{extractor: extractor}
}

// FindSimilar ranks the entities of cat against req.QueryID. Cosine ranks
// descending, euclidean ascending; ties go to the smaller id. Candidates
// sharing no present dimension with the query are left out. A cancelled
// context aborts the scan and discards partial results.
func (e *Engine) FindSimilar(ctx context.Context, cat *catalog.Catalog, req Request) (Result, error) {
	start := time.Now()

	metric, err := ParseMetric(req.Metric)
	if err != nil {
		return Result{}, err
	}
	if req.TopN < 0 {
		return Result{}, errors.NewInvalidRequestError("top_n must be >= 0, got %d", req.TopN)
	}
	query, ok := cat.Get(req.QueryID)
	if !ok {
		return Result{}, errors.NewNotFoundError("entity %q", req.QueryID)
	}

	matrix, err := e.extractor.Extract(ctx, cat, req.Schema)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		QueryID:        query.ID,
		Metric:         metric,
		CatalogVersion: cat.Version(),
		Schema:         req.Schema.Names(),
		Matches:        []Match{},
	}

	eligible := matrix.Eligible()
	if len(eligible) < 2 {
		res.Notice = &errors.EmptyCatalogError{Eligible: len(eligible)}
		logger.Debugw("Similarity query has too few eligible entities",
			logger.FieldEntityID, query.ID,
			logger.FieldCount, len(eligible))
		return res, nil
	}
	if req.TopN == 0 {
		return res, nil
	}

	qv, _ := matrix.Vector(query.ID)
	for _, cand := range eligible {
		if err := ctx.Err(); err != nil {
			return Result{}, errors.NewCanceledError(err, "similarity sweep")
		}
		if cand.EntityID == query.ID {
			continue
		}
		overlap := qv.Overlap(cand)
		score, ok := metric.score(qv.Values, cand.Values, overlap)
		if !ok {
			continue
		}
		ent, _ := cat.Get(cand.EntityID)
		res.Matches = append(res.Matches, Match{
			ID:      ent.ID,
			Name:    ent.Name,
			Scale:   ent.Scale,
			Score:   score,
			Overlap: len(overlap),
		})
	}

	rank(res.Matches, metric)
	if len(res.Matches) > req.TopN {
		res.Matches = res.Matches[:req.TopN]
	}

	logger.Debugw("Similarity query complete",
		logger.FieldEntityID, query.ID,
		logger.FieldMetric, string(metric),
		logger.FieldCount, len(res.Matches),
		logger.FieldCatalogVersion, cat.Version(),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return res, nil
}

func rank(matches []Match, metric Metric) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			if metric.HigherIsBetter() {
				return a.Score > b.Score
			}
			return a.Score < b.Score
		}
		return a.ID < b.ID
	})
}
