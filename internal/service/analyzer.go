// Package service binds the catalog store, feature extractor, similarity
// engine and rule set behind one entry point shared by the API and CLI.
package service

import (
	"context"
	"sync"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/export"
	"github.com/DrNicoArt/scaleviewer/internal/features"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
	"github.com/DrNicoArt/scaleviewer/internal/rules"
	"github.com/DrNicoArt/scaleviewer/internal/similarity"
	"github.com/DrNicoArt/scaleviewer/internal/store"
)

// Analyzer runs every analysis against one catalog snapshot per call.
type Analyzer struct {
	catalogs   *catalog.Store
	extractor  *features.Extractor
	similarity *similarity.Engine
	archive    *store.Archive
	vecVersion string

	mu      sync.RWMutex
	ruleSet *rules.RuleSet
}

// NewAnalyzer wires the components together. A nil rule set falls back to
// the embedded default; a nil archive disables archiving.
func NewAnalyzer(catalogs *catalog.Store, rs *rules.RuleSet, archive *store.Archive) *Analyzer {
	if rs == nil {
		rs = rules.Default()
	}
	x := features.NewExtractor()
	a := &Analyzer{
		catalogs:   catalogs,
		extractor:  x,
		similarity: similarity.NewEngine(x),
		archive:    archive,
		ruleSet:    rs,
	}
	if archive != nil {
		v, err := archive.VecVersion(context.Background())
		if err != nil {
			logger.Warnw("sqlite-vec unavailable in archive", logger.FieldError, err)
		}
		a.vecVersion = v
	}
	catalogs.Subscribe(func(old, current *catalog.Catalog) {
		x.Invalidate()
	})
	return a
}

// Catalog returns the active snapshot.
func (a *Analyzer) Catalog() *catalog.Catalog {
	return a.catalogs.Current()
}

// RuleSet returns the active rule set.
func (a *Analyzer) RuleSet() *rules.RuleSet {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ruleSet
}

// SetRuleSet swaps the rule set used by later evaluations.
func (a *Analyzer) SetRuleSet(rs *rules.RuleSet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ruleSet = rs
	logger.Infow("Rule set replaced", "rule_set", rs.Name, logger.FieldCount, len(rs.Rules))
}

// Status summarizes the active catalog and rule set.
type Status struct {
	CatalogVersion uint64                `json:"catalog_version"`
	Source         string                `json:"source,omitempty"`
	Entities       int                   `json:"entities"`
	Scales         map[catalog.Scale]int `json:"scales"`
	Tags           []string              `json:"tags"`
	Directories    []string              `json:"directories"`
	Properties     int                   `json:"properties"`
	RuleSet        string                `json:"rule_set"`
	Rules          int                   `json:"rules"`
	Archive        bool                  `json:"archive"`
	// VecVersion is the sqlite-vec version loaded into the archive.
	VecVersion string `json:"vec_version,omitempty"`
}

// Status reports what the analyzer is currently serving.
func (a *Analyzer) Status() Status {
	cat := a.Catalog()
	rs := a.RuleSet()
	return Status{
		CatalogVersion: cat.Version(),
		Source:         a.catalogs.SourceName(),
		Entities:       cat.Len(),
		Scales:         cat.ScaleCounts(),
		Tags:           cat.Tags(),
		Directories:    cat.Directories(),
		Properties:     len(cat.PropertyNames()),
		RuleSet:        rs.Name,
		Rules:          len(rs.Rules),
		Archive:        a.archive != nil,
		VecVersion:     a.vecVersion,
	}
}

// Reload re-reads the catalog source.
func (a *Analyzer) Reload(ctx context.Context) (*catalog.Catalog, error) {
	return a.catalogs.Reload(ctx)
}

// Filter narrows an entity listing. Empty fields match everything.
type Filter struct {
	Scale     string
	Tag       string
	Directory string
}

// Entities lists the entities of the active snapshot matching f, by id.
func (a *Analyzer) Entities(f Filter) ([]*catalog.Entity, uint64, error) {
	cat := a.Catalog()
	var scale catalog.Scale
	if f.Scale != "" {
		s, err := catalog.ParseScale(f.Scale)
		if err != nil {
			return nil, 0, err
		}
		scale = s
	}
	out := make([]*catalog.Entity, 0, cat.Len())
	for _, e := range cat.Entities() {
		if scale != "" && e.Scale != scale {
			continue
		}
		if f.Tag != "" && !e.HasTag(f.Tag) {
			continue
		}
		if f.Directory != "" && e.Directory != f.Directory {
			continue
		}
		out = append(out, e)
	}
	return out, cat.Version(), nil
}

// Entity looks up one entity in the active snapshot.
func (a *Analyzer) Entity(id string) (*catalog.Entity, uint64, error) {
	cat := a.Catalog()
	e, ok := cat.Get(id)
	if !ok {
		return nil, cat.Version(), errors.NewNotFoundError("entity %q", id)
	}
	return e, cat.Version(), nil
}

// EditProperties applies updates and returns the edited entity from the new
// version.
func (a *Analyzer) EditProperties(id string, updates map[string]any) (*catalog.Entity, uint64, error) {
	cat, err := a.catalogs.EditProperties(id, updates)
	if err != nil {
		return nil, 0, err
	}
	e, _ := cat.Get(id)
	return e, cat.Version(), nil
}

// Features extracts the feature matrix of the active snapshot.
func (a *Analyzer) Features(ctx context.Context, schema features.Schema) (*features.Matrix, error) {
	return a.extractor.Extract(ctx, a.Catalog(), schema)
}

// Profile reports how one property is populated.
func (a *Analyzer) Profile(p features.Property) (features.PropertyProfile, error) {
	return a.extractor.Profile(a.Catalog(), p)
}

// Correlate relates two properties across the active snapshot.
func (a *Analyzer) Correlate(x, y features.Property) (features.Correlation, error) {
	return features.Correlate(a.Catalog(), x, y)
}

// FindSimilar ranks entities against req.QueryID.
func (a *Analyzer) FindSimilar(ctx context.Context, req similarity.Request) (similarity.Result, error) {
	return a.similarity.FindSimilar(ctx, a.Catalog(), req)
}

// Compare lines up two entities property by property.
func (a *Analyzer) Compare(leftID, rightID string, names []string) (similarity.Comparison, error) {
	return a.similarity.Compare(a.Catalog(), leftID, rightID, names)
}

// Candidacy evaluates one entity.
func (a *Analyzer) Candidacy(id string, threshold float64) (rules.Report, error) {
	cat := a.Catalog()
	e, ok := cat.Get(id)
	if !ok {
		return rules.Report{}, errors.NewNotFoundError("entity %q", id)
	}
	rep, err := rules.Evaluate(e, a.RuleSet(), threshold)
	if err != nil {
		return rules.Report{}, err
	}
	rep.CatalogVersion = cat.Version()
	return rep, nil
}

// Candidates evaluates every entity, best first. With onlyCandidates set the
// reports below the threshold are dropped.
func (a *Analyzer) Candidates(ctx context.Context, threshold float64, onlyCandidates bool) ([]rules.Report, uint64, error) {
	cat := a.Catalog()
	reports, err := rules.EvaluateAll(ctx, cat, a.RuleSet(), threshold)
	if err != nil {
		return nil, 0, err
	}
	if onlyCandidates {
		reports = rules.Candidates(reports)
	}
	return reports, cat.Version(), nil
}

// Export is a flattened sweep, with its archive run when archiving is on.
type Export struct {
	CatalogVersion uint64          `json:"catalog_version"`
	Records        []export.Record `json:"records"`
	Run            *store.Run      `json:"run,omitempty"`
}

// ExportCandidates flattens a candidacy sweep and archives it.
func (a *Analyzer) ExportCandidates(ctx context.Context, threshold float64, onlyCandidates bool) (Export, error) {
	cat := a.Catalog()
	reports, err := rules.EvaluateAll(ctx, cat, a.RuleSet(), threshold)
	if err != nil {
		return Export{}, err
	}
	if onlyCandidates {
		reports = rules.Candidates(reports)
	}
	return a.archiveRecords(ctx, export.KindCandidacy, cat.Version(), export.FromReports(cat, reports))
}

// ExportSimilar flattens a similarity ranking and archives it.
func (a *Analyzer) ExportSimilar(ctx context.Context, req similarity.Request) (Export, error) {
	cat := a.Catalog()
	res, err := a.similarity.FindSimilar(ctx, cat, req)
	if err != nil {
		return Export{}, err
	}
	return a.archiveRecords(ctx, export.KindSimilarity, cat.Version(), export.FromSimilarity(cat, res))
}

// ExportFeatures flattens the feature matrix and archives it.
func (a *Analyzer) ExportFeatures(ctx context.Context, schema features.Schema) (Export, error) {
	cat := a.Catalog()
	m, err := a.extractor.Extract(ctx, cat, schema)
	if err != nil {
		return Export{}, err
	}
	return a.archiveRecords(ctx, export.KindFeatures, cat.Version(), export.FromMatrix(cat, m))
}

func (a *Analyzer) archiveRecords(ctx context.Context, kind export.Kind, version uint64, records []export.Record) (Export, error) {
	out := Export{CatalogVersion: version, Records: records}
	if a.archive == nil {
		return out, nil
	}
	run, err := a.archive.Save(ctx, kind, version, records)
	if err != nil {
		return Export{}, errors.Wrap(err, "failed to archive export")
	}
	out.Run = &run
	return out, nil
}

// Runs lists archived exports.
func (a *Analyzer) Runs(ctx context.Context) ([]store.Run, error) {
	if a.archive == nil {
		return nil, errors.NewInvalidRequestError("export archive is not configured")
	}
	return a.archive.Runs(ctx)
}

// Run returns the records of one archived export.
func (a *Analyzer) Run(ctx context.Context, id string) ([]export.Record, error) {
	if a.archive == nil {
		return nil, errors.NewInvalidRequestError("export archive is not configured")
	}
	return a.archive.Records(ctx, id)
}
