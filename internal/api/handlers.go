package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/DrNicoArt/scaleviewer/internal/config"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/export"
	"github.com/DrNicoArt/scaleviewer/internal/features"
	"github.com/DrNicoArt/scaleviewer/internal/models"
	"github.com/DrNicoArt/scaleviewer/internal/service"
	"github.com/DrNicoArt/scaleviewer/internal/similarity"
	"github.com/DrNicoArt/scaleviewer/internal/units"
)

type Handler struct {
	Analyzer *service.Analyzer
	// Defaults fill request tunables the client left out
	Defaults config.AnalysisConfig

	limiter    *rate.Limiter
	normalizer *units.Normalizer
}

func NewHandler(analyzer *service.Analyzer, cfg *config.Config) *Handler {
	h := &Handler{
		Analyzer:   analyzer,
		Defaults:   cfg.Analysis,
		normalizer: units.NewNormalizer(),
	}
	if cfg.Server.SweepRatePerSecond > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.Server.SweepRatePerSecond), cfg.Server.SweepBurst)
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/api/status", h.GetStatus)
	r.Post("/api/catalog/reload", h.ReloadCatalog)

	r.Get("/api/entities", h.ListEntities)
	r.Get("/api/entities/{id}", h.GetEntity)
	r.Patch("/api/entities/{id}/properties", h.EditProperties)

	r.Get("/api/properties/{name}", h.GetPropertyProfile)
	r.Get("/api/correlation", h.GetCorrelation)
	r.Get("/api/normalize", h.Normalize)

	r.Post("/api/features", h.Features)
	r.Post("/api/similar", h.FindSimilar)
	r.Post("/api/compare", h.Compare)
	r.Post("/api/candidacy/{id}", h.Candidacy)

	// Whole-catalog sweeps share a rate limit
	r.Group(func(r chi.Router) {
		r.Use(sweepLimiter(h.limiter))
		r.Post("/api/candidates", h.Candidates)
		r.Post("/api/export/candidates", h.ExportCandidates)
		r.Post("/api/export/similar", h.ExportSimilar)
		r.Post("/api/export/features", h.ExportFeatures)
	})

	r.Get("/api/runs", h.ListRuns)
	r.Get("/api/runs/{id}", h.GetRun)
}

// ============================================================================
// Health & catalog
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:         "ok",
		CatalogVersion: h.Analyzer.Catalog().Version(),
	})
}

// GetStatus reports the served catalog version and rule set
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Analyzer.Status())
}

// ReloadCatalog re-reads the catalog source and publishes a new version
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := h.Analyzer.Reload(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ReloadResponse{CatalogVersion: cat.Version(), Entities: cat.Len()})
}

// ListEntities lists entities, optionally filtered by scale, tag or catalog
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entities, version, err := h.Analyzer.Entities(service.Filter{
		Scale:     q.Get("scale"),
		Tag:       q.Get("tag"),
		Directory: q.Get("catalog"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := models.EntityListResponse{
		CatalogVersion: version,
		Count:          len(entities),
		Entities:       make([]models.EntitySummary, 0, len(entities)),
	}
	for _, e := range entities {
		resp.Entities = append(resp.Entities, models.NewEntitySummary(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	e, version, err := h.Analyzer.Entity(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewEntityResponse(e, version))
}

// EditProperties publishes a new catalog version with the updated properties
func (h *Handler) EditProperties(w http.ResponseWriter, r *http.Request) {
	var req models.EditPropertiesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, version, err := h.Analyzer.EditProperties(chi.URLParam(r, "id"), req.Properties)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewEntityResponse(e, version))
}

// ============================================================================
// Properties
// ============================================================================

// GetPropertyProfile reports coverage of one property; ?log=true profiles
// the log-scaled column
func (h *Handler) GetPropertyProfile(w http.ResponseWriter, r *http.Request) {
	p := features.Property{Name: chi.URLParam(r, "name"), LogScale: getBoolParam(r, "log")}
	if getBoolParam(r, "aliases") {
		p.Aliases = features.DefaultAliases(p.Name)
	}
	prof, err := h.Analyzer.Profile(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

// GetCorrelation relates ?x= and ?y=, each "name" or "name:log"
func (h *Handler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("x") == "" || q.Get("y") == "" {
		writeError(w, r, errors.NewInvalidRequestError("both x and y are required"))
		return
	}
	schema, err := features.ParseSchema([]string{q.Get("x"), q.Get("y")}, features.ScalingZScore)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Analyzer.Correlate(schema.Properties[0], schema.Properties[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Normalize shows how a single raw value is parsed
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	q, err := h.normalizer.ParseString(r.URL.Query().Get("value"))
	writeJSON(w, http.StatusOK, models.NewNormalizeResponse(q, err))
}

// ============================================================================
// Analysis
// ============================================================================

func (h *Handler) schemaFrom(req models.SchemaRequest) (features.Schema, error) {
	items := req.Schema
	if len(items) == 0 {
		items = h.Defaults.Schema
	}
	scalingName := req.Scaling
	if scalingName == "" {
		scalingName = h.Defaults.Scaling
	}
	scaling, err := features.ParseScaling(scalingName)
	if err != nil {
		return features.Schema{}, err
	}
	schema, err := features.ParseSchema(items, scaling)
	if err != nil {
		return features.Schema{}, err
	}
	aliases := h.Defaults.Aliases
	if req.Aliases != nil {
		aliases = *req.Aliases
	}
	if aliases {
		schema = schema.WithDefaultAliases()
	}
	return schema, nil
}

func (h *Handler) threshold(t *float64) float64 {
	if t == nil {
		return h.Defaults.Threshold
	}
	return *t
}

// Features returns the feature matrix; absent values encode as null
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	var req models.FeaturesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	schema, err := h.schemaFrom(req.SchemaRequest)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Analyzer.Features(r.Context(), schema)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) similarRequest(req models.SimilarRequest) (similarity.Request, error) {
	if strings.TrimSpace(req.QueryID) == "" {
		return similarity.Request{}, errors.NewInvalidRequestError("query_id is required")
	}
	schema, err := h.schemaFrom(req.SchemaRequest)
	if err != nil {
		return similarity.Request{}, err
	}
	topN := h.Defaults.TopN
	if req.TopN != nil {
		topN = *req.TopN
	}
	metric := req.Metric
	if metric == "" {
		metric = h.Defaults.Metric
	}
	return similarity.Request{
		QueryID: req.QueryID,
		Schema:  schema,
		TopN:    topN,
		Metric:  metric,
	}, nil
}

func (h *Handler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	var req models.SimilarRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sr, err := h.similarRequest(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Analyzer.FindSimilar(r.Context(), sr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSimilarResponse(res))
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Left == "" || req.Right == "" {
		writeError(w, r, errors.NewInvalidRequestError("left and right are required"))
		return
	}
	c, err := h.Analyzer.Compare(req.Left, req.Right, req.Properties)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Candidacy evaluates one entity against the active rule set
func (h *Handler) Candidacy(w http.ResponseWriter, r *http.Request) {
	var req models.CandidacyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.Analyzer.Candidacy(chi.URLParam(r, "id"), h.threshold(req.Threshold))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Candidates sweeps the whole catalog
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	var req models.CandidatesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	threshold := h.threshold(req.Threshold)
	reports, version, err := h.Analyzer.Candidates(r.Context(), threshold, req.OnlyCandidates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewCandidatesResponse(version, h.Analyzer.RuleSet().Name, threshold, reports))
}

// ExportCandidates flattens a sweep to records, as JSON or CSV
func (h *Handler) ExportCandidates(w http.ResponseWriter, r *http.Request) {
	var req models.CandidatesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	format, err := exportFormat(req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Analyzer.ExportCandidates(r.Context(), h.threshold(req.Threshold), req.OnlyCandidates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeExport(w, r, format, "candidates.csv", out)
}

// ExportSimilar flattens a similarity ranking to records
func (h *Handler) ExportSimilar(w http.ResponseWriter, r *http.Request) {
	var req models.SimilarRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	format, err := exportFormat(req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sr, err := h.similarRequest(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Analyzer.ExportSimilar(r.Context(), sr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeExport(w, r, format, "similar-"+sr.QueryID+".csv", out)
}

// ExportFeatures flattens the feature matrix to one record per entity
func (h *Handler) ExportFeatures(w http.ResponseWriter, r *http.Request) {
	var req models.FeaturesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	format, err := exportFormat(req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	schema, err := h.schemaFrom(req.SchemaRequest)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Analyzer.ExportFeatures(r.Context(), schema)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeExport(w, r, format, "features.csv", out)
}

func exportFormat(raw string) (string, error) {
	switch format := strings.ToLower(raw); format {
	case "", "json":
		return "json", nil
	case "csv":
		return format, nil
	}
	return "", errors.NewInvalidRequestError("unknown export format %q (expected json or csv)", raw)
}

func writeExport(w http.ResponseWriter, r *http.Request, format, filename string, out service.Export) {
	if format != "csv" {
		writeJSON(w, http.StatusOK, out)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if out.Run != nil {
		w.Header().Set("X-Run-ID", out.Run.ID)
	}
	if err := export.WriteCSV(w, out.Records); err != nil {
		writeError(w, r, err)
	}
}

// ============================================================================
// Archive
// ============================================================================

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Analyzer.Runs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	records, err := h.Analyzer.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ============================================================================
// Helpers
// ============================================================================

func getBoolParam(r *http.Request, name string) bool {
	val, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && val
}
