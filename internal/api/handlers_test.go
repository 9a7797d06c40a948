package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/config"
	"github.com/DrNicoArt/scaleviewer/internal/models"
	"github.com/DrNicoArt/scaleviewer/internal/service"
	"github.com/DrNicoArt/scaleviewer/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: config.DefaultPort},
		Analysis: config.AnalysisConfig{
			Metric:    "cosine",
			TopN:      5,
			Threshold: 0.6,
			Scaling:   "zscore",
			Schema:    []string{"mass:log", "temperature:log"},
			Aliases:   true,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, archive *store.Archive) http.Handler {
	t.Helper()
	st := catalog.NewStore(nil)
	st.Replace([]*catalog.Entity{
		catalog.NewEntity("sun", catalog.ScaleStellar, "Sun", map[string]any{
			"mass": "1.989 × 10^30 kg", "temperature": "5778 K",
		}),
		catalog.NewEntity("betelgeuse", catalog.ScaleStellar, "Betelgeuse", map[string]any{
			"mass": "18 M☉", "temperature": "3500 K",
		}),
		catalog.NewEntity("vega", catalog.ScaleStellar, "Vega", map[string]any{
			"mass": "2.1 M☉", "temperature": "9602 K",
		}),
		catalog.NewEntity("earth", catalog.ScalePlanetary, "Earth", map[string]any{
			"mass": "5.972 × 10^24 kg", "orbital_period": "365.25 d",
		}),
	})
	a := service.NewAnalyzer(st, nil, archive)
	return NewRouter(NewHandler(a, cfg), nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, uint64(1), body.CatalogVersion)
}

func TestEntityEndpoints(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/api/entities?scale=stellar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.EntityListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)

	rec = do(t, h, http.MethodGet, "/api/entities?scale=cosmic-soup", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/entities/pluto", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/entities/sun", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ent models.EntityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ent))
	assert.Equal(t, "sun", ent.Entity.ID)
	assert.Contains(t, ent.Normalized, "mass")
}

func TestEditPropertiesBumpsVersion(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	rec := do(t, h, http.MethodPatch, "/api/entities/earth/properties", `{"properties":{"temperature":"288 K"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var ent models.EntityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ent))
	assert.Equal(t, uint64(2), ent.CatalogVersion)
	assert.Equal(t, "288 K", ent.Entity.Data["temperature"])
}

func TestSimilarUsesConfigDefaults(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	rec := do(t, h, http.MethodPost, "/api/similar", `{"query_id":"sun"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.SimilarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cosine", string(body.Metric))
	assert.Equal(t, []string{"mass", "temperature"}, body.Schema)
	assert.NotEmpty(t, body.Matches)
	assert.Empty(t, body.Message)
}

func TestSimilarErrors(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, body models.ErrorResponse)
	}{
		{
			name:   "missing query",
			body:   `{}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown entity",
			body:   `{"query_id":"pluto"}`,
			status: http.StatusNotFound,
		},
		{
			name:   "bad metric",
			body:   `{"query_id":"sun","metric":"manhattan"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body models.ErrorResponse) {
				assert.Equal(t, "manhattan", body.Metric)
			},
		},
		{
			name:   "schema mismatch",
			body:   `{"query_id":"sun","schema":["mass","tempreature"],"aliases":false}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body models.ErrorResponse) {
				assert.Equal(t, []string{"tempreature"}, body.Properties)
				assert.NotEmpty(t, body.Hints)
			},
		},
		{
			name:   "negative top_n",
			body:   `{"query_id":"sun","top_n":-1}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   `{"query_id":"sun","colour":"red"}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/similar", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decodeError(t, rec))
			}
		})
	}
}

func TestCandidacyThreshold(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodPost, "/api/candidacy/earth", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/candidacy/earth", `{"threshold":1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/candidacy/pluto", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCandidatesSweep(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	rec := do(t, h, http.MethodPost, "/api/candidates", `{"threshold":0.0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.CandidatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	assert.Equal(t, "time-crystal", body.RuleSet)
	assert.Equal(t, uint64(1), body.CatalogVersion)
}

func TestSweepRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.SweepRatePerSecond = 0.001
	cfg.Server.SweepBurst = 1
	h := newTestServer(t, cfg, nil)

	rec := do(t, h, http.MethodPost, "/api/candidates", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/candidates", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// single-entity evaluation is not limited
	rec = do(t, h, http.MethodPost, "/api/candidacy/sun", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExportCandidatesCSV(t *testing.T) {
	archive, err := store.OpenMemory()
	require.NoError(t, err)
	defer archive.Close()
	h := newTestServer(t, testConfig(), archive)

	rec := do(t, h, http.MethodPost, "/api/export/candidates", `{"threshold":0,"format":"csv"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	runID := rec.Header().Get("X-Run-ID")
	require.NotEmpty(t, runID)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"id", "scale", "name"}, rows[0][:3])

	rec = do(t, h, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)

	rec = do(t, h, http.MethodGet, "/api/runs/"+runID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/export/candidates", `{"format":"xml"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportSimilarAndFeatures(t *testing.T) {
	archive, err := store.OpenMemory()
	require.NoError(t, err)
	defer archive.Close()
	h := newTestServer(t, testConfig(), archive)

	rec := do(t, h, http.MethodPost, "/api/export/similar", `{"query_id":"sun","top_n":2,"format":"csv"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "similar-sun.csv")
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[0], "rank")
	assert.Contains(t, rows[0], "query_id")

	rec = do(t, h, http.MethodPost, "/api/export/features", `{"schema":["mass:log"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var feats service.Export
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feats))
	require.Len(t, feats.Records, 4)
	require.NotNil(t, feats.Run)
	assert.Contains(t, feats.Records[0].Fields, "mass")

	rec = do(t, h, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	rec = do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status service.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Archive)
	assert.NotEmpty(t, status.VecVersion)
}

func TestExportSimilarErrors(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"missing query", "/api/export/similar", `{}`, http.StatusBadRequest},
		{"unknown entity", "/api/export/similar", `{"query_id":"pluto"}`, http.StatusNotFound},
		{"bad format", "/api/export/similar", `{"query_id":"sun","format":"xml"}`, http.StatusBadRequest},
		{"bad features format", "/api/export/features", `{"format":"parquet"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := do(t, h, http.MethodPost, "/api/export/similar", `{"query_id":"sun"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out service.Export
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Nil(t, out.Run)
	assert.NotEmpty(t, out.Records)
}

func TestRunsWithoutArchive(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	rec := do(t, h, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalizeAndCorrelation(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/api/normalize?value=5%20ms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var norm models.NormalizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &norm))
	require.NotNil(t, norm.Base)
	assert.InDelta(t, 0.005, *norm.Base, 1e-12)
	assert.Equal(t, "s", norm.BaseUnit)

	rec = do(t, h, http.MethodGet, "/api/correlation?x=mass:log&y=temperature", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/correlation?x=mass", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/properties/mass?log=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReloadWithoutSourceFails(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	rec := do(t, h, http.MethodPost, "/api/catalog/reload", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeError(t, rec).Error)
}
