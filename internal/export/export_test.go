package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/features"
	"github.com/DrNicoArt/scaleviewer/internal/rules"
	"github.com/DrNicoArt/scaleviewer/internal/similarity"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(3, []*catalog.Entity{
		catalog.NewEntity("sun", catalog.ScaleStellar, "Sun", map[string]any{"mass": 2e30, "radius": 7e8}),
		catalog.NewEntity("vega", catalog.ScaleStellar, "Vega", map[string]any{"mass": 4e30, "radius": 1.6e9}),
		catalog.NewEntity("earth", catalog.ScalePlanetary, "Earth", map[string]any{"mass": 6e24}),
	})
}

func testSchema(t *testing.T) features.Schema {
	t.Helper()
	s, err := features.ParseSchema([]string{"mass:log", "radius:log"}, features.ScalingZScore)
	require.NoError(t, err)
	return s
}

func TestFromMatrixMarksAbsentValues(t *testing.T) {
	cat := testCatalog()
	m, err := features.NewExtractor().Extract(context.Background(), cat, testSchema(t))
	require.NoError(t, err)

	records := FromMatrix(cat, m)
	require.Len(t, records, 3)
	earth := records[0]
	assert.Equal(t, "earth", earth.EntityID)
	assert.Equal(t, KindFeatures, earth.Kind)
	assert.Equal(t, uint64(3), earth.CatalogVersion)
	assert.Equal(t, "planetary", earth.Fields["scale"])
	assert.NotEmpty(t, earth.Fields["mass"])
	assert.Equal(t, "", earth.Fields["radius"])
	assert.Equal(t, "1", earth.Fields["present"])
	assert.Equal(t, []string{"id", "scale", "name", "mass", "present", "radius"}, earth.Keys())
}

func TestFromSimilarity(t *testing.T) {
	cat := testCatalog()
	res, err := similarity.NewEngine(nil).FindSimilar(context.Background(), cat, similarity.Request{
		QueryID: "sun", Schema: testSchema(t), TopN: 5, Metric: "euclidean",
	})
	require.NoError(t, err)

	records := FromSimilarity(cat, res)
	require.Len(t, records, len(res.Matches))
	require.NotEmpty(t, records)
	assert.Equal(t, "1", records[0].Fields["rank"])
	assert.Equal(t, "sun", records[0].Fields["query_id"])
	assert.Equal(t, "euclidean", records[0].Fields["metric"])
	assert.Equal(t, res.Matches[0].ID, records[0].EntityID)
}

func TestFromReports(t *testing.T) {
	cat := catalog.New(1, []*catalog.Entity{
		catalog.NewEntity("chain", catalog.ScaleQuantum, "Spin chain", map[string]any{
			"coherence_time": "5 ms", "subharmonic_ratio": 2,
		}),
	})
	rs, err := rules.NewRuleSet("t", []rules.Rule{
		{ID: "coherence", Weight: 1, Predicate: rules.Predicate{Kind: rules.KindThreshold, Properties: []string{"coherence_time"}, Op: ">", Value: 1e-3, Unit: "s"}},
		{ID: "spin", Weight: 1, Predicate: rules.Predicate{Kind: rules.KindExists, Properties: []string{"spin"}}},
	})
	require.NoError(t, err)
	reports, err := rules.EvaluateAll(context.Background(), cat, rs, 0.5)
	require.NoError(t, err)

	records := FromReports(cat, reports)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, KindCandidacy, r.Kind)
	assert.Equal(t, "Spin chain", r.Fields["name"])
	assert.Equal(t, "0.5", r.Fields["score"])
	assert.Equal(t, "true", r.Fields["candidate"])
	assert.Equal(t, "coherence", r.Fields["matched"])
	assert.Contains(t, r.Fields["rule.coherence"], "matched: ")
	assert.Contains(t, r.Fields["rule.spin"], "unmatched: ")
	assert.NotEmpty(t, r.Fields["rationale"])

	bare := FromReports(nil, reports)
	assert.Equal(t, "quantum", bare[0].Fields["scale"])
}

func TestWriteCSV(t *testing.T) {
	records := []Record{
		{EntityID: "a", Fields: map[string]string{"id": "a", "name": "A", "score": "1"}},
		{EntityID: "b", Fields: map[string]string{"id": "b", "scale": "human", "extra": "x, y"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "scale", "name", "extra", "score"}, rows[0])
	assert.Equal(t, []string{"a", "", "A", "", "1"}, rows[1])
	assert.Equal(t, []string{"b", "human", "", "x, y", ""}, rows[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "\n", buf.String())
}
