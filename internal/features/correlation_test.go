package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

func TestCorrelatePerfectlyLinear(t *testing.T) {
	cat := catalog.New(2, []*catalog.Entity{
		catalog.NewEntity("a", catalog.ScaleHuman, "A", map[string]any{"mass": "1 kg", "radius": "2 m"}),
		catalog.NewEntity("b", catalog.ScaleHuman, "B", map[string]any{"mass": "2 kg", "radius": "4 m"}),
		catalog.NewEntity("c", catalog.ScaleHuman, "C", map[string]any{"mass": "3 kg", "radius": "6 m"}),
		catalog.NewEntity("d", catalog.ScaleHuman, "D", map[string]any{"mass": "4000 g", "radius": "800 cm"}),
		catalog.NewEntity("e", catalog.ScaleHuman, "E", map[string]any{"mass": "5 kg"}),
	})

	c, err := Correlate(cat, Property{Name: "mass"}, Property{Name: "radius"})
	require.NoError(t, err)
	assert.Equal(t, 4, c.Pairs)
	require.NotNil(t, c.Pearson)
	require.NotNil(t, c.Spearman)
	assert.InDelta(t, 1.0, *c.Pearson, 1e-9)
	assert.InDelta(t, 1.0, *c.Spearman, 1e-9)
	assert.Equal(t, "strong positive", c.Strength)
	assert.Equal(t, uint64(2), c.CatalogVersion)
}

func TestCorrelateTooFewPairs(t *testing.T) {
	c, err := Correlate(stellarCatalog(1), Property{Name: "mass"}, Property{Name: "temperature"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Pairs)
	assert.Nil(t, c.Pearson)
	assert.Nil(t, c.Spearman)
	assert.Equal(t, "undefined", c.Strength)
}

func TestCorrelateUnknownProperty(t *testing.T) {
	_, err := Correlate(stellarCatalog(1), Property{Name: "mass"}, Property{Name: "spin"})
	var mismatch *errors.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"spin"}, mismatch.Properties)
}

func TestRanksAverageTies(t *testing.T) {
	assert.Equal(t, []float64{1.5, 1.5, 3}, ranks([]float64{1, 1, 2}))
	assert.Equal(t, []float64{3, 1, 2}, ranks([]float64{9, 4, 5}))
}
