package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrNicoArt/scaleviewer/internal/catalog"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

func TestCompareLinearAndLog(t *testing.T) {
	cat := catalog.New(1, massCatalog())
	engine := NewEngine(nil)

	near, err := engine.Compare(cat, "sun", "betelgeuse", []string{"mass"})
	require.NoError(t, err)
	require.NotNil(t, near.Similarity)
	assert.InDelta(t, 1.0/18, *near.Similarity, 1e-9, "ratio below 1000 compares linearly")

	far, err := engine.Compare(cat, "sun", "earth", nil)
	require.NoError(t, err)
	require.Len(t, far.Properties, 1)
	require.NotNil(t, far.Similarity)
	assert.InDelta(t, 0.44775, *far.Similarity, 1e-4, "ratio above 1000 compares on log distance")
}

func TestCompareUncomparableProperties(t *testing.T) {
	cat := catalog.New(1, []*catalog.Entity{
		entity("a", map[string]any{"size": "2 m", "color": "red", "zero": 0.0}),
		entity("b", map[string]any{"size": "3 kg", "color": "blue", "zero": 0.0}),
	})

	cmp, err := NewEngine(nil).Compare(cat, "a", "b", nil)
	require.NoError(t, err)
	require.Len(t, cmp.Properties, 3)

	byName := map[string]PropertyComparison{}
	for _, pc := range cmp.Properties {
		byName[pc.Property] = pc
	}
	assert.Nil(t, byName["color"].Similarity)
	assert.Equal(t, "not numeric on both sides", byName["color"].Reason)
	assert.Nil(t, byName["size"].Similarity)
	assert.Equal(t, "different dimensions", byName["size"].Reason)
	require.NotNil(t, byName["zero"].Similarity)
	assert.Equal(t, 1.0, *byName["zero"].Similarity)
	assert.Equal(t, 1, cmp.Compared)
}

func TestCompareUnknownEntity(t *testing.T) {
	cat := catalog.New(1, massCatalog())
	_, err := NewEngine(nil).Compare(cat, "sun", "pluto", nil)
	assert.True(t, errors.IsNotFoundError(err))
}
