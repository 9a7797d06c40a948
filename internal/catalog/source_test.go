package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONShapes(t *testing.T) {
	list, err := DecodeJSON([]byte(`[{"id": "a", "scale": "human", "name": "A", "data": {"height": 1.8}}]`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1.8, list[0].Data["height"])

	wrapped, err := DecodeJSON([]byte(`{"objects": [{"id": "a", "scale": "human", "name": "A", "tags": ["x"], "catalog": "people"}]}`))
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	assert.Equal(t, []string{"x"}, wrapped[0].Tags)
	assert.Equal(t, "people", wrapped[0].Directory)

	_, err = DecodeJSON([]byte(`{"items": []}`))
	assert.Error(t, err)

	_, err = DecodeJSON([]byte(`  `))
	assert.Error(t, err)
}

func TestRecordValidate(t *testing.T) {
	assert.NoError(t, Record{ID: "a", Scale: "Cosmic", Name: "A"}.Validate())
	assert.Error(t, Record{ID: "a", Scale: "cosmic"}.Validate())
	assert.Error(t, Record{ID: "a", Scale: "tiny", Name: "A"}.Validate())
}

func TestBuildEntitiesSkipsInvalid(t *testing.T) {
	entities, skipped := BuildEntities([]Record{
		{ID: "a", Scale: "human", Name: "A", Data: map[string]any{"height": "1.8 m"}, Tags: []string{"t"}},
		{ID: "a", Scale: "human", Name: "A again"},
		{ID: "", Scale: "human", Name: "anonymous"},
	})
	require.Len(t, entities, 1)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, ScaleHuman, entities[0].Scale)
	assert.Equal(t, []string{"t"}, entities[0].Tags)
	assert.Equal(t, "m", entities[0].Quantity("height").Unit)
}

func TestFileSourceYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
objects:
  - id: earth
    scale: planetary
    name: Earth
    data:
      moons: 1
      mass: "5.972 × 10^24 kg"
`), 0o644))

	records, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1.0, records[0].Data["moons"])
	assert.Equal(t, "5.972 × 10^24 kg", records[0].Data["mass"])
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background())
	assert.Error(t, err)
}
