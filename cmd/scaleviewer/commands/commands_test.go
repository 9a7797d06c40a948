package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `{"objects": [
  {"id": "sun", "scale": "stellar", "name": "Sun", "data": {"mass": "1.989 × 10^30 kg", "radius": "696,340 km"}},
  {"id": "vega", "scale": "stellar", "name": "Vega", "data": {"mass": "2.1 M☉", "radius": "2.36 R☉"}},
  {"id": "chain", "scale": "quantum", "name": "Spin chain", "data": {"coherence_time": "5 ms", "subharmonic_ratio": 2}}
]}`

func writeTestConfig(t *testing.T, archive bool) string {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "objects.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))

	toml := fmt.Sprintf("[catalog]\npath = %q\n\n[analysis]\nschema = [\"mass:log\", \"radius:log\"]\n", catalogPath)
	if archive {
		toml += fmt.Sprintf("\n[archive]\npath = %q\n", filepath.Join(dir, "archive.db"))
	}
	configPath := filepath.Join(dir, "scaleviewer.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(toml), 0o644))
	return configPath
}

func TestSetupAndRuntime(t *testing.T) {
	require.NoError(t, Setup(writeTestConfig(t, true), false))

	rt, err := openRuntime(context.Background(), false)
	require.NoError(t, err)
	defer rt.Close()

	status := rt.analyzer.Status()
	assert.Equal(t, 3, status.Entities)
	assert.Equal(t, uint64(1), status.CatalogVersion)
	assert.Equal(t, "time-crystal", status.RuleSet)
	assert.True(t, status.Archive)
	assert.NotEmpty(t, status.VecVersion)
	assert.Nil(t, rt.watcher)

	out, err := rt.analyzer.ExportCandidates(context.Background(), 0.5, false)
	require.NoError(t, err)
	require.NotNil(t, out.Run)
	assert.Len(t, out.Records, 3)
}

func TestSetupMissingConfig(t *testing.T) {
	err := Setup(filepath.Join(t.TempDir(), "nope.toml"), false)
	assert.Error(t, err)
}

func TestCommandSchemaFallsBackToConfig(t *testing.T) {
	require.NoError(t, Setup(writeTestConfig(t, false), false))

	schema, err := commandSchema(nil, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"mass", "radius"}, schema.Names())
	assert.True(t, schema.Properties[0].LogScale)
	assert.NotEmpty(t, schema.Properties[0].Aliases)

	schema, err = commandSchema([]string{"temperature"}, "minmax", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, schema.Names())
	assert.Empty(t, schema.Properties[0].Aliases)

	_, err = commandSchema(nil, "quantile", false)
	assert.Error(t, err)
}

func TestRuntimeMissingCatalog(t *testing.T) {
	require.NoError(t, Setup(writeTestConfig(t, false), false))
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.json")

	_, err := openRuntime(context.Background(), false)
	assert.Error(t, err)
}
