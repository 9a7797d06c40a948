package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

func TestStoreReplacePublishesNewVersion(t *testing.T) {
	store := NewStore(nil)
	assert.Equal(t, uint64(0), store.Current().Version())

	var seen []uint64
	store.Subscribe(func(old, current *Catalog) {
		seen = append(seen, old.Version(), current.Version())
	})

	cat := store.Replace(sampleEntities())
	assert.Equal(t, uint64(1), cat.Version())
	assert.Same(t, cat, store.Current())
	assert.Equal(t, []uint64{0, 1}, seen)
}

func TestStoreEditKeepsOldSnapshot(t *testing.T) {
	store := NewStore(nil)
	before := store.Replace(sampleEntities())

	after, err := store.EditProperties("sun", map[string]any{
		"temperature": "6000 K",
		"mass":        nil,
	})
	require.NoError(t, err)
	assert.Equal(t, before.Version()+1, after.Version())

	oldSun, _ := before.Get("sun")
	newSun, _ := after.Get("sun")
	assert.Equal(t, "5778 K", oldSun.Data["temperature"])
	assert.Equal(t, 6000.0, newSun.Quantity("temperature").Value)
	assert.False(t, newSun.Quantity("mass").Present())
	assert.True(t, oldSun.Quantity("mass").Present())
	assert.Equal(t, oldSun.Tags, newSun.Tags)

	oldEarth, _ := before.Get("earth")
	newEarth, _ := after.Get("earth")
	assert.Same(t, oldEarth, newEarth, "untouched entities are shared between versions")
}

func TestStoreEditErrors(t *testing.T) {
	store := NewStore(nil)
	store.Replace(sampleEntities())

	_, err := store.EditProperties("pluto", map[string]any{"mass": 1.0})
	assert.True(t, errors.IsNotFoundError(err))

	_, err = store.EditProperties("sun", nil)
	assert.True(t, errors.IsInvalidRequestError(err))
	assert.Equal(t, uint64(1), store.Current().Version())
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"objects": [
		{"id": "sun", "scale": "stellar", "name": "Sun", "data": {"mass": "1 M☉"}},
		{"id": "sun", "scale": "stellar", "name": "Duplicate", "data": {}},
		{"id": "ghost", "scale": "", "name": "Ghost", "data": {}}
	]}`), 0o644))

	store := NewStore(NewFileSource(path))
	cat, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
	assert.Equal(t, path, store.SourceName())

	assert.Empty(t, NewStore(nil).SourceName())
	_, err = NewStore(nil).Reload(context.Background())
	assert.Error(t, err)
}
