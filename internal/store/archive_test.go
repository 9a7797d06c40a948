package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/export"
)

func sampleRecords() []export.Record {
	return []export.Record{
		{Kind: export.KindCandidacy, CatalogVersion: 4, EntityID: "chain", Fields: map[string]string{
			"id": "chain", "scale": "quantum", "name": "Spin chain", "score": "0.5", "candidate": "false",
		}},
		{Kind: export.KindCandidacy, CatalogVersion: 4, EntityID: "crystal", Fields: map[string]string{
			"id": "crystal", "scale": "quantum", "name": "Driven crystal", "score": "1", "candidate": "true",
		}},
	}
}

func TestSaveAndReadBack(t *testing.T) {
	ctx := context.Background()
	a, err := OpenMemory()
	require.NoError(t, err)
	defer a.Close()

	run, err := a.Save(ctx, export.KindCandidacy, 4, sampleRecords())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, uint64(4), run.CatalogVersion)
	assert.Equal(t, 2, run.Records)

	got, err := a.Records(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	a, err := OpenMemory()
	require.NoError(t, err)
	defer a.Close()

	first, err := a.Save(ctx, export.KindCandidacy, 4, sampleRecords())
	require.NoError(t, err)
	second, err := a.Save(ctx, export.KindSimilarity, 4, nil)
	require.NoError(t, err)

	runs, err := a.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	empty, err := a.Records(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordsUnknownRun(t *testing.T) {
	a, err := OpenMemory()
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Records(context.Background(), "missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestArchivePersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	a, err := Open(path)
	require.NoError(t, err)
	run, err := a.Save(ctx, export.KindCandidacy, 4, sampleRecords())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Records(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestVecVersion(t *testing.T) {
	a, err := OpenMemory()
	require.NoError(t, err)
	defer a.Close()

	v, err := a.VecVersion(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}
