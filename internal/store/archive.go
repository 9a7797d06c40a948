// Package store archives exported analysis runs in SQLite.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/export"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// Archive keeps every exported run, one row per record field.
type Archive struct {
	mu sync.RWMutex
	db *sql.DB
}

// Run describes one archived export.
type Run struct {
	ID             string      `json:"id"`
	Kind           export.Kind `json:"kind"`
	CatalogVersion uint64      `json:"catalog_version"`
	CreatedAt      time.Time   `json:"created_at"`
	Records        int         `json:"records"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    catalog_version INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    record_count INTEGER NOT NULL
);

-- One row per (record, field); seq keeps record order within a run
CREATE TABLE IF NOT EXISTS exports (
    run_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    catalog_version INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    entity_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (run_id, seq, key)
);

CREATE INDEX IF NOT EXISTS idx_exports_entity ON exports(entity_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// OpenMemory opens an in-memory archive.
func OpenMemory() (*Archive, error) {
	return Open(":memory:")
}

// Open opens or creates an archive. Use ":memory:" for in-memory or a file
// path for persistent storage.
func Open(dsn string) (*Archive, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open archive")
	}
	// An in-memory database lives in a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create archive schema")
	}
	return &Archive{db: db}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Save stores records computed from one catalog version as a new run.
func (a *Archive) Save(ctx context.Context, kind export.Kind, version uint64, records []export.Record) (Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	run := Run{ID: uuid.NewString(), Kind: kind, CatalogVersion: version, CreatedAt: time.Now().UTC(), Records: len(records)}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, errors.Wrap(err, "failed to begin archive transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, catalog_version, created_at, record_count) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), int64(run.CatalogVersion), run.CreatedAt.UnixNano(), run.Records,
	); err != nil {
		return Run{}, errors.Wrap(err, "failed to insert run")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO exports (run_id, kind, catalog_version, seq, entity_id, key, value) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, errors.Wrap(err, "failed to prepare export insert")
	}
	defer stmt.Close()

	for seq, r := range records {
		for _, key := range r.Keys() {
			if _, err := stmt.ExecContext(ctx, run.ID, string(kind), int64(version), seq, r.EntityID, key, r.Fields[key]); err != nil {
				return Run{}, errors.Wrapf(err, "failed to archive %s.%s", r.EntityID, key)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return Run{}, errors.Wrap(err, "failed to commit archive run")
	}

	logger.Infow("Archived export run",
		"run_id", run.ID,
		"kind", string(kind),
		logger.FieldCount, run.Records,
		logger.FieldCatalogVersion, run.CatalogVersion)
	return run, nil
}

// Runs lists archived runs, newest first.
func (a *Archive) Runs(ctx context.Context) ([]Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, kind, catalog_version, created_at, record_count FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			kind    string
			version int64
			created int64
		)
		if err := rows.Scan(&r.ID, &kind, &version, &created, &r.Records); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		r.Kind = export.Kind(kind)
		r.CatalogVersion = uint64(version)
		r.CreatedAt = time.Unix(0, created).UTC()
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "failed to iterate runs")
}

// Records reassembles the records of one run in their original order.
func (a *Archive) Records(ctx context.Context, runID string) ([]export.Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var count int
	err := a.db.QueryRowContext(ctx, `SELECT record_count FROM runs WHERE id = ?`, runID).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("export run %q", runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up run")
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT seq, kind, catalog_version, entity_id, key, value FROM exports WHERE run_id = ? ORDER BY seq, key`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read run records")
	}
	defer rows.Close()

	records := make([]export.Record, count)
	for rows.Next() {
		var (
			seq     int
			kind    string
			version int64
			entity  string
			key     string
			value   string
		)
		if err := rows.Scan(&seq, &kind, &version, &entity, &key, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan export row")
		}
		if seq < 0 || seq >= count {
			return nil, errors.Newf("run %s: record index %d out of range", runID, seq)
		}
		r := &records[seq]
		if r.Fields == nil {
			r.Kind = export.Kind(kind)
			r.CatalogVersion = uint64(version)
			r.EntityID = entity
			r.Fields = make(map[string]string)
		}
		r.Fields[key] = value
	}
	return records, errors.Wrap(rows.Err(), "failed to iterate export rows")
}

// VecVersion reports the sqlite-vec extension version bundled with the driver.
func (a *Archive) VecVersion(ctx context.Context) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var v string
	if err := a.db.QueryRowContext(ctx, `SELECT vec_version()`).Scan(&v); err != nil {
		return "", errors.Wrap(err, "sqlite-vec not available")
	}
	return v, nil
}
