package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads records from a table with the columns
// id, scale, name, data (jsonb), tags (text[]) and catalog (text).
type PostgresSource struct {
	db    *sql.DB
	table string
}

// OpenPostgres connects to PostgreSQL with a lib/pq connection string.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to reach postgres")
	}
	return NewPostgresSource(db, table)
}

// NewPostgresSource wraps an open database handle.
func NewPostgresSource(db *sql.DB, table string) (*PostgresSource, error) {
	if table == "" {
		table = "objects"
	}
	if !identPattern.MatchString(table) {
		return nil, errors.NewInvalidRequestError("invalid catalog table name %q", table)
	}
	return &PostgresSource{db: db, table: table}, nil
}

// Describe names the table the source reads.
func (p *PostgresSource) Describe() string {
	return "postgres:" + p.table
}

// Close releases the connection pool.
func (p *PostgresSource) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Load reads every row of the table.
func (p *PostgresSource) Load(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf("SELECT id, scale, name, data, tags, catalog FROM %s ORDER BY id", p.table)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", p.table)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			data      []byte
			tags      pq.StringArray
			directory sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Scale, &r.Name, &data, &tags, &directory); err != nil {
			return nil, errors.Wrap(err, "failed to scan catalog row")
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &r.Data); err != nil {
				return nil, errors.Wrapf(err, "invalid data column for %q", r.ID)
			}
		}
		r.Tags = []string(tags)
		r.Directory = directory.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate catalog rows")
	}
	return records, nil
}
