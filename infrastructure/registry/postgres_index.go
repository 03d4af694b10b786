package registry

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Schema creates the model_versions table used by PostgresIndex.
const Schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	seq           BIGSERIAL   NOT NULL,
	name          TEXT        NOT NULL,
	version       INTEGER     NOT NULL,
	run_id        TEXT        NOT NULL,
	candidate     TEXT        NOT NULL,
	kind          TEXT        NOT NULL,
	metrics       JSONB       NOT NULL,
	artifact_key  TEXT        NOT NULL,
	registered_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (name, version)
);
ALTER TABLE model_versions ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
DROP INDEX IF EXISTS model_versions_run_idx;
CREATE INDEX IF NOT EXISTS model_versions_run_seq_idx ON model_versions (run_id, seq);
`

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// maxRecordAttempts bounds retries when concurrent writers race for the
// same version number.
const maxRecordAttempts = 5

// MetricsColumn stores metrics as a JSONB column.
type MetricsColumn map[string]float64

// Value implements driver.Valuer.
func (m MetricsColumn) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]float64(m))
}

// Scan implements sql.Scanner.
func (m *MetricsColumn) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = MetricsColumn{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into metrics", src)
	}
	out := make(map[string]float64)
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("invalid metrics json: %w", err)
	}
	*m = out
	return nil
}

// PostgresIndex keeps the registry index in the model_versions table.
// The primary key serializes version assignment across processes.
type PostgresIndex struct {
	db *sqlx.DB
}

var _ Index = (*PostgresIndex)(nil)

// NewPostgresIndex wraps an open database handle.
func NewPostgresIndex(db *sqlx.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

// OpenPostgresIndex connects to databaseURL and creates the schema when
// it is missing.
func OpenPostgresIndex(ctx context.Context, databaseURL string) (*PostgresIndex, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}
	idx := NewPostgresIndex(db)
	if err := idx.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Migrate applies Schema.
func (p *PostgresIndex) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create registry schema: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (p *PostgresIndex) Close() error { return p.db.Close() }

// Record implements Index.
func (p *PostgresIndex) Record(ctx context.Context, entry Entry) (Entry, error) {
	var lastErr error
	for range maxRecordAttempts {
		var version int
		err := p.db.QueryRowxContext(ctx, `
			INSERT INTO model_versions (
				name, version, run_id, candidate, kind, metrics, artifact_key, registered_at
			)
			SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $5, $6, $7
			FROM model_versions
			WHERE name = $1
			RETURNING version
		`, entry.Name, entry.RunID, entry.Candidate, string(entry.Kind), entry.Metrics,
			entry.ArtifactKey, entry.RegisteredAt).Scan(&version)
		if err == nil {
			entry.Version = version
			return entry, nil
		}
		if !isUniqueViolation(err) {
			return Entry{}, fmt.Errorf("failed to record %s: %w", entry.Name, err)
		}
		lastErr = err
	}
	return Entry{}, fmt.Errorf("failed to record %s after %d attempts: %w", entry.Name, maxRecordAttempts, lastErr)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ListRun implements Index. Entries come back in insertion order.
func (p *PostgresIndex) ListRun(ctx context.Context, runID string) ([]Entry, error) {
	entries := []Entry{}
	err := p.db.SelectContext(ctx, &entries, `
		SELECT name, version, run_id, candidate, kind, metrics, artifact_key, registered_at
		FROM model_versions
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run %s: %w", runID, err)
	}
	return entries, nil
}

// Lookup implements Index.
func (p *PostgresIndex) Lookup(ctx context.Context, name string, version int) (Entry, error) {
	var entry Entry
	err := p.db.GetContext(ctx, &entry, `
		SELECT name, version, run_id, candidate, kind, metrics, artifact_key, registered_at
		FROM model_versions
		WHERE name = $1 AND version = $2
	`, name, version)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ports.ErrModelNotFound, FormatURI(name, version))
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to look up %s: %w", FormatURI(name, version), err)
	}
	return entry, nil
}
