package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"hypogate/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Dialect adjusts column types between postgres and sqlite.
type Dialect struct {
	Name      string
	JSON      string
	Timestamp string
}

// DialectFor picks the dialect from the sqlx driver name.
func DialectFor(driverName string) Dialect {
	if driverName == "postgres" {
		return Dialect{Name: "postgres", JSON: "JSONB", Timestamp: "TIMESTAMP WITH TIME ZONE"}
	}
	return Dialect{Name: "sqlite3", JSON: "TEXT", Timestamp: "TIMESTAMP"}
}

// step is one versioned schema change. The statement is a template with
// {{json}} and {{timestamp}} placeholders filled per dialect.
type step struct {
	version string
	sql     string
}

var steps = []step{
	{version: "001_experiments", sql: `
		CREATE TABLE IF NOT EXISTS experiments (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL DEFAULT '',
			domain_override TEXT NOT NULL DEFAULT '',
			hypothesis TEXT NOT NULL,
			parameters {{json}} NOT NULL,
			datasets {{json}} NOT NULL,
			current_phase TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			thresholds {{json}} NOT NULL,
			strictness {{json}} NOT NULL,
			novelty DOUBLE PRECISION,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at {{timestamp}} NOT NULL,
			updated_at {{timestamp}} NOT NULL
		)`},
	{version: "002_phase_states", sql: `
		CREATE TABLE IF NOT EXISTS phase_states (
			experiment_id TEXT NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
			phase TEXT NOT NULL,
			status TEXT NOT NULL,
			entered_at {{timestamp}},
			exited_at {{timestamp}},
			retry_count INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (experiment_id, phase)
		)`},
	{version: "003_validation_results", sql: `
		CREATE TABLE IF NOT EXISTS validation_results (
			id TEXT PRIMARY KEY,
			experiment_id TEXT NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			stage TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			passed BOOLEAN NOT NULL,
			failure TEXT NOT NULL DEFAULT '',
			composite DOUBLE PRECISION NOT NULL DEFAULT 0,
			body {{json}} NOT NULL,
			created_at {{timestamp}} NOT NULL,
			UNIQUE (experiment_id, seq)
		)`},
	{version: "004_artifacts", sql: `
		CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			experiment_id TEXT NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			claims {{json}} NOT NULL,
			audit {{json}} NOT NULL,
			created_at {{timestamp}} NOT NULL
		)`},
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status, archived)",
	"CREATE INDEX IF NOT EXISTS idx_experiments_created_at ON experiments(created_at)",
	"CREATE INDEX IF NOT EXISTS idx_validations_experiment ON validation_results(experiment_id, seq)",
	"CREATE INDEX IF NOT EXISTS idx_artifacts_experiment ON artifacts(experiment_id, seq)",
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: steps[len(steps)-1].version,
	}
}

// Version returns the latest schema version the runner knows about
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run applies every pending step in order and records it in
// schema_migrations. A recorded step whose checksum changed is refused.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	dialect := DialectFor(db.DriverName())

	if err := r.createMigrationsTable(ctx, db, dialect); err != nil {
		return errors.Wrap(err, "failed to create schema_migrations table")
	}

	applied, err := r.applied(ctx, db)
	if err != nil {
		return errors.Wrap(err, "failed to read applied migrations")
	}

	for _, s := range steps {
		stmt := render(s.sql, dialect)
		sum := checksum(stmt)
		if prev, ok := applied[s.version]; ok {
			if prev != sum {
				return errors.Newf(errors.CodeDatabaseError, "migration %s changed after it was applied", s.version)
			}
			continue
		}
		if err := r.apply(ctx, db, s.version, stmt, sum); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", s.version)
		}
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			return errors.Wrapf(err, "failed to create index")
		}
	}
	return nil
}

func (r *MigrationRunner) createMigrationsTable(ctx context.Context, db *sqlx.DB, d Dialect) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at %s DEFAULT CURRENT_TIMESTAMP
		)`, d.Timestamp))
	return err
}

func (r *MigrationRunner) applied(ctx context.Context, db *sqlx.DB) (map[string]string, error) {
	var rows []struct {
		Version  string `db:"version"`
		Checksum string `db:"checksum"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT version, checksum FROM schema_migrations"); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Version] = row.Checksum
	}
	return out, nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, version, stmt, sum string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO schema_migrations (version, checksum) VALUES (?, ?)"), version, sum); err != nil {
		return err
	}
	return tx.Commit()
}

func render(stmt string, d Dialect) string {
	return strings.NewReplacer("{{json}}", d.JSON, "{{timestamp}}", d.Timestamp).Replace(stmt)
}

func checksum(stmt string) string {
	sum := sha256.Sum256([]byte(stmt))
	return hex.EncodeToString(sum[:])
}
