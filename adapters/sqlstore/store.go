// Package sqlstore implements ports.ExperimentStore on top of sqlx. The same
// queries run against postgres (lib/pq) and sqlite (mattn/go-sqlite3); bind
// variables are written as ? and rebound per driver.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/domain/phase"
	"hypogate/domain/validation"
	"hypogate/internal/errors"
	"hypogate/internal/migration"
	"hypogate/ports"
)

// Store is the SQL experiment store.
type Store struct {
	db *sqlx.DB
}

var _ ports.ExperimentStore = (*Store)(nil)

// Open connects, migrates the schema and returns a ready store. An sqlite
// :memory: database is pinned to one connection so every query sees the
// same schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to connect to %s", driver))
	}
	if driver == "sqlite3" && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return New(db), nil
}

// New wraps an already migrated connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

type experimentRow struct {
	ID             string          `db:"id"`
	Domain         string          `db:"domain"`
	DomainOverride string          `db:"domain_override"`
	Hypothesis     string          `db:"hypothesis"`
	Parameters     string          `db:"parameters"`
	Datasets       string          `db:"datasets"`
	CurrentPhase   string          `db:"current_phase"`
	Status         string          `db:"status"`
	Thresholds     string          `db:"thresholds"`
	Strictness     string          `db:"strictness"`
	Novelty        sql.NullFloat64 `db:"novelty"`
	Archived       bool            `db:"archived"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

const experimentColumns = `id, domain, domain_override, hypothesis, parameters, datasets, current_phase,
	status, thresholds, strictness, novelty, archived, created_at, updated_at`

func (s *Store) SaveExperiment(ctx context.Context, exp *experiment.Experiment) error {
	row, err := toExperimentRow(exp)
	if err != nil {
		return err
	}
	query := s.db.Rebind(`
		INSERT INTO experiments (` + experimentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			domain = excluded.domain,
			domain_override = excluded.domain_override,
			hypothesis = excluded.hypothesis,
			parameters = excluded.parameters,
			datasets = excluded.datasets,
			current_phase = excluded.current_phase,
			status = excluded.status,
			thresholds = excluded.thresholds,
			strictness = excluded.strictness,
			novelty = excluded.novelty,
			archived = excluded.archived,
			updated_at = excluded.updated_at
	`)
	_, err = s.db.ExecContext(ctx, query,
		row.ID, row.Domain, row.DomainOverride, row.Hypothesis, row.Parameters, row.Datasets, row.CurrentPhase,
		row.Status, row.Thresholds, row.Strictness, row.Novelty, row.Archived, row.CreatedAt, row.UpdatedAt)
	return dbError(err, "failed to save experiment")
}

func (s *Store) GetExperiment(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	var row experimentRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+experimentColumns+` FROM experiments WHERE id = ?`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("experiment", id.String())
	}
	if err != nil {
		return nil, dbError(err, "failed to load experiment")
	}
	return row.toExperiment()
}

func (s *Store) ListExperiments(ctx context.Context, filter ports.ListFilter) ([]*experiment.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE 1 = 1`
	var args []interface{}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.IncludeArchived {
		query += " AND archived = ?"
		args = append(args, false)
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []experimentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, dbError(err, "failed to list experiments")
	}
	out := make([]*experiment.Experiment, 0, len(rows))
	for i := range rows {
		exp, err := rows[i].toExperiment()
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

func (s *Store) Archive(ctx context.Context, id core.ExperimentID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE experiments SET archived = ? WHERE id = ?`), true, id.String())
	if err != nil {
		return dbError(err, "failed to archive experiment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("experiment", id.String())
	}
	return nil
}

func (s *Store) SavePhaseState(ctx context.Context, state phase.State) error {
	query := s.db.Rebind(`
		INSERT INTO phase_states (experiment_id, phase, status, entered_at, exited_at, retry_count, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (experiment_id, phase) DO UPDATE SET
			status = excluded.status,
			entered_at = excluded.entered_at,
			exited_at = excluded.exited_at,
			retry_count = excluded.retry_count,
			detail = excluded.detail
	`)
	_, err := s.db.ExecContext(ctx, query,
		state.ExperimentID.String(), string(state.Phase), string(state.Status),
		nullTime(state.EnteredAt), nullTime(state.ExitedAt), state.RetryCount, state.Detail)
	return dbError(err, "failed to save phase state")
}

// GetPhaseRecord returns the full ordered record; phases never saved are
// reported not_started.
func (s *Store) GetPhaseRecord(ctx context.Context, id core.ExperimentID) (*phase.StatusRecord, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	var rows []phase.State
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT experiment_id, phase, status, entered_at, exited_at, retry_count, detail
		FROM phase_states WHERE experiment_id = ?
	`), id.String())
	if err != nil {
		return nil, dbError(err, "failed to load phase states")
	}

	rec := phase.NewStatusRecord(id)
	for _, row := range rows {
		if st, err := rec.Get(row.Phase); err == nil {
			*st = row
		}
	}
	return rec, nil
}

// AppendValidation inserts a result. Results are never updated; a second
// append with the same ID fails.
func (s *Store) AppendValidation(ctx context.Context, result *validation.ValidationResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode validation result")
	}
	return s.withTx(ctx, "failed to append validation result", func(tx *sqlx.Tx) error {
		seq, err := nextSeq(ctx, tx, "validation_results", result.ExperimentID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO validation_results (id, experiment_id, seq, stage, attempt, passed, failure, composite, body, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), result.ID.String(), result.ExperimentID.String(), seq, result.Stage, result.Attempt, result.Passed,
			string(result.Failure), result.Composite, string(body), result.Timestamp)
		return err
	})
}

func (s *Store) ListValidations(ctx context.Context, id core.ExperimentID) ([]*validation.ValidationResult, error) {
	var bodies []string
	err := s.db.SelectContext(ctx, &bodies, s.db.Rebind(`
		SELECT body FROM validation_results WHERE experiment_id = ? ORDER BY seq
	`), id.String())
	if err != nil {
		return nil, dbError(err, "failed to list validation results")
	}
	out := make([]*validation.ValidationResult, 0, len(bodies))
	for _, b := range bodies {
		var res validation.ValidationResult
		if err := json.Unmarshal([]byte(b), &res); err != nil {
			return nil, errors.Wrap(err, "failed to decode validation result")
		}
		out = append(out, &res)
	}
	return out, nil
}

type artifactRow struct {
	ID           string    `db:"id"`
	ExperimentID string    `db:"experiment_id"`
	Kind         string    `db:"kind"`
	Content      string    `db:"content"`
	Claims       string    `db:"claims"`
	Audit        string    `db:"audit"`
	CreatedAt    time.Time `db:"created_at"`
}

// SaveArtifact inserts or replaces an artifact by ID, keeping its position.
func (s *Store) SaveArtifact(ctx context.Context, art *artifacts.Artifact) error {
	claims, err := json.Marshal(nonNilClaims(art.Claims))
	if err != nil {
		return errors.Wrap(err, "failed to encode artifact claims")
	}
	audit, err := json.Marshal(art.Audit)
	if err != nil {
		return errors.Wrap(err, "failed to encode artifact audit")
	}
	return s.withTx(ctx, "failed to save artifact", func(tx *sqlx.Tx) error {
		seq, err := nextSeq(ctx, tx, "artifacts", art.ExperimentID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO artifacts (id, experiment_id, seq, kind, content, claims, audit, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				kind = excluded.kind,
				content = excluded.content,
				claims = excluded.claims,
				audit = excluded.audit
		`), art.ID.String(), art.ExperimentID.String(), seq, string(art.Kind), art.Content,
			string(claims), string(audit), art.CreatedAt)
		return err
	})
}

func (s *Store) ListArtifacts(ctx context.Context, id core.ExperimentID) ([]*artifacts.Artifact, error) {
	var rows []artifactRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, experiment_id, kind, content, claims, audit, created_at
		FROM artifacts WHERE experiment_id = ? ORDER BY seq
	`), id.String())
	if err != nil {
		return nil, dbError(err, "failed to list artifacts")
	}
	out := make([]*artifacts.Artifact, 0, len(rows))
	for _, row := range rows {
		art := &artifacts.Artifact{
			ID:           core.ArtifactID(row.ID),
			ExperimentID: core.ExperimentID(row.ExperimentID),
			Kind:         artifacts.Kind(row.Kind),
			Content:      row.Content,
			CreatedAt:    row.CreatedAt,
		}
		if err := json.Unmarshal([]byte(row.Claims), &art.Claims); err != nil {
			return nil, errors.Wrap(err, "failed to decode artifact claims")
		}
		if err := json.Unmarshal([]byte(row.Audit), &art.Audit); err != nil {
			return nil, errors.Wrap(err, "failed to decode artifact audit")
		}
		out = append(out, art)
	}
	return out, nil
}

func (s *Store) exists(ctx context.Context, id core.ExperimentID) error {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM experiments WHERE id = ?`), id.String())
	if err != nil {
		return dbError(err, "failed to look up experiment")
	}
	if n == 0 {
		return core.NewNotFoundError("experiment", id.String())
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, message string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbError(err, message)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return dbError(err, message)
	}
	return dbError(tx.Commit(), message)
}

// nextSeq returns the next append position for an experiment in table.
func nextSeq(ctx context.Context, tx *sqlx.Tx, table string, id core.ExperimentID) (int, error) {
	var seq int
	err := tx.GetContext(ctx, &seq, tx.Rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM `+table+` WHERE experiment_id = ?`), id.String())
	return seq, err
}

func toExperimentRow(exp *experiment.Experiment) (*experimentRow, error) {
	row := &experimentRow{
		ID:             exp.ID.String(),
		Domain:         string(exp.Domain),
		DomainOverride: exp.DomainOverride,
		Hypothesis:     exp.Hypothesis,
		CurrentPhase:   exp.CurrentPhase,
		Status:         string(exp.Status),
		Archived:       exp.Archived,
		CreatedAt:      exp.CreatedAt,
		UpdatedAt:      exp.UpdatedAt,
	}
	if exp.Novelty != nil {
		row.Novelty = sql.NullFloat64{Float64: *exp.Novelty, Valid: true}
	}
	fields := []struct {
		dst *string
		src interface{}
	}{
		{&row.Parameters, exp.Parameters},
		{&row.Datasets, exp.Datasets},
		{&row.Thresholds, exp.Thresholds},
		{&row.Strictness, exp.Strictness},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.src)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode experiment")
		}
		*f.dst = string(b)
	}
	return row, nil
}

func (row *experimentRow) toExperiment() (*experiment.Experiment, error) {
	exp := &experiment.Experiment{
		ID:             core.ExperimentID(row.ID),
		Domain:         experiment.DomainTag(row.Domain),
		DomainOverride: row.DomainOverride,
		Hypothesis:     row.Hypothesis,
		CurrentPhase:   row.CurrentPhase,
		Status:         experiment.Status(row.Status),
		Archived:       row.Archived,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.Novelty.Valid {
		n := row.Novelty.Float64
		exp.Novelty = &n
	}
	fields := []struct {
		src string
		dst interface{}
	}{
		{row.Parameters, &exp.Parameters},
		{row.Datasets, &exp.Datasets},
		{row.Thresholds, &exp.Thresholds},
		{row.Strictness, &exp.Strictness},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, errors.Wrapf(err, "failed to decode experiment %s", row.ID)
		}
	}
	if exp.Parameters == nil {
		exp.Parameters = map[string]float64{}
	}
	return exp, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nonNilClaims(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func dbError(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, message))
}
