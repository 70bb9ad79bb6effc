package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Batmanabcdefg/hp-afem/internal/trace"
)

// ErrRunNotFound is returned for run ids that are not stored.
var ErrRunNotFound = errors.New("db: run not found")

// RunInfo describes a stored run without its iterations.
type RunInfo struct {
	ID         string              `json:"id"`
	Source     string              `json:"source"`
	Params     trace.RunParameters `json:"-"`
	Options    trace.Options       `json:"-"`
	Records    int                 `json:"records"`
	IngestedAt time.Time           `json:"ingested_at"`
}

// SaveTrace stores t under a new run id. Traces whose outer iterations are
// not grouped are flagged so LoadTrace can rebuild them.
func (db *DB) SaveTrace(ctx context.Context, source string, t *trace.RunTrace) (string, error) {
	id := uuid.NewString()
	p := t.Params
	skipGrouping := 0
	if trace.CheckGrouping(t.Outer) != nil {
		skipGrouping = 1
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, source, mesh_file, rhs_file, initial_degree, initial_triangles,
			h_refines, p_refines, initial_error, theta, omega, mu,
			skip_grouping_check, record_count, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, source,
		nullString(p, trace.LabelMeshFile, p.MeshFile),
		nullString(p, trace.LabelRHSFile, p.RHSFile),
		nullInt(p, trace.LabelInitialDegree, p.InitialDegree),
		nullInt(p, trace.LabelTriangles, p.InitialTriangles),
		nullInt(p, trace.LabelHRefines, p.HRefines),
		nullInt(p, trace.LabelPRefines, p.PRefines),
		nullParam(p, trace.LabelInitialError, p.InitialError),
		nullParam(p, trace.LabelTheta, p.Theta),
		nullParam(p, trace.LabelOmega, p.Omega),
		nullParam(p, trace.LabelMu, p.Mu),
		skipGrouping, t.Len(), db.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO iterations (
			run_id, idx, timestamp, outer_iter, inner_iter, dofs, estimate,
			broken, pinf, complexity, preval, hours, epsilon, broken_epsilon, riits
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare iteration insert: %w", err)
	}
	defer stmt.Close()

	for n := 0; n < t.Len(); n++ {
		r := t.Record(n)
		_, err := stmt.ExecContext(ctx,
			id, n, r.Timestamp, r.Outer, r.Inner, r.DOFs, nullFloat(r.Estimate),
			nullFloat(r.Broken), r.Pinf, r.Complexity, nullFloat(r.Preval),
			nullFloat(r.Hours), nullFloat(r.Epsilon), nullFloat(r.BrokenEpsilon), r.Riits,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert iteration %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const runColumns = `id, source, mesh_file, rhs_file, initial_degree, initial_triangles,
	h_refines, p_refines, initial_error, theta, omega, mu,
	skip_grouping_check, record_count, ingested_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunInfo, error) {
	var (
		info                     RunInfo
		meshFile, rhsFile        sql.NullString
		degree, tris, href, pref sql.NullInt64
		eps0, theta, omega, mu   sql.NullFloat64
		skip, ingested           int64
	)
	err := row.Scan(&info.ID, &info.Source, &meshFile, &rhsFile, &degree, &tris,
		&href, &pref, &eps0, &theta, &omega, &mu, &skip, &info.Records, &ingested)
	if err != nil {
		return RunInfo{}, err
	}

	p := &info.Params
	setString(p, trace.LabelMeshFile, &p.MeshFile, meshFile)
	setString(p, trace.LabelRHSFile, &p.RHSFile, rhsFile)
	setInt(p, trace.LabelInitialDegree, &p.InitialDegree, degree)
	setInt(p, trace.LabelTriangles, &p.InitialTriangles, tris)
	setInt(p, trace.LabelHRefines, &p.HRefines, href)
	setInt(p, trace.LabelPRefines, &p.PRefines, pref)
	setFloat(p, trace.LabelInitialError, &p.InitialError, eps0)
	setFloat(p, trace.LabelTheta, &p.Theta, theta)
	setFloat(p, trace.LabelOmega, &p.Omega, omega)
	setFloat(p, trace.LabelMu, &p.Mu, mu)

	info.Options.SkipGroupingCheck = skip != 0
	info.IngestedAt = time.Unix(0, ingested).UTC()
	return info, nil
}

// Run returns the metadata of a stored run.
func (db *DB) Run(ctx context.Context, id string) (RunInfo, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("failed to read run: %w", err)
	}
	return info, nil
}

// ListRuns returns every stored run, oldest first.
func (db *DB) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY ingested_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// LoadTrace reads a stored run back. The derived series are recomputed from
// the stored records, so the result equals the trace that was saved.
func (db *DB) LoadTrace(ctx context.Context, id string) (*trace.RunTrace, error) {
	info, err := db.Run(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT timestamp, outer_iter, inner_iter, dofs, estimate, broken, pinf, complexity, preval
		FROM iterations WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query iterations: %w", err)
	}
	defer rows.Close()

	var r trace.Records
	for rows.Next() {
		var (
			ts                             int64
			outer, inner, dofs, pinf, cplx int
			est, broken, preval            sql.NullFloat64
		)
		if err := rows.Scan(&ts, &outer, &inner, &dofs, &est, &broken, &pinf, &cplx, &preval); err != nil {
			return nil, fmt.Errorf("failed to scan iteration: %w", err)
		}
		r.Timestamps = append(r.Timestamps, ts)
		r.Outer = append(r.Outer, outer)
		r.Inner = append(r.Inner, inner)
		r.DOFs = append(r.DOFs, dofs)
		r.Estimates = append(r.Estimates, floatOrNaN(est))
		r.Broken = append(r.Broken, floatOrNaN(broken))
		r.Pinf = append(r.Pinf, pinf)
		r.Complexity = append(r.Complexity, cplx)
		r.Preval = append(r.Preval, floatOrNaN(preval))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read iterations: %w", err)
	}

	t, err := trace.Build(info.Params, r, info.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild run %s: %w", id, err)
	}
	return t, nil
}

// DeleteRun removes a run and its iterations.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM iterations WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete iterations: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

// SQLite stores NaN as NULL; the helpers below make that explicit.

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullParam(p trace.RunParameters, l trace.Label, v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: p.Has(l)}
}

func nullInt(p trace.RunParameters, l trace.Label, v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: p.Has(l)}
}

func nullString(p trace.RunParameters, l trace.Label, v string) sql.NullString {
	return sql.NullString{String: v, Valid: p.Has(l)}
}

func setString(p *trace.RunParameters, l trace.Label, dst *string, v sql.NullString) {
	if v.Valid {
		*dst = v.String
		p.Present = p.Present.With(l)
	}
}

func setInt(p *trace.RunParameters, l trace.Label, dst *int, v sql.NullInt64) {
	if v.Valid {
		*dst = int(v.Int64)
		p.Present = p.Present.With(l)
	}
}

func setFloat(p *trace.RunParameters, l trace.Label, dst *float64, v sql.NullFloat64) {
	if v.Valid {
		*dst = v.Float64
		p.Present = p.Present.With(l)
	}
}
