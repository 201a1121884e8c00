package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	domain "github.com/ahmethakanbesel/price-tracker/internal/job"
	"github.com/ahmethakanbesel/price-tracker/internal/platform/sqldb"
)

const columns = `id, kind, payload, status, error, records_count, failed_count, created_at, updated_at`

type Repository struct {
	db *sqldb.DB
}

func NewRepository(db *sqldb.DB) *Repository {
	return &Repository{db: db}
}

func timestamp() (time.Time, string) {
	t := time.Now().UTC().Truncate(time.Second)
	return t, t.Format(time.RFC3339)
}

func (r *Repository) Create(ctx context.Context, j *domain.Job) error {
	const query = `INSERT INTO jobs (kind, payload, status, records_count, failed_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`

	now, nowStr := timestamp()
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query),
		string(j.Kind), j.Payload, string(j.Status),
		j.RecordsCount, j.FailedCount, nowStr, nowStr,
	).Scan(&j.ID)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	j.CreatedAt = now
	j.UpdatedAt = now
	return nil
}

func (r *Repository) Update(ctx context.Context, j *domain.Job) error {
	const query = `UPDATE jobs SET status = ?, error = ?, records_count = ?, failed_count = ?, updated_at = ?
		WHERE id = ?`

	now, nowStr := timestamp()
	var errStr sql.NullString
	if j.Error != "" {
		errStr = sql.NullString{String: j.Error, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		string(j.Status), errStr, j.RecordsCount, j.FailedCount, nowStr, j.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	j.UpdatedAt = now
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+columns+` FROM jobs WHERE id = ?`), id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *Repository) List(ctx context.Context, kind domain.Kind, status domain.Status) ([]domain.Job, error) {
	query := `SELECT ` + columns + ` FROM jobs WHERE 1=1`

	var args []any
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id DESC LIMIT 100"

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}

	return jobs, rows.Err()
}

// ClaimPending moves the oldest pending job to running and returns it, or
// nil when nothing is queued.
func (r *Repository) ClaimPending(ctx context.Context) (*domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim pending: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sel := `SELECT id FROM jobs WHERE status = 'pending' ORDER BY id ASC LIMIT 1`
	if r.db.Dialect == sqldb.Postgres {
		sel += ` FOR UPDATE SKIP LOCKED`
	}

	var id int64
	err = tx.QueryRowContext(ctx, sel).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending: select: %w", err)
	}

	_, nowStr := timestamp()
	_, err = tx.ExecContext(ctx,
		r.db.Rebind(`UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ?`),
		nowStr, id,
	)
	if err != nil {
		return nil, fmt.Errorf("claim pending: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim pending: commit: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *Repository) RecoverStale(ctx context.Context) (int64, error) {
	const query = `UPDATE jobs SET status = 'pending', error = NULL, updated_at = ?
		WHERE status = 'running'`

	_, nowStr := timestamp()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), nowStr)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}

	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*domain.Job, error) {
	j := &domain.Job{}
	var kind, status, createdStr, updatedStr string
	var dbErr sql.NullString

	if err := s.Scan(
		&j.ID, &kind, &j.Payload, &status, &dbErr,
		&j.RecordsCount, &j.FailedCount, &createdStr, &updatedStr,
	); err != nil {
		return nil, err
	}

	j.Kind = domain.Kind(kind)
	j.Status = domain.Status(status)
	if dbErr.Valid {
		j.Error = dbErr.String
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return j, nil
}
