package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

type JobsRepository struct {
	db *sqlx.DB
}

func NewJobsRepository(db *sqlx.DB) *JobsRepository {
	return &JobsRepository{db: db}
}

type jobRow struct {
	ID           string  `db:"id"`
	Type         string  `db:"type"`
	State        string  `db:"state"`
	Progress     float64 `db:"progress"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    string  `db:"updated_at"`
	ParamsJSON   []byte  `db:"params_json"`
	ResultJSON   []byte  `db:"result_json"`
	ErrorCode    string  `db:"error_code"`
	ErrorMessage string  `db:"error_message"`
}

const jobColumns = `id, type, state, progress, created_at, updated_at, params_json, result_json, error_code, error_message`

func (row jobRow) toDomain() domain.Job {
	j := domain.Job{
		ID:           row.ID,
		Type:         row.Type,
		State:        domain.JobState(row.State),
		Progress:     row.Progress,
		ParamsJSON:   row.ParamsJSON,
		ResultJSON:   row.ResultJSON,
		ErrorCode:    row.ErrorCode,
		ErrorMessage: row.ErrorMessage,
	}
	j.CreatedAt, _ = time.Parse(timeLayout, row.CreatedAt)
	j.UpdatedAt, _ = time.Parse(timeLayout, row.UpdatedAt)
	return j
}

// Horodatage à largeur fixe: l'ordre lexicographique suit l'ordre chronologique.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowText() string {
	return time.Now().UTC().Format(timeLayout)
}

func (r *JobsRepository) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO jobs(`+jobColumns+`)
		VALUES(:id, :type, :state, :progress, :created_at, :updated_at, :params_json, :result_json, :error_code, :error_message)
	`, jobRow{
		ID:           job.ID,
		Type:         job.Type,
		State:        string(job.State),
		Progress:     job.Progress,
		CreatedAt:    job.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:    job.UpdatedAt.UTC().Format(timeLayout),
		ParamsJSON:   job.ParamsJSON,
		ResultJSON:   job.ResultJSON,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
	})
	if err != nil {
		return domain.Job{}, err
	}
	return r.Get(ctx, job.ID)
}

func (r *JobsRepository) Get(ctx context.Context, id string) (domain.Job, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, ports.ErrNotFound
		}
		return domain.Job{}, err
	}
	return row.toDomain(), nil
}

func (r *JobsRepository) List(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+jobColumns+` FROM jobs ORDER BY updated_at DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}
	out := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *JobsRepository) ClaimNextQueued(ctx context.Context) (domain.Job, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Job{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.GetContext(ctx, &id, `
		SELECT id
		FROM jobs
		WHERE state = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, string(domain.JobQueued))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, ports.ErrNotFound
		}
		return domain.Job{}, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET state = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, string(domain.JobRunning), nowText(), id, string(domain.JobQueued))
	if err != nil {
		return domain.Job{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Job{}, ports.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return domain.Job{}, err
	}
	return r.Get(ctx, id)
}

func (r *JobsRepository) UpdateProgress(ctx context.Context, id string, progress float64) (domain.Job, error) {
	return r.update(ctx, id, `UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?`, progress, nowText(), id)
}

func (r *JobsRepository) UpdateResult(ctx context.Context, id string, resultJSON []byte) (domain.Job, error) {
	return r.update(ctx, id, `UPDATE jobs SET result_json = ?, updated_at = ? WHERE id = ?`, resultJSON, nowText(), id)
}

func (r *JobsRepository) UpdateError(ctx context.Context, id string, code string, message string) (domain.Job, error) {
	return r.update(ctx, id, `UPDATE jobs SET error_code = ?, error_message = ?, updated_at = ? WHERE id = ?`, code, message, nowText(), id)
}

func (r *JobsRepository) UpdateState(ctx context.Context, id string, expected domain.JobState, next domain.JobState) (domain.Job, error) {
	if !domain.CanTransition(expected, next) {
		return domain.Job{}, domain.ErrInvalidTransition
	}
	return r.update(ctx, id, `
		UPDATE jobs
		SET state = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`, string(next), nowText(), id, string(expected))
}

func (r *JobsRepository) update(ctx context.Context, id string, query string, args ...any) (domain.Job, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Job{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Job{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}
