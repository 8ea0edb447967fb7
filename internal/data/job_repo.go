package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// JobRepo provides database operations for job lifecycle management.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// JobRepoConfig holds optional dependencies for JobRepo.
type JobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewJobRepo creates a new JobRepo instance.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "job_repo"),
	}
}

const jobColumns = `
  id,
  user_id,
  status,
  image_url,
  webhook_url,
  options,
  result_url,
  error_code,
  error_message,
  created_at,
  updated_at,
  completed_at,
  failed_at
`

func scanJob(row *sql.Row) (*model.Job, error) {
	var j model.Job
	var optionsJSON []byte
	err := row.Scan(&j.ID, &j.UserID, &j.Status, &j.ImageURL, &j.WebhookURL,
		&optionsJSON, &j.ResultURL, &j.ErrorCode, &j.ErrorMsg,
		&j.CreatedAt, &j.UpdatedAt, &j.CompletedAt, &j.FailedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", apperrors.MapDBError(err))
	}
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &j.Options); err != nil {
			return nil, fmt.Errorf("unmarshal job options: %w", err)
		}
	}
	return &j, nil
}

// GetByID fetches a job by id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1`, id)
	return scanJob(row)
}

// GetByIDForUser fetches a job by id scoped to its owner. A job owned by a
// different user comes back as ErrJobNotFound, never as a permission error,
// so job ids are not probeable.
func (r *JobRepo) GetByIDForUser(ctx context.Context, id, userID string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1 AND user_id = $2`, id, userID)
	return scanJob(row)
}

// MarkProcessing transitions a queued job to processing after a successful
// dispatch. Returns false if the job was not in queued state.
func (r *JobRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status = 'queued'`, id)
	if err != nil {
		return false, fmt.Errorf("mark processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark processing rows: %w", err)
	}
	return affected > 0, nil
}

// MarkCompleted transitions a job to completed with its result URL. The
// status predicate makes terminal states sticky: a second callback for the
// same job matches zero rows and the method reports false.
func (r *JobRepo) MarkCompleted(ctx context.Context, id, resultURL string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    result_url = $2,
		    completed_at = $3,
		    updated_at = now()
		WHERE id = $1 AND status IN ('queued', 'processing')`,
		id, resultURL, now)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark completed rows: %w", err)
	}
	return affected > 0, nil
}

// MarkFailed transitions a job to failed with an error code and message.
// Same sticky-terminal semantics as MarkCompleted.
func (r *JobRepo) MarkFailed(ctx context.Context, id, errCode, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'failed',
		    error_code = $2,
		    error_message = $3,
		    failed_at = $4,
		    updated_at = now()
		WHERE id = $1 AND status IN ('queued', 'processing')`,
		id, errCode, errMsg, now)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark failed rows: %w", err)
	}
	return affected > 0, nil
}

// CountInFlight returns the number of queued or processing jobs for a user.
// Admission uses the locked variant inside LedgerRepo.Admit; this one serves
// diagnostics and tests.
func (r *JobRepo) CountInFlight(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM jobs
		WHERE user_id = $1 AND status IN ('queued', 'processing')`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count in-flight jobs: %w", err)
	}
	return n, nil
}
