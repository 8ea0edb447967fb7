package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glasskite/darkroom/internal/data/pgxutil"
	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// LedgerRepo owns the credit and concurrency admission path. Every credit
// mutation goes through the single-transaction Admit/Refund operations so the
// credits >= 0 invariant holds under concurrent requests.
type LedgerRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(db *sql.DB, logger *slog.Logger) *LedgerRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerRepo{DB: db, logger: logger.With("component", "ledger_repo")}
}

// Admit atomically checks the user's concurrency limit and credit balance,
// deducts one credit, and inserts the job in queued state. The user row is
// locked for the duration of the transaction so two concurrent requests from
// the same user serialize; checks happen in a fixed order so the caller can
// tell a concurrency rejection (429) from a credit rejection (402).
func (r *LedgerRepo) Admit(ctx context.Context, userID string, req *model.CreateJobRequest) (*model.Job, error) {
	var job *model.Job

	err := pgxutil.WithSQLTx(ctx, r.DB, func(tx *sql.Tx) error {
		var plan model.Plan
		var credits int
		err := tx.QueryRowContext(ctx, `
			SELECT plan, credits
			FROM users
			WHERE id = $1 AND deleted_at IS NULL
			FOR UPDATE`, userID).Scan(&plan, &credits)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user row: %w", apperrors.MapDBError(err))
		}

		var inFlight int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM jobs
			WHERE user_id = $1 AND status IN ('queued', 'processing')`, userID).Scan(&inFlight)
		if err != nil {
			return fmt.Errorf("count in-flight jobs: %w", err)
		}
		if inFlight >= plan.ConcurrencyLimit() {
			return &ConcurrencyLimitError{Limit: plan.ConcurrencyLimit(), Count: inFlight}
		}

		if credits < 1 {
			return ErrInsufficientCredits
		}

		// Guarded deduct. The FOR UPDATE lock already serializes writers;
		// the credits >= 1 predicate backstops the check above.
		res, err := tx.ExecContext(ctx, `
			UPDATE users
			SET credits = credits - 1, updated_at = now()
			WHERE id = $1 AND credits >= 1`, userID)
		if err != nil {
			return fmt.Errorf("deduct credit: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deduct credit rows: %w", err)
		}
		if affected == 0 {
			return ErrInsufficientCredits
		}

		var optionsJSON []byte
		if req.Options != nil {
			optionsJSON, err = json.Marshal(req.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
		}

		job = &model.Job{
			UserID:     userID,
			Status:     model.JobStatusQueued,
			ImageURL:   req.ImageURL,
			WebhookURL: req.WebhookURL,
			Options:    req.Options,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO jobs (user_id, status, image_url, webhook_url, options)
			VALUES ($1, 'queued', $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			userID, req.ImageURL, req.WebhookURL, optionsJSON,
		).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert job: %w", apperrors.MapDBError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "job admitted", "job_id", job.ID, "user_id", userID)
	return job, nil
}

// RefundCredit unconditionally returns one credit to the user. Used by
// dispatch-failure compensation; it never fails on a missing balance because
// refunds only follow successful deducts.
func (r *LedgerRepo) RefundCredit(ctx context.Context, userID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET credits = credits + 1, updated_at = now()
		WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("refund credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("refund credit rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CompensateDispatchFailure refunds the admission credit and marks the job
// failed with the given error code in a single transaction, so a crash between
// the two steps cannot strand a paid-for job.
func (r *LedgerRepo) CompensateDispatchFailure(ctx context.Context, userID, jobID, errCode, errMsg string) error {
	err := pgxutil.WithSQLTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET credits = credits + 1, updated_at = now()
			WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("refund credit: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    error_code = $2,
			    error_message = $3,
			    failed_at = now(),
			    updated_at = now()
			WHERE id = $1 AND status IN ('queued', 'processing')`,
			jobID, errCode, errMsg); err != nil {
			return fmt.Errorf("mark job failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.WarnContext(ctx, "dispatch failure compensated",
		"job_id", jobID, "user_id", userID, "error_code", errCode)
	return nil
}
