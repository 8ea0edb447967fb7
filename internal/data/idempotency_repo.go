package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// IdempotencyRepo persists cached responses for idempotent job creation.
// Postgres is authoritative; the UNIQUE (user_id, idempotency_key) constraint
// is the race-breaker for concurrent requests with the same key.
type IdempotencyRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(db *sql.DB, tp TimeProvider) *IdempotencyRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &IdempotencyRepo{DB: db, timeProvider: tp}
}

// FindActive returns the unexpired record for (userID, key), or nil when no
// usable record exists. Expired rows are invisible here; a sweep removes them
// out of band.
func (r *IdempotencyRepo) FindActive(ctx context.Context, userID, key string) (*model.IdempotencyRecord, error) {
	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, idempotency_key, request_hash, status_code,
		       response_body, created_at, expires_at
		FROM idempotency_keys
		WHERE user_id = $1 AND idempotency_key = $2 AND expires_at > $3`,
		userID, key, now)

	var rec model.IdempotencyRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Key, &rec.RequestHash,
		&rec.StatusCode, &rec.ResponseBody, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find idempotency record: %w", apperrors.MapDBError(err))
	}
	return &rec, nil
}

// Insert stores a new record. A unique violation means a concurrent request
// with the same key committed first; callers re-read and replay that winner's
// response instead of failing.
func (r *IdempotencyRepo) Insert(ctx context.Context, rec *model.IdempotencyRecord) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO idempotency_keys
			(user_id, idempotency_key, request_hash, status_code, response_body, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		rec.UserID, rec.Key, rec.RequestHash, rec.StatusCode,
		rec.ResponseBody, rec.ExpiresAt.UTC(),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("insert idempotency record: %w", apperrors.MapDBError(err))
	}
	return nil
}

// DeleteExpired removes records past their TTL. Returns the number removed.
func (r *IdempotencyRepo) DeleteExpired(ctx context.Context) (int64, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM idempotency_keys WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired rows: %w", err)
	}
	return n, nil
}
