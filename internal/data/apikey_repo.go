package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// APIKeyRepo provides database operations for API key lookup and issuance.
type APIKeyRepo struct {
	DB *sql.DB
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo {
	return &APIKeyRepo{DB: db}
}

// FindActiveByHash looks up an active API key by its SHA-256 hash. The owning
// user must also exist and not be soft-deleted.
func (r *APIKeyRepo) FindActiveByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT k.id, k.user_id, k.key_hash, k.name, k.webhook_secret,
		       k.active, k.last_used_at, k.created_at
		FROM api_keys k
		JOIN users u ON u.id = k.user_id AND u.deleted_at IS NULL
		WHERE k.key_hash = $1 AND k.active`, keyHash)

	var k model.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.KeyHash, &k.Name, &k.WebhookSecret,
		&k.Active, &k.LastUsedAt, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find api key: %w", apperrors.MapDBError(err))
	}
	return &k, nil
}

// TouchLastUsed records key usage. Best effort; callers log and move on if it
// fails.
func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// Create inserts an API key row. Used by the admin seeder and tests; the
// plaintext key never reaches this layer.
func (r *APIKeyRepo) Create(ctx context.Context, k *model.APIKey) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO api_keys (user_id, key_hash, name, webhook_secret, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		k.UserID, k.KeyHash, k.Name, k.WebhookSecret, k.Active,
	).Scan(&k.ID, &k.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", apperrors.MapDBError(err))
	}
	return nil
}

// WebhookSecretByUserID returns the webhook signing secret for a user's most
// recently created active key. Empty when the user has no active keys.
func (r *APIKeyRepo) WebhookSecretByUserID(ctx context.Context, userID string) (string, error) {
	var secret string
	err := r.DB.QueryRowContext(ctx, `
		SELECT webhook_secret
		FROM api_keys
		WHERE user_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT 1`, userID).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("webhook secret lookup: %w", err)
	}
	return secret, nil
}
