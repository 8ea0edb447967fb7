package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// APIKeyPrefix marks every issued key so leaked strings are recognizable in
// scanners and logs.
const APIKeyPrefix = "pk_"

// APIKeyStore is the persistence surface AuthService needs.
type APIKeyStore interface {
	FindActiveByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	TouchLastUsed(ctx context.Context, id string) error
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Keys   APIKeyStore  // Required: API key lookup
	Logger *slog.Logger // Optional: structured logger
}

// AuthService resolves bearer API keys to user identities. Keys are stored
// hashed; the lookup hashes the presented key and compares hashes, so the
// database never holds a usable credential.
type AuthService struct {
	keys   APIKeyStore
	logger *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Keys == nil {
		return nil, errors.New("APIKeyStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		keys:   opts.Keys,
		logger: logger.With("component", "auth_service"),
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	svc, err := NewAuthService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// HashAPIKey returns the lowercase hex SHA-256 digest of a plaintext key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey creates a new plaintext API key and its storage hash. The
// plaintext is shown once at issuance and never persisted.
func GenerateAPIKey() (plaintext, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	plaintext = APIKeyPrefix + hex.EncodeToString(buf)
	return plaintext, HashAPIKey(plaintext), nil
}

// Authenticate resolves a presented API key to an AuthContext. Every failure
// mode returns the same unauthorized error so responses do not reveal whether
// a key exists, is inactive, or is malformed.
func (s *AuthService) Authenticate(ctx context.Context, presented string) (*model.AuthContext, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" || !strings.HasPrefix(presented, APIKeyPrefix) {
		return nil, apperrors.Unauthorized("invalid API key")
	}

	key, err := s.keys.FindActiveByHash(ctx, HashAPIKey(presented))
	if err != nil {
		if errors.Is(err, data.ErrAPIKeyNotFound) {
			return nil, apperrors.Unauthorized("invalid API key")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "api key lookup failed")
	}

	// Usage tracking is best effort; auth never fails on it.
	if touchErr := s.keys.TouchLastUsed(ctx, key.ID); touchErr != nil {
		s.logger.WarnContext(ctx, "failed to record api key usage",
			"api_key_id", key.ID, "err", touchErr)
	}

	return &model.AuthContext{
		UserID:        key.UserID,
		APIKeyID:      key.ID,
		WebhookSecret: key.WebhookSecret,
	}, nil
}
