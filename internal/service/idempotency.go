package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// IdempotencyStore is the persistence surface IdempotencyService needs.
// Postgres backs it; the UNIQUE (user_id, idempotency_key) constraint breaks
// ties between concurrent writers.
type IdempotencyStore interface {
	FindActive(ctx context.Context, userID, key string) (*model.IdempotencyRecord, error)
	Insert(ctx context.Context, rec *model.IdempotencyRecord) error
}

// ByteCache is a best-effort response cache in front of the store. A nil
// value from Get means miss.
type ByteCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
}

// IdempotencyServiceOptions groups dependencies for IdempotencyService.
type IdempotencyServiceOptions struct {
	Store        IdempotencyStore  // Required: authoritative record store
	Cache        ByteCache         // Optional: read-through cache (Redis)
	TTL          time.Duration     // Optional: record lifetime, defaults to 24h
	Logger       *slog.Logger      // Optional: structured logger
	TimeProvider data.TimeProvider // Optional: clock override for tests
}

// IdempotencyService caches successful job-creation responses per
// (user, Idempotency-Key) so network retries do not double-charge. Only 2xx
// responses are recorded; a reused key with a different request body is
// rejected rather than replayed.
type IdempotencyService struct {
	store        IdempotencyStore
	cache        ByteCache
	ttl          time.Duration
	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewIdempotencyService constructs a new IdempotencyService.
func NewIdempotencyService(opts IdempotencyServiceOptions) (*IdempotencyService, error) {
	if opts.Store == nil {
		return nil, errors.New("IdempotencyStore is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &IdempotencyService{
		store:        opts.Store,
		cache:        opts.Cache,
		ttl:          ttl,
		logger:       logger.With("component", "idempotency_service"),
		timeProvider: tp,
	}, nil
}

// MustNewIdempotencyService constructs a new IdempotencyService and panics on error.
func MustNewIdempotencyService(opts IdempotencyServiceOptions) *IdempotencyService {
	svc, err := NewIdempotencyService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// HashRequestBody computes the canonical fingerprint of a request body:
// lowercase hex SHA-256 of the JSON re-encoded with sorted keys. Two bodies
// that differ only in key order or whitespace hash identically.
func HashRequestBody(body []byte) (string, error) {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("request body is not a JSON object: %w", err)
	}
	// encoding/json sorts map keys deterministically on marshal.
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalize request body: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Lookup returns the cached record for (userID, key) if one exists. A record
// whose stored request hash differs from requestHash means the key is being
// reused for a different request and yields an unprocessable error.
func (s *IdempotencyService) Lookup(ctx context.Context, userID, key, requestHash string) (*model.IdempotencyRecord, error) {
	if rec := s.cacheGet(ctx, userID, key); rec != nil {
		return s.checkHash(rec, requestHash)
	}

	rec, err := s.store.FindActive(ctx, userID, key)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "idempotency lookup failed")
	}
	if rec == nil {
		return nil, nil
	}
	s.cachePut(ctx, rec)
	return s.checkHash(rec, requestHash)
}

// Record stores a successful response for future replays. Non-2xx outcomes
// are never recorded so a failed attempt can be retried with the same key.
// When a concurrent request with the same key won the insert race, the
// winner's record is returned so the caller can replay it.
func (s *IdempotencyService) Record(ctx context.Context, userID, key, requestHash string, statusCode int, responseBody []byte) (*model.IdempotencyRecord, error) {
	if statusCode < 200 || statusCode >= 300 {
		return nil, nil
	}

	now := s.timeProvider.Now().UTC()
	rec := &model.IdempotencyRecord{
		UserID:       userID,
		Key:          key,
		RequestHash:  requestHash,
		StatusCode:   statusCode,
		ResponseBody: responseBody,
		ExpiresAt:    now.Add(s.ttl),
	}

	err := s.store.Insert(ctx, rec)
	if err == nil {
		s.cachePut(ctx, rec)
		return nil, nil
	}
	if !errors.Is(err, data.ErrIdempotencyConflict) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "idempotency record failed")
	}

	// Lost the insert race. Re-read the winner and hand it back for replay.
	winner, lookupErr := s.store.FindActive(ctx, userID, key)
	if lookupErr != nil {
		return nil, apperrors.Wrap(lookupErr, apperrors.ErrCodeInternal, "idempotency re-read failed")
	}
	if winner == nil {
		// Winner expired between insert and re-read. Nothing to replay.
		return nil, nil
	}
	return s.checkHash(winner, requestHash)
}

func (s *IdempotencyService) checkHash(rec *model.IdempotencyRecord, requestHash string) (*model.IdempotencyRecord, error) {
	if rec.RequestHash != requestHash {
		return nil, apperrors.Unprocessable(
			"idempotency key was already used with a different request body")
	}
	return rec, nil
}

func cacheKey(userID, key string) string {
	return "idem:" + userID + ":" + key
}

func (s *IdempotencyService) cacheGet(ctx context.Context, userID, key string) *model.IdempotencyRecord {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey(userID, key))
	if err != nil {
		s.logger.WarnContext(ctx, "idempotency cache read failed", "err", err)
		return nil
	}
	if raw == nil {
		return nil
	}
	var rec model.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.WarnContext(ctx, "idempotency cache entry corrupt", "err", err)
		return nil
	}
	if rec.Expired(s.timeProvider.Now().UTC()) {
		// Stale entry outlived its record. Drop it so later lookups go
		// straight to the store.
		if _, err := s.cache.Delete(ctx, cacheKey(userID, key)); err != nil {
			s.logger.WarnContext(ctx, "idempotency cache invalidation failed", "err", err)
		}
		return nil
	}
	return &rec
}

func (s *IdempotencyService) cachePut(ctx context.Context, rec *model.IdempotencyRecord) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(rec.UserID, rec.Key), raw, ttl); err != nil {
		s.logger.WarnContext(ctx, "idempotency cache write failed", "err", err)
	}
}
