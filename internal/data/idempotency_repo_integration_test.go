package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasskite/darkroom/internal/domain/model"
	"github.com/glasskite/darkroom/internal/testutil"
)

func TestIdempotencyRepo_Integration_InsertAndFind(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		userID := testutil.SeedUser(t, db, "basic", 1)
		repo := NewIdempotencyRepo(db, nil)

		rec := &model.IdempotencyRecord{
			UserID:       userID,
			Key:          "key-1",
			RequestHash:  "hash-1",
			StatusCode:   201,
			ResponseBody: []byte(`{"jobId":"abc"}`),
			ExpiresAt:    time.Now().Add(24 * time.Hour),
		}
		require.NoError(t, repo.Insert(context.Background(), rec))
		assert.NotEmpty(t, rec.ID)

		got, err := repo.FindActive(context.Background(), userID, "key-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "hash-1", got.RequestHash)
		assert.Equal(t, 201, got.StatusCode)
		assert.JSONEq(t, `{"jobId":"abc"}`, string(got.ResponseBody))

		// Unknown key reads as nil, not an error.
		got, err = repo.FindActive(context.Background(), userID, "key-other")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestIdempotencyRepo_Integration_DuplicateKeyConflicts(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		userID := testutil.SeedUser(t, db, "basic", 1)
		repo := NewIdempotencyRepo(db, nil)

		rec := &model.IdempotencyRecord{
			UserID:       userID,
			Key:          "key-1",
			RequestHash:  "hash-1",
			StatusCode:   201,
			ResponseBody: []byte(`{}`),
			ExpiresAt:    time.Now().Add(time.Hour),
		}
		require.NoError(t, repo.Insert(context.Background(), rec))

		dup := &model.IdempotencyRecord{
			UserID:       userID,
			Key:          "key-1",
			RequestHash:  "hash-2",
			StatusCode:   201,
			ResponseBody: []byte(`{}`),
			ExpiresAt:    time.Now().Add(time.Hour),
		}
		err := repo.Insert(context.Background(), dup)
		require.ErrorIs(t, err, ErrIdempotencyConflict)

		// Same key under a different user is fine.
		otherUser := testutil.SeedUser(t, db, "basic", 1)
		other := &model.IdempotencyRecord{
			UserID:       otherUser,
			Key:          "key-1",
			RequestHash:  "hash-1",
			StatusCode:   201,
			ResponseBody: []byte(`{}`),
			ExpiresAt:    time.Now().Add(time.Hour),
		}
		assert.NoError(t, repo.Insert(context.Background(), other))
	})
}

func TestIdempotencyRepo_Integration_ExpiryAndSweep(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		userID := testutil.SeedUser(t, db, "basic", 1)
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewIdempotencyRepo(db, tp)

		rec := &model.IdempotencyRecord{
			UserID:       userID,
			Key:          "key-1",
			RequestHash:  "hash-1",
			StatusCode:   201,
			ResponseBody: []byte(`{}`),
			ExpiresAt:    testutil.TestTime().Add(24 * time.Hour),
		}
		require.NoError(t, repo.Insert(context.Background(), rec))

		got, err := repo.FindActive(context.Background(), userID, "key-1")
		require.NoError(t, err)
		require.NotNil(t, got)

		// Past the TTL the record is invisible to lookups.
		tp.AddTime(24*time.Hour + time.Minute)
		got, err = repo.FindActive(context.Background(), userID, "key-1")
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := repo.DeleteExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
