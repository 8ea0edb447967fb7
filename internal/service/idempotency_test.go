package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
	"github.com/glasskite/darkroom/internal/mocks"
	"github.com/glasskite/darkroom/internal/testutil"
)

func TestHashRequestBody_KeyOrderIndependent(t *testing.T) {
	a, err := HashRequestBody([]byte(`{"imageUrl":"https://a/x.jpg","webhookUrl":"https://b/cb"}`))
	require.NoError(t, err)
	b, err := HashRequestBody([]byte(`{"webhookUrl":"https://b/cb","imageUrl":"https://a/x.jpg"}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Whitespace differences do not change the hash either.
	c, err := HashRequestBody([]byte(`{ "imageUrl": "https://a/x.jpg",  "webhookUrl": "https://b/cb" }`))
	require.NoError(t, err)
	assert.Equal(t, a, c)

	// A different body hashes differently.
	d, err := HashRequestBody([]byte(`{"imageUrl":"https://a/OTHER.jpg","webhookUrl":"https://b/cb"}`))
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestHashRequestBody_RejectsNonObject(t *testing.T) {
	_, err := HashRequestBody([]byte(`not json`))
	assert.Error(t, err)
	_, err = HashRequestBody([]byte(`[1,2,3]`))
	assert.Error(t, err)
}

type idemDeps struct {
	store *mocks.MockIdempotencyStore
	cache *mocks.MockByteCache
	clock *data.FixedTimeProvider
}

func newTestIdempotencyService(t *testing.T, withCache bool) (*IdempotencyService, idemDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := idemDeps{
		store: mocks.NewMockIdempotencyStore(ctrl),
		clock: data.NewFixedTimeProvider(testutil.TestTime()),
	}
	opts := IdempotencyServiceOptions{
		Store:        deps.store,
		TTL:          24 * time.Hour,
		TimeProvider: deps.clock,
	}
	if withCache {
		deps.cache = mocks.NewMockByteCache(ctrl)
		opts.Cache = deps.cache
	}
	return MustNewIdempotencyService(opts), deps
}

func activeRecord(hash string) *model.IdempotencyRecord {
	return &model.IdempotencyRecord{
		ID:           "rec-1",
		UserID:       "user-1",
		Key:          "key-1",
		RequestHash:  hash,
		StatusCode:   202,
		ResponseBody: []byte(`{"jobId":"job-1"}`),
		CreatedAt:    testutil.TestTime(),
		ExpiresAt:    testutil.TestTime().Add(24 * time.Hour),
	}
}

func TestIdempotencyService_Lookup_MissAndHit(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, false)

	deps.store.EXPECT().FindActive(gomock.Any(), "user-1", "key-1").Return(nil, nil)
	rec, err := svc.Lookup(context.Background(), "user-1", "key-1", "hash-1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	deps.store.EXPECT().FindActive(gomock.Any(), "user-1", "key-1").
		Return(activeRecord("hash-1"), nil)
	rec, err = svc.Lookup(context.Background(), "user-1", "key-1", "hash-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 202, rec.StatusCode)
}

func TestIdempotencyService_Lookup_HashMismatchIsUnprocessable(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, false)

	deps.store.EXPECT().FindActive(gomock.Any(), "user-1", "key-1").
		Return(activeRecord("hash-1"), nil)

	_, err := svc.Lookup(context.Background(), "user-1", "key-1", "different-hash")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnprocessable(err))
}

func TestIdempotencyService_Lookup_CacheFastPath(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, true)

	raw, err := json.Marshal(activeRecord("hash-1"))
	require.NoError(t, err)
	deps.cache.EXPECT().Get(gomock.Any(), "idem:user-1:key-1").Return(raw, nil)

	// No store call expected: the cache satisfies the lookup.
	rec, err := svc.Lookup(context.Background(), "user-1", "key-1", "hash-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "rec-1", rec.ID)
}

func TestIdempotencyService_Lookup_CacheErrorFallsThrough(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, true)

	deps.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, assert.AnError)
	deps.store.EXPECT().FindActive(gomock.Any(), "user-1", "key-1").
		Return(activeRecord("hash-1"), nil)
	deps.cache.EXPECT().Set(gomock.Any(), "idem:user-1:key-1", gomock.Any(), gomock.Any()).
		Return(nil)

	rec, err := svc.Lookup(context.Background(), "user-1", "key-1", "hash-1")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestIdempotencyService_Lookup_ExpiredCacheEntryIsInvalidated(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, true)

	stale := activeRecord("hash-1")
	stale.ExpiresAt = testutil.TestTime().Add(-time.Minute)
	raw, err := json.Marshal(stale)
	require.NoError(t, err)

	deps.cache.EXPECT().Get(gomock.Any(), "idem:user-1:key-1").Return(raw, nil)
	deps.cache.EXPECT().Delete(gomock.Any(), "idem:user-1:key-1").Return(true, nil)
	deps.store.EXPECT().FindActive(gomock.Any(), "user-1", "key-1").
		Return(activeRecord("hash-1"), nil)
	deps.cache.EXPECT().Set(gomock.Any(), "idem:user-1:key-1", gomock.Any(), gomock.Any()).
		Return(nil)

	rec, err := svc.Lookup(context.Background(), "user-1", "key-1", "hash-1")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestIdempotencyService_Record_OnlySuccessesAreStored(t *testing.T) {
	svc, _ := newTestIdempotencyService(t, false)

	// No store expectations: a 4xx outcome must not be recorded.
	winner, err := svc.Record(context.Background(), "user-1", "key-1", "hash-1",
		402, []byte(`{"error":"payment_required"}`))
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestIdempotencyService_Record_StoresWithTTL(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, false)

	deps.store.EXPECT().Insert(gomock.Any(), gomock.Cond(func(rec *model.IdempotencyRecord) bool {
		return rec.UserID == "user-1" &&
			rec.Key == "key-1" &&
			rec.StatusCode == 202 &&
			rec.ExpiresAt.Equal(testutil.TestTime().Add(24*time.Hour))
	})).Return(nil)

	winner, err := svc.Record(context.Background(), "user-1", "key-1", "hash-1",
		202, []byte(`{"jobId":"job-1"}`))
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestIdempotencyService_Record_ConflictReplaysWinner(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, false)

	deps.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(data.ErrIdempotencyConflict)
	deps.store.EXPECT().FindActive(gomock.Any(), "user-1", "key-1").
		Return(activeRecord("hash-1"), nil)

	winner, err := svc.Record(context.Background(), "user-1", "key-1", "hash-1",
		202, []byte(`{"jobId":"job-2"}`))
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.JSONEq(t, `{"jobId":"job-1"}`, string(winner.ResponseBody))
}

func TestIdempotencyService_Record_ConflictWithDifferentHash(t *testing.T) {
	svc, deps := newTestIdempotencyService(t, false)

	deps.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(data.ErrIdempotencyConflict)
	deps.store.EXPECT().FindActive(gomock.Any(), "user-1", "key-1").
		Return(activeRecord("other-hash"), nil)

	_, err := svc.Record(context.Background(), "user-1", "key-1", "hash-1",
		202, []byte(`{}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsUnprocessable(err))
}
