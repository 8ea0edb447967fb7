package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/domain/model"
	"github.com/glasskite/darkroom/internal/mocks"
	"github.com/glasskite/darkroom/internal/service"
)

const (
	testAPIKey         = "pk_0123456789abcdef0123456789abcdef"
	testCallbackSecret = "internal-secret"
)

type routerDeps struct {
	keys       *mocks.MockAPIKeyStore
	ledger     *mocks.MockLedger
	jobs       *mocks.MockJobStore
	dispatcher *mocks.MockDispatcher
	urlCheck   *mocks.MockURLChecker
	idemStore  *mocks.MockIdempotencyStore
	secrets    *mocks.MockSecretSource
	webhooks   *mocks.MockWebhookDeliverer
}

func newTestRouter(t *testing.T) (http.Handler, routerDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := routerDeps{
		keys:       mocks.NewMockAPIKeyStore(ctrl),
		ledger:     mocks.NewMockLedger(ctrl),
		jobs:       mocks.NewMockJobStore(ctrl),
		dispatcher: mocks.NewMockDispatcher(ctrl),
		urlCheck:   mocks.NewMockURLChecker(ctrl),
		idemStore:  mocks.NewMockIdempotencyStore(ctrl),
		secrets:    mocks.NewMockSecretSource(ctrl),
		webhooks:   mocks.NewMockWebhookDeliverer(ctrl),
	}

	router := NewRouter(RouterServices{
		Auth: service.MustNewAuthService(service.AuthServiceOptions{Keys: deps.keys}),
		Jobs: service.MustNewJobService(service.JobServiceOptions{
			Ledger:     deps.ledger,
			Jobs:       deps.jobs,
			Dispatcher: deps.dispatcher,
			URLCheck:   deps.urlCheck,
			BaseURL:    "https://api.darkroom.example",
		}),
		Idempotency: service.MustNewIdempotencyService(service.IdempotencyServiceOptions{
			Store: deps.idemStore,
		}),
		Callbacks: service.MustNewCallbackService(service.CallbackServiceOptions{
			Jobs:     deps.jobs,
			Secrets:  deps.secrets,
			Webhooks: deps.webhooks,
		}),
		CallbackSecret: testCallbackSecret,
	})
	return router, deps
}

func expectAuthenticated(deps routerDeps) {
	deps.keys.EXPECT().FindActiveByHash(gomock.Any(), service.HashAPIKey(testAPIKey)).
		Return(&model.APIKey{ID: "key-1", UserID: "user-1", WebhookSecret: "whsec"}, nil)
	deps.keys.EXPECT().TouchLastUsed(gomock.Any(), "key-1").Return(nil)
}

func doRequest(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func createJobRequest(body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

const validCreateBody = `{"imageUrl":"https://cdn.example.com/in.jpg","webhookUrl":"https://hooks.example.com/done"}`

func TestRouter_CreateJob_Success(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", gomock.Any()).Return(&model.Job{
		ID:        "job-1",
		UserID:    "user-1",
		Status:    model.JobStatusQueued,
		CreatedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}, nil)
	deps.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	rr := doRequest(router, createJobRequest(validCreateBody, nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp["jobId"])
	assert.Equal(t, "queued", resp["status"])
	assert.Equal(t, "https://api.darkroom.example/v1/jobs/job-1", resp["statusUrl"])
	assert.NotEmpty(t, resp["createdAt"])
}

func TestRouter_CreateJob_MissingAPIKey(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(validCreateBody))
	rr := doRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, float64(401), envelope["statusCode"])
	assert.Equal(t, "Unauthorized", envelope["error"])
	assert.NotEmpty(t, envelope["timestamp"])
}

func TestRouter_CreateJob_InsufficientCreditsEnvelope(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", gomock.Any()).
		Return(nil, data.ErrInsufficientCredits)

	rr := doRequest(router, createJobRequest(validCreateBody, nil))
	require.Equal(t, http.StatusPaymentRequired, rr.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, float64(402), envelope["statusCode"])
	assert.Equal(t, "Payment Required", envelope["error"])
	metadata, ok := envelope["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_CREDITS", metadata["code"])
}

func TestRouter_CreateJob_ConcurrencyLimitEnvelope(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", gomock.Any()).
		Return(nil, &data.ConcurrencyLimitError{Limit: 1, Count: 1})

	rr := doRequest(router, createJobRequest(validCreateBody, nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	metadata, ok := envelope["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), metadata["limit"])
	assert.Equal(t, float64(1), metadata["current"])
}

func TestRouter_CreateJob_DispatchFailure(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", gomock.Any()).
		Return(&model.Job{ID: "job-1", UserID: "user-1", Status: model.JobStatusQueued}, nil)
	deps.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(assert.AnError)
	deps.ledger.EXPECT().CompensateDispatchFailure(gomock.Any(), "user-1", "job-1",
		"DISPATCH_FAILED", gomock.Any()).Return(nil)

	rr := doRequest(router, createJobRequest(validCreateBody, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouter_CreateJob_IdempotentReplay(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	hash, err := service.HashRequestBody([]byte(validCreateBody))
	require.NoError(t, err)

	stored := []byte(`{"jobId":"job-1","status":"queued","statusUrl":"https://api.darkroom.example/v1/jobs/job-1","createdAt":"2025-06-15T12:00:00Z"}`)
	deps.idemStore.EXPECT().FindActive(gomock.Any(), "user-1", "idem-1").
		Return(&model.IdempotencyRecord{
			UserID:       "user-1",
			Key:          "idem-1",
			RequestHash:  hash,
			StatusCode:   http.StatusAccepted,
			ResponseBody: stored,
			ExpiresAt:    time.Now().Add(time.Hour),
		}, nil)

	// No admit, no dispatch: the stored response is replayed verbatim.
	rr := doRequest(router, createJobRequest(validCreateBody, map[string]string{
		"Idempotency-Key": "idem-1",
	}))
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "true", rr.Header().Get("Idempotency-Replay"))
	assert.Equal(t, string(stored), rr.Body.String())
}

func TestRouter_CreateJob_IdempotencyKeyReuseRejected(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	deps.idemStore.EXPECT().FindActive(gomock.Any(), "user-1", "idem-1").
		Return(&model.IdempotencyRecord{
			UserID:      "user-1",
			Key:         "idem-1",
			RequestHash: "a-different-hash",
			StatusCode:  http.StatusAccepted,
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil)

	rr := doRequest(router, createJobRequest(validCreateBody, map[string]string{
		"Idempotency-Key": "idem-1",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRouter_CreateJob_RecordsSuccessfulResponse(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	deps.idemStore.EXPECT().FindActive(gomock.Any(), "user-1", "idem-1").Return(nil, nil)
	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", gomock.Any()).
		Return(&model.Job{ID: "job-1", UserID: "user-1", Status: model.JobStatusQueued}, nil)
	deps.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	deps.idemStore.EXPECT().Insert(gomock.Any(), gomock.Cond(func(rec *model.IdempotencyRecord) bool {
		return rec.Key == "idem-1" && rec.StatusCode == http.StatusAccepted
	})).Return(nil)

	rr := doRequest(router, createJobRequest(validCreateBody, map[string]string{
		"Idempotency-Key": "idem-1",
	}))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestRouter_CreateJob_RecordFailureStillAccepts(t *testing.T) {
	router, deps := newTestRouter(t)
	expectAuthenticated(deps)

	deps.idemStore.EXPECT().FindActive(gomock.Any(), "user-1", "idem-1").Return(nil, nil)
	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", gomock.Any()).
		Return(&model.Job{ID: "job-1", UserID: "user-1", Status: model.JobStatusQueued}, nil)
	deps.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	deps.idemStore.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(assert.AnError)

	// The job was created and dispatched; a failed bookkeeping write must not
	// turn the response into a 500 and provoke a double-spending retry.
	rr := doRequest(router, createJobRequest(validCreateBody, map[string]string{
		"Idempotency-Key": "idem-1",
	}))
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Empty(t, rr.Header().Get("Idempotency-Replay"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp["jobId"])
}

func TestRouter_GetJob(t *testing.T) {
	t.Run("completed job", func(t *testing.T) {
		router, deps := newTestRouter(t)
		expectAuthenticated(deps)

		now := time.Now().UTC()
		resultURL := "https://results.example.com/out.jpg"
		deps.jobs.EXPECT().GetByIDForUser(gomock.Any(), "job-1", "user-1").Return(&model.Job{
			ID:          "job-1",
			UserID:      "user-1",
			Status:      model.JobStatusCompleted,
			CreatedAt:   now,
			ResultURL:   &resultURL,
			CompletedAt: &now,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		rr := doRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp["status"])
		assert.Equal(t, resultURL, resp["resultUrl"])
		assert.NotContains(t, resp, "error")
	})

	t.Run("not found", func(t *testing.T) {
		router, deps := newTestRouter(t)
		expectAuthenticated(deps)

		deps.jobs.EXPECT().GetByIDForUser(gomock.Any(), "job-x", "user-1").
			Return(nil, data.ErrJobNotFound)

		req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-x", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		rr := doRequest(router, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRouter_Callback(t *testing.T) {
	callbackBody := `{"jobId":"job-1","status":"completed","resultUrl":"https://results.example.com/out.jpg"}`

	t.Run("requires internal secret", func(t *testing.T) {
		router, _ := newTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/internal/callback", strings.NewReader(callbackBody))
		req.Header.Set("X-Internal-Secret", "wrong")
		rr := doRequest(router, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("acknowledges outcome", func(t *testing.T) {
		router, deps := newTestRouter(t)
		now := time.Now().UTC()
		resultURL := "https://results.example.com/out.jpg"

		queued := &model.Job{
			ID: "job-1", UserID: "user-1",
			Status:     model.JobStatusQueued,
			WebhookURL: "https://hooks.example.com/done",
		}
		completed := *queued
		completed.Status = model.JobStatusCompleted
		completed.ResultURL = &resultURL
		completed.CompletedAt = &now

		deps.jobs.EXPECT().GetByID(gomock.Any(), "job-1").Return(queued, nil)
		deps.jobs.EXPECT().MarkCompleted(gomock.Any(), "job-1", resultURL).Return(true, nil)
		deps.jobs.EXPECT().GetByID(gomock.Any(), "job-1").Return(&completed, nil)
		deps.secrets.EXPECT().WebhookSecretByUserID(gomock.Any(), "user-1").Return("whsec", nil)
		deps.webhooks.EXPECT().Deliver(gomock.Any(), gomock.Any(), "whsec", gomock.Any()).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/internal/callback", strings.NewReader(callbackBody))
		req.Header.Set("X-Internal-Secret", testCallbackSecret)
		rr := doRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"received":true}`, rr.Body.String())
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		router, deps := newTestRouter(t)
		deps.jobs.EXPECT().GetByID(gomock.Any(), "job-1").Return(nil, data.ErrJobNotFound)

		req := httptest.NewRequest(http.MethodPost, "/internal/callback", strings.NewReader(callbackBody))
		req.Header.Set("X-Internal-Secret", testCallbackSecret)
		rr := doRequest(router, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
