package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasskite/darkroom/internal/domain/model"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestWebhookService(t *testing.T) *WebhookService {
	t.Helper()
	return MustNewWebhookService(WebhookServiceOptions{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       noSleep,
	})
}

func TestSign_MatchesManualHMAC(t *testing.T) {
	body := []byte(`{"jobId":"job-1","status":"completed"}`)
	ts := int64(1750000000)

	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write([]byte("1750000000." + string(body)))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, Sign("whsec_test", ts, body))
	assert.NotEqual(t, expected, Sign("other-secret", ts, body))
	assert.NotEqual(t, expected, Sign("whsec_test", ts+1, body))
}

func TestWebhookService_Deliver_SignsRequest(t *testing.T) {
	var gotSig, gotTS string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotTS = r.Header.Get("X-Timestamp")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newTestWebhookService(t)
	err := svc.Deliver(context.Background(), srv.URL, "whsec_test", &model.WebhookPayload{
		JobID:  "job-1",
		Status: model.JobStatusCompleted,
	})
	require.NoError(t, err)

	ts, err := strconv.ParseInt(gotTS, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, Sign("whsec_test", ts, gotBody), gotSig)
}

func TestWebhookService_Deliver_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newTestWebhookService(t)
	err := svc.Deliver(context.Background(), srv.URL, "s", &model.WebhookPayload{JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookService_Deliver_ClientErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	svc := newTestWebhookService(t)
	err := svc.Deliver(context.Background(), srv.URL, "s", &model.WebhookPayload{JobID: "job-1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "status 410")
}

func TestWebhookService_Deliver_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := newTestWebhookService(t)
	err := svc.Deliver(context.Background(), srv.URL, "s", &model.WebhookPayload{JobID: "job-1"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, err.Error(), "exhausted after 3 attempts")
}

func TestWebhookService_Deliver_RetriesNetworkErrors(t *testing.T) {
	// A server that is immediately closed produces connection errors.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	var slept int
	svc := MustNewWebhookService(WebhookServiceOptions{
		MaxAttempts: 2,
		BaseDelay:   time.Second,
		Sleep: func(context.Context, time.Duration) error {
			slept++
			return nil
		},
	})

	err := svc.Deliver(context.Background(), srv.URL, "s", &model.WebhookPayload{JobID: "job-1"})
	require.Error(t, err)
	assert.Equal(t, 1, slept)
}

func TestWebhookService_Deliver_BackoffDoubles(t *testing.T) {
	var delays []time.Duration
	svc := MustNewWebhookService(WebhookServiceOptions{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_ = svc.Deliver(context.Background(), srv.URL, "s", &model.WebhookPayload{JobID: "job-1"})
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}
