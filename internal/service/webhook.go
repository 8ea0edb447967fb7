package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/glasskite/darkroom/internal/domain/model"
	"github.com/glasskite/darkroom/internal/observability/metrics"
	"github.com/glasskite/darkroom/internal/observability/statsd"
)

// WebhookServiceOptions groups dependencies for WebhookService.
type WebhookServiceOptions struct {
	MaxAttempts int           // Required: total delivery attempts per outcome
	BaseDelay   time.Duration // Required: backoff seed, attempt n waits BaseDelay * 2^(n-1)
	Timeout     time.Duration // Optional: per-attempt timeout, defaults to 10s
	Logger      *slog.Logger  // Optional: structured logger
	Client      *http.Client  // Optional: custom HTTP client
	Metrics     statsd.Sink   // Optional: delivery counters

	// Sleep overrides the backoff wait for tests.
	Sleep func(context.Context, time.Duration) error
}

// WebhookService signs and delivers terminal-state notifications to user
// webhook URLs. Delivery is best effort: it never changes job state and its
// failures never surface to the processing callback.
type WebhookService struct {
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	logger      *slog.Logger
	client      *http.Client
	sleep       func(context.Context, time.Duration) error
	metrics     statsd.Sink
}

// NewWebhookService constructs a new WebhookService.
func NewWebhookService(opts WebhookServiceOptions) (*WebhookService, error) {
	if opts.MaxAttempts < 1 {
		return nil, errors.New("MaxAttempts must be at least 1")
	}
	if opts.BaseDelay <= 0 {
		return nil, errors.New("BaseDelay must be positive")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	return &WebhookService{
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		timeout:     timeout,
		logger:      logger.With("component", "webhook_service"),
		client:      client,
		sleep:       sleep,
		metrics:     opts.Metrics,
	}, nil
}

// MustNewWebhookService constructs a new WebhookService and panics on error.
func MustNewWebhookService(opts WebhookServiceOptions) *WebhookService {
	svc, err := NewWebhookService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Sign computes the webhook signature for a body at a given timestamp
// (epoch milliseconds): lowercase hex HMAC-SHA256 over "<timestamp>.<body>".
// Receivers recompute the same string to verify.
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver posts the payload to url, retrying transient failures. 4xx
// responses are terminal (the receiver saw the request and refused it);
// 5xx and transport errors retry with exponential backoff. When every attempt
// fails the returned error says so and wraps the last attempt's error.
func (s *WebhookService) Deliver(ctx context.Context, url, secret string, payload *model.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	started := time.Now()
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.attempt(ctx, url, secret, body)
		if err == nil {
			s.logger.InfoContext(ctx, "webhook delivered",
				"job_id", payload.JobID, "attempt", attempt)
			metrics.EmitWebhookDelivery(s.metrics, true, attempt, time.Since(started))
			return nil
		}

		var terminal *terminalDeliveryError
		if errors.As(err, &terminal) {
			s.logger.WarnContext(ctx, "webhook rejected, not retrying",
				"job_id", payload.JobID, "status", terminal.status)
			metrics.EmitWebhookDelivery(s.metrics, false, attempt, time.Since(started))
			return err
		}

		lastErr = err
		s.logger.WarnContext(ctx, "webhook attempt failed",
			"job_id", payload.JobID, "attempt", attempt, "err", err)

		if attempt < s.maxAttempts {
			delay := s.baseDelay << (attempt - 1)
			if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}
	}

	s.logger.ErrorContext(ctx, "webhook delivery exhausted",
		"job_id", payload.JobID, "attempts", s.maxAttempts, "err", lastErr)
	metrics.EmitWebhookDelivery(s.metrics, false, s.maxAttempts, time.Since(started))
	return fmt.Errorf("delivery exhausted after %d attempts: %w", s.maxAttempts, lastErr)
}

// terminalDeliveryError marks a 4xx response, which must not be retried.
type terminalDeliveryError struct {
	status int
}

func (e *terminalDeliveryError) Error() string {
	return fmt.Sprintf("webhook receiver refused delivery: status %d", e.status)
}

func (s *WebhookService) attempt(ctx context.Context, url, secret string, body []byte) error {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	timestamp := time.Now().UnixMilli()
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-Signature", Sign(secret, timestamp, body))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &terminalDeliveryError{status: resp.StatusCode}
	default:
		return fmt.Errorf("webhook receiver returned status %d", resp.StatusCode)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
