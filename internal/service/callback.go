package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
	"github.com/glasskite/darkroom/internal/observability/metrics"
	"github.com/glasskite/darkroom/internal/observability/statsd"
)

// SecretSource resolves a user's webhook signing secret.
type SecretSource interface {
	WebhookSecretByUserID(ctx context.Context, userID string) (string, error)
}

// WebhookDeliverer delivers a signed payload to a webhook URL.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, url, secret string, payload *model.WebhookPayload) error
}

// CallbackServiceOptions groups dependencies for CallbackService.
type CallbackServiceOptions struct {
	Jobs     JobStore         // Required: job transitions
	Secrets  SecretSource     // Required: webhook secret lookup
	Webhooks WebhookDeliverer // Required: outbound notification
	Logger   *slog.Logger     // Optional: structured logger
	Metrics  statsd.Sink      // Optional: transition counters
}

// CallbackService reconciles processing outcomes reported by the external
// processing service. The status write is the source of truth: once it
// commits the callback is acknowledged, regardless of webhook delivery.
type CallbackService struct {
	jobs     JobStore
	secrets  SecretSource
	webhooks WebhookDeliverer
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewCallbackService constructs a new CallbackService.
func NewCallbackService(opts CallbackServiceOptions) (*CallbackService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Secrets == nil {
		return nil, errors.New("SecretSource is required")
	}
	if opts.Webhooks == nil {
		return nil, errors.New("WebhookDeliverer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackService{
		jobs:     opts.Jobs,
		secrets:  opts.Secrets,
		webhooks: opts.Webhooks,
		logger:   logger.With("component", "callback_service"),
		metrics:  opts.Metrics,
	}, nil
}

// MustNewCallbackService constructs a new CallbackService and panics on error.
func MustNewCallbackService(opts CallbackServiceOptions) *CallbackService {
	svc, err := NewCallbackService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// HandleCallback applies a reported outcome to the job and, for terminal
// outcomes, notifies the user's webhook. A callback for a job already in a
// terminal state is acknowledged as a no-op with a warning; the processing
// service retries callbacks and must not see duplicates as failures.
func (s *CallbackService) HandleCallback(ctx context.Context, req *model.CallbackRequest) error {
	if err := req.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}

	job, err := s.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return apperrors.NotFoundf("job %s not found", req.JobID)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "job lookup failed")
	}

	if req.Status == model.JobStatusProcessing {
		ok, markErr := s.jobs.MarkProcessing(ctx, req.JobID)
		if markErr != nil {
			return apperrors.Wrap(markErr, apperrors.ErrCodeInternal, "status update failed")
		}
		if !ok {
			s.logger.WarnContext(ctx, "ignoring processing callback for non-queued job",
				"job_id", req.JobID, "status", job.Status)
		}
		metrics.EmitTransition(s.metrics, string(req.Status), ok)
		return nil
	}

	if job.Status.Terminal() {
		s.logger.WarnContext(ctx, "ignoring duplicate callback for terminal job",
			"job_id", req.JobID, "status", job.Status, "reported", req.Status)
		metrics.EmitTransition(s.metrics, string(req.Status), false)
		return nil
	}

	var transitioned bool
	switch req.Status {
	case model.JobStatusCompleted:
		transitioned, err = s.jobs.MarkCompleted(ctx, req.JobID, req.ResultURL)
	case model.JobStatusFailed:
		code, msg := "PROCESSING_FAILED", "processing failed"
		if req.Error != nil {
			if req.Error.Code != "" {
				code = req.Error.Code
			}
			if req.Error.Message != "" {
				msg = req.Error.Message
			}
		}
		transitioned, err = s.jobs.MarkFailed(ctx, req.JobID, code, msg)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "status update failed")
	}
	metrics.EmitTransition(s.metrics, string(req.Status), transitioned)
	if !transitioned {
		// A concurrent callback won the transition race.
		s.logger.WarnContext(ctx, "ignoring duplicate callback for terminal job",
			"job_id", req.JobID, "reported", req.Status)
		return nil
	}

	s.logger.InfoContext(ctx, "job reconciled",
		"job_id", req.JobID, "status", req.Status)

	s.notifyWebhook(ctx, req.JobID)
	return nil
}

// notifyWebhook delivers the terminal-state notification. Failures are
// logged, never returned: the status write already committed and the
// callback must be acknowledged.
func (s *CallbackService) notifyWebhook(ctx context.Context, jobID string) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		s.logger.ErrorContext(ctx, "webhook skipped, job reload failed",
			"job_id", jobID, "err", err)
		return
	}
	if job.WebhookURL == "" {
		return
	}

	secret, err := s.secrets.WebhookSecretByUserID(ctx, job.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "webhook skipped, secret lookup failed",
			"job_id", jobID, "err", err)
		return
	}
	if secret == "" {
		s.logger.WarnContext(ctx, "no webhook secret for user, signing with empty secret",
			"job_id", jobID, "user_id", job.UserID)
	}

	payload := &model.WebhookPayload{
		JobID:       job.ID,
		Status:      job.Status,
		CompletedAt: job.CompletedAt,
		FailedAt:    job.FailedAt,
	}
	switch job.Status {
	case model.JobStatusCompleted:
		payload.ResultURL = job.ResultURL
	case model.JobStatusFailed:
		jerr := &model.JobError{Code: "PROCESSING_FAILED", Message: "processing failed"}
		if job.ErrorCode != nil {
			jerr.Code = *job.ErrorCode
		}
		if job.ErrorMsg != nil {
			jerr.Message = *job.ErrorMsg
		}
		payload.Error = jerr
	}

	if err := s.webhooks.Deliver(ctx, job.WebhookURL, secret, payload); err != nil {
		s.logger.ErrorContext(ctx, "webhook delivery failed",
			"job_id", jobID, "url", job.WebhookURL, "err", err)
	}
}
