// Package service contains the business logic of the darkroom job API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/dispatch"
	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
	"github.com/glasskite/darkroom/internal/observability/metrics"
	"github.com/glasskite/darkroom/internal/observability/statsd"
)

// Ledger is the admission surface JobService needs. Implementations must make
// Admit atomic: concurrency check, credit check, deduct, and job insert all
// commit or all roll back.
type Ledger interface {
	Admit(ctx context.Context, userID string, req *model.CreateJobRequest) (*model.Job, error)
	CompensateDispatchFailure(ctx context.Context, userID, jobID, errCode, errMsg string) error
}

// JobStore is the job persistence surface JobService needs.
type JobStore interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*model.Job, error)
	MarkProcessing(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id, resultURL string) (bool, error)
	MarkFailed(ctx context.Context, id, errCode, errMsg string) (bool, error)
}

// URLChecker screens outbound URLs before the service commits to calling
// them. ValidateHTTPS additionally restricts the scheme; webhook targets
// must not receive signed payloads in the clear.
type URLChecker interface {
	Validate(ctx context.Context, rawURL string) error
	ValidateHTTPS(ctx context.Context, rawURL string) error
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Ledger     Ledger              // Required: admission and compensation
	Jobs       JobStore            // Required: job reads and transitions
	Dispatcher dispatch.Dispatcher // Required: hands jobs to processing
	URLCheck   URLChecker          // Required: SSRF screening
	BaseURL    string              // Required: absolute base for status URLs
	Logger     *slog.Logger        // Optional: structured logger
	Metrics    statsd.Sink         // Optional: admission counters
}

// JobService orchestrates job admission, dispatch, and status reads.
type JobService struct {
	ledger     Ledger
	jobs       JobStore
	dispatcher dispatch.Dispatcher
	urlCheck   URLChecker
	baseURL    string
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Ledger == nil {
		return nil, errors.New("Ledger is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("Dispatcher is required")
	}
	if opts.URLCheck == nil {
		return nil, errors.New("URLChecker is required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("BaseURL is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		ledger:     opts.Ledger,
		jobs:       opts.Jobs,
		dispatcher: opts.Dispatcher,
		urlCheck:   opts.URLCheck,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		logger:     logger.With("component", "job_service"),
		metrics:    opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// CreateJob validates, admits, and dispatches a new job. When dispatch fails
// the admission is compensated in full (credit refunded, job marked failed
// with DISPATCH_FAILED) before the unavailable error surfaces, so a client is
// never charged for a job that was never handed off.
func (s *JobService) CreateJob(ctx context.Context, auth *model.AuthContext, req *model.CreateJobRequest) (*model.CreateJobResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := s.urlCheck.Validate(ctx, req.ImageURL); err != nil {
		return nil, apperrors.Validationf("imageUrl rejected: %v", err)
	}
	if err := s.urlCheck.ValidateHTTPS(ctx, req.WebhookURL); err != nil {
		return nil, apperrors.Validationf("webhookUrl rejected: %v", err)
	}

	job, err := s.ledger.Admit(ctx, auth.UserID, req)
	if err != nil {
		return nil, s.mapAdmitError(err)
	}
	metrics.EmitAdmission(s.metrics, metrics.ResultAdmitted)

	if dispatchErr := s.dispatcher.Dispatch(ctx, job); dispatchErr != nil {
		metrics.EmitAdmission(s.metrics, metrics.ResultDispatchFailed)
		s.logger.ErrorContext(ctx, "dispatch failed, compensating",
			"job_id", job.ID, "user_id", auth.UserID, "err", dispatchErr)
		if compErr := s.ledger.CompensateDispatchFailure(ctx, auth.UserID, job.ID,
			"DISPATCH_FAILED", "processing service did not accept the job"); compErr != nil {
			// The job stays queued and the credit stays spent. Loud log so
			// an operator can reconcile by hand.
			s.logger.ErrorContext(ctx, "dispatch compensation failed",
				"job_id", job.ID, "user_id", auth.UserID, "err", compErr)
			return nil, apperrors.Wrap(compErr, apperrors.ErrCodeInternal,
				"dispatch failed and compensation did not complete")
		}
		return nil, apperrors.Unavailable("processing service is unavailable, credit refunded").
			WithMeta("code", "DISPATCH_FAILED")
	}

	return &model.CreateJobResponse{
		JobID:     job.ID,
		Status:    job.Status,
		StatusURL: fmt.Sprintf("%s/v1/jobs/%s", s.baseURL, job.ID),
		CreatedAt: job.CreatedAt,
	}, nil
}

// GetJob returns the status view of a job, scoped to its owner.
func (s *JobService) GetJob(ctx context.Context, userID, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.jobs.GetByIDForUser(ctx, jobID, userID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "job lookup failed")
	}
	return model.NewJobStatusResponse(job), nil
}

func (s *JobService) mapAdmitError(err error) error {
	var limitErr *data.ConcurrencyLimitError
	switch {
	case errors.As(err, &limitErr):
		metrics.EmitAdmission(s.metrics, metrics.ResultConcurrencyLimited)
		return apperrors.TooManyRequests("too many jobs in flight for your plan").
			WithMeta("limit", limitErr.Limit).
			WithMeta("current", limitErr.Count)
	case errors.Is(err, data.ErrInsufficientCredits):
		metrics.EmitAdmission(s.metrics, metrics.ResultInsufficientCredits)
		return apperrors.PaymentRequired("not enough credits to create a job").
			WithMeta("code", "INSUFFICIENT_CREDITS")
	case errors.Is(err, data.ErrUserNotFound):
		return apperrors.Unauthorized("unknown user")
	default:
		metrics.EmitAdmission(s.metrics, metrics.ResultError)
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "job admission failed")
	}
}
