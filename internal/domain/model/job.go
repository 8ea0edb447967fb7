package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of an image processing job.
type JobStatus string

const (
	// JobStatusQueued means the job was admitted and is awaiting processing.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing means the processing service accepted the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted means processing finished and a result URL exists.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means processing failed or dispatch never succeeded.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is final. Terminal jobs never change
// state again; late callbacks against them are acknowledged and dropped.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether a transition from s to next is allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing || next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	}
	return false
}

// Job represents a single image processing job and its outcome.
type Job struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Status      JobStatus      `json:"status"`
	ImageURL    string         `json:"imageUrl"`
	WebhookURL  string         `json:"webhookUrl"`
	Options     map[string]any `json:"options,omitempty"`
	ResultURL   *string        `json:"resultUrl,omitempty"`
	ErrorCode   *string        `json:"errorCode,omitempty"`
	ErrorMsg    *string        `json:"errorMessage,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	FailedAt    *time.Time     `json:"failedAt,omitempty"`
}

// CreateJobRequest is the payload for POST /v1/jobs.
type CreateJobRequest struct {
	ImageURL   string         `json:"imageUrl"`
	WebhookURL string         `json:"webhookUrl"`
	Options    map[string]any `json:"options,omitempty"`
}

// Validate checks structural validity of the request. URL safety (private
// ranges, schemes) is the urlcheck package's job and happens separately.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.ImageURL) == "" {
		return fmt.Errorf("imageUrl is required")
	}
	if _, err := url.ParseRequestURI(r.ImageURL); err != nil {
		return fmt.Errorf("imageUrl is not a valid URL")
	}
	if strings.TrimSpace(r.WebhookURL) == "" {
		return fmt.Errorf("webhookUrl is required")
	}
	if _, err := url.ParseRequestURI(r.WebhookURL); err != nil {
		return fmt.Errorf("webhookUrl is not a valid URL")
	}
	return nil
}

// CreateJobResponse is the 201 payload for POST /v1/jobs.
type CreateJobResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	StatusURL string    `json:"statusUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobError is the nested error object on failed job status responses and
// failure callbacks.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JobStatusResponse is the payload for GET /v1/jobs/{id}. Result and error
// fields are mutually exclusive: completed jobs carry ResultURL and
// CompletedAt, failed jobs carry Error and FailedAt, in-flight jobs carry
// neither.
type JobStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResultURL   *string    `json:"resultUrl,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       *JobError  `json:"error,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty"`
}

// NewJobStatusResponse shapes a Job into its public status representation.
func NewJobStatusResponse(job *Job) *JobStatusResponse {
	resp := &JobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}
	switch job.Status {
	case JobStatusCompleted:
		resp.ResultURL = job.ResultURL
		resp.CompletedAt = job.CompletedAt
	case JobStatusFailed:
		resp.FailedAt = job.FailedAt
		jerr := &JobError{Code: "PROCESSING_FAILED", Message: "processing failed"}
		if job.ErrorCode != nil {
			jerr.Code = *job.ErrorCode
		}
		if job.ErrorMsg != nil {
			jerr.Message = *job.ErrorMsg
		}
		resp.Error = jerr
	}
	return resp
}

// CallbackRequest is the payload the processing service posts to
// POST /internal/callback. Terminal outcomes carry a result or an error;
// an intermediate processing callback just advances the state.
type CallbackRequest struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	ResultURL string    `json:"resultUrl,omitempty"`
	Error     *JobError `json:"error,omitempty"`
}

// Validate checks the callback payload.
func (r *CallbackRequest) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return fmt.Errorf("jobId is required")
	}
	switch r.Status {
	case JobStatusProcessing, JobStatusFailed:
	case JobStatusCompleted:
		if strings.TrimSpace(r.ResultURL) == "" {
			return fmt.Errorf("resultUrl is required for completed callbacks")
		}
	default:
		return fmt.Errorf("status must be processing, completed, or failed, got %q", r.Status)
	}
	return nil
}

// WebhookPayload is the body delivered to the user's webhook URL when a job
// reaches a terminal state.
type WebhookPayload struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	ResultURL   *string    `json:"resultUrl,omitempty"`
	Error       *JobError  `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty"`
}
