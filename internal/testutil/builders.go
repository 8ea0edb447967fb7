package testutil

import (
	"github.com/glasskite/darkroom/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest
// objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			ImageURL:   "https://cdn.example.com/input.jpg",
			WebhookURL: "https://hooks.example.com/jobs",
		},
	}
}

// WithImageURL sets the source image URL.
func (b *JobRequestBuilder) WithImageURL(u string) *JobRequestBuilder {
	b.req.ImageURL = u
	return b
}

// WithWebhookURL sets the webhook URL.
func (b *JobRequestBuilder) WithWebhookURL(u string) *JobRequestBuilder {
	b.req.WebhookURL = u
	return b
}

// WithOptions sets the processing options.
func (b *JobRequestBuilder) WithOptions(opts map[string]any) *JobRequestBuilder {
	b.req.Options = opts
	return b
}

// Build returns the built CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}
