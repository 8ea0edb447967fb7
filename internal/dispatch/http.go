package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/glasskite/darkroom/internal/domain/model"
)

// jobEnvelope is the submission payload posted to the processing service.
type jobEnvelope struct {
	JobID       string         `json:"jobId"`
	ImageURL    string         `json:"imageUrl"`
	Options     map[string]any `json:"options,omitempty"`
	CallbackURL string         `json:"callbackUrl"`
}

// HTTPConfig configures the HTTP dispatcher.
type HTTPConfig struct {
	ProcessingURL  string
	CallbackURL    string
	CallbackSecret string
	Timeout        time.Duration
	Client         *http.Client
}

// HTTPDispatcher posts jobs to the external processing service.
type HTTPDispatcher struct {
	processingURL  string
	callbackURL    string
	callbackSecret string
	client         *http.Client
}

// NewHTTPDispatcher builds an HTTP dispatcher.
func NewHTTPDispatcher(cfg HTTPConfig) (*HTTPDispatcher, error) {
	if strings.TrimSpace(cfg.ProcessingURL) == "" {
		return nil, errors.New("processing url is required")
	}
	if strings.TrimSpace(cfg.CallbackURL) == "" {
		return nil, errors.New("callback url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &HTTPDispatcher{
		processingURL:  cfg.ProcessingURL,
		callbackURL:    cfg.CallbackURL,
		callbackSecret: cfg.CallbackSecret,
		client:         hc,
	}, nil
}

// Dispatch submits the job. Any non-2xx response or transport error means the
// processing service did not accept the job; callers compensate.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, job *model.Job) error {
	body, err := json.Marshal(jobEnvelope{
		JobID:       job.ID,
		ImageURL:    job.ImageURL,
		Options:     job.Options,
		CallbackURL: d.callbackURL,
	})
	if err != nil {
		return fmt.Errorf("encode dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.processingURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.callbackSecret != "" {
		req.Header.Set("X-Internal-Secret", d.callbackSecret)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("processing service rejected job: status %d", resp.StatusCode)
	}
	return nil
}
