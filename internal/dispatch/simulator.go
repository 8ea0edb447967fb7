package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/glasskite/darkroom/internal/domain/model"
)

// SimulatorConfig configures the in-process processing simulator.
type SimulatorConfig struct {
	CallbackURL    string
	CallbackSecret string
	MinDelay       time.Duration
	MaxDelay       time.Duration
	FailureRate    float64
	Logger         *slog.Logger
	Client         *http.Client

	// Rand overrides the random source for deterministic tests.
	Rand *rand.Rand
}

// Simulator stands in for the real processing service in development. It
// accepts every dispatch, then after a random delay posts a completion or
// failure callback to the internal callback endpoint, exercising the same
// path production outcomes take.
type Simulator struct {
	callbackURL    string
	callbackSecret string
	minDelay       time.Duration
	maxDelay       time.Duration
	failureRate    float64
	logger         *slog.Logger
	client         *http.Client

	mu   sync.Mutex
	rng  *rand.Rand
	wg   sync.WaitGroup
	done chan struct{}
}

// NewSimulator builds a Simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	minDelay := cfg.MinDelay
	if minDelay <= 0 {
		minDelay = time.Second
	}
	maxDelay := cfg.MaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Simulator{
		callbackURL:    cfg.CallbackURL,
		callbackSecret: cfg.CallbackSecret,
		minDelay:       minDelay,
		maxDelay:       maxDelay,
		failureRate:    cfg.FailureRate,
		logger:         logger.With("component", "dispatch_simulator"),
		client:         hc,
		rng:            rng,
		done:           make(chan struct{}),
	}
}

// Dispatch accepts the job immediately and schedules a simulated outcome.
func (s *Simulator) Dispatch(ctx context.Context, job *model.Job) error {
	delay, failed := s.roll()
	s.wg.Add(1)
	go s.deliverOutcome(job.ID, delay, failed)
	s.logger.InfoContext(ctx, "job accepted by simulator",
		"job_id", job.ID, "delay", delay, "will_fail", failed)
	return nil
}

// Close stops scheduling and waits for in-flight outcomes to finish.
func (s *Simulator) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Simulator) roll() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delay := s.minDelay
	if span := s.maxDelay - s.minDelay; span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}
	return delay, s.rng.Float64() < s.failureRate
}

func (s *Simulator) deliverOutcome(jobID string, delay time.Duration, failed bool) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	select {
	case <-s.done:
		if !timer.Stop() {
			<-timer.C
		}
		return
	case <-timer.C:
	}

	cb := model.CallbackRequest{JobID: jobID, Status: model.JobStatusCompleted}
	if failed {
		cb.Status = model.JobStatusFailed
		cb.Error = &model.JobError{
			Code:    "PROCESSING_FAILED",
			Message: "simulated processing failure",
		}
	} else {
		cb.ResultURL = fmt.Sprintf("https://results.darkroom.local/%s/output.jpg", jobID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.postCallback(ctx, &cb); err != nil {
		s.logger.Error("simulator callback failed", "job_id", jobID, "err", err)
	}
}

func (s *Simulator) postCallback(ctx context.Context, cb *model.CallbackRequest) error {
	body, err := json.Marshal(cb)
	if err != nil {
		return fmt.Errorf("encode callback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Secret", s.callbackSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback rejected: status %d", resp.StatusCode)
	}
	return nil
}
