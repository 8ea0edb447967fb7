package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glasskite/darkroom/config"
	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/dispatch"
	"github.com/glasskite/darkroom/internal/observability/statsd"
	"github.com/glasskite/darkroom/internal/service"
	"github.com/glasskite/darkroom/internal/urlcheck"
)

// ServiceDeps groups the shared infrastructure services are built on.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Services is the container of constructed application services.
type Services struct {
	Auth        *service.AuthService
	Jobs        *service.JobService
	Idempotency *service.IdempotencyService
	Callbacks   *service.CallbackService

	Cache  *data.RedisCacheRepo
	Statsd *statsd.Client

	// idempotencyRepo backs the background expiry sweep.
	idempotencyRepo *data.IdempotencyRepo
	dispatcher      dispatch.Dispatcher
}

// NewServices constructs repositories, the dispatcher, and all application
// services from shared infrastructure.
func NewServices(deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.StatsdAddr != "",
		Address: cfg.Observability.StatsdAddr,
		Prefix:  cfg.Observability.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("statsd client: %w", err)
	}

	tp := &data.RealTimeProvider{}
	ledgerRepo := data.NewLedgerRepo(deps.DB, logger)
	jobRepo := data.NewJobRepo(deps.DB, data.JobRepoConfig{Logger: logger, TimeProvider: tp})
	apiKeyRepo := data.NewAPIKeyRepo(deps.DB)
	idemRepo := data.NewIdempotencyRepo(deps.DB, tp)
	cacheRepo := data.NewRedisCacheRepo(deps.RedisClient)

	checker := urlcheck.New()
	// Plain http targets are only acceptable against local dev fixtures.
	checker.AllowHTTP = cfg.IsDev

	dispatcher, err := buildDispatcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	webhooks, err := service.NewWebhookService(service.WebhookServiceOptions{
		MaxAttempts: cfg.Webhook.MaxAttempts,
		BaseDelay:   cfg.Webhook.BaseDelay,
		Timeout:     cfg.Webhook.Timeout,
		Logger:      logger,
		Metrics:     sink,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook service: %w", err)
	}

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Keys:   apiKeyRepo,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Ledger:     ledgerRepo,
		Jobs:       jobRepo,
		Dispatcher: dispatcher,
		URLCheck:   checker,
		BaseURL:    cfg.HTTP.BaseURL,
		Logger:     logger,
		Metrics:    sink,
	})
	if err != nil {
		return nil, fmt.Errorf("job service: %w", err)
	}

	idempotency, err := service.NewIdempotencyService(service.IdempotencyServiceOptions{
		Store:  idemRepo,
		Cache:  cacheRepo,
		TTL:    cfg.Redis.IdempotencyTTL,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("idempotency service: %w", err)
	}

	callbacks, err := service.NewCallbackService(service.CallbackServiceOptions{
		Jobs:     jobRepo,
		Secrets:  apiKeyRepo,
		Webhooks: webhooks,
		Logger:   logger,
		Metrics:  sink,
	})
	if err != nil {
		return nil, fmt.Errorf("callback service: %w", err)
	}

	return &Services{
		Auth:            auth,
		Jobs:            jobs,
		Idempotency:     idempotency,
		Callbacks:       callbacks,
		Cache:           cacheRepo,
		Statsd:          sink,
		idempotencyRepo: idemRepo,
		dispatcher:      dispatcher,
	}, nil
}

//nolint:ireturn // the dispatcher implementation is selected by configuration.
func buildDispatcher(cfg *config.AppConfig, logger *slog.Logger) (dispatch.Dispatcher, error) {
	switch cfg.Dispatch.Mode {
	case "simulator":
		return dispatch.NewSimulator(dispatch.SimulatorConfig{
			CallbackURL:    cfg.Callback.URL,
			CallbackSecret: cfg.Callback.Secret,
			MinDelay:       cfg.Dispatch.SimulatorMinDelay,
			MaxDelay:       cfg.Dispatch.SimulatorMaxDelay,
			FailureRate:    cfg.Dispatch.SimulatorFailureRate,
			Logger:         logger,
		}), nil
	case "http":
		return dispatch.NewHTTPDispatcher(dispatch.HTTPConfig{
			ProcessingURL:  cfg.Dispatch.ProcessingURL,
			CallbackURL:    cfg.Callback.URL,
			CallbackSecret: cfg.Callback.Secret,
			Timeout:        cfg.Dispatch.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.Dispatch.Mode)
	}
}

// StartIdempotencySweeper periodically deletes expired idempotency records.
// Expired records are already invisible to lookups; the sweep just keeps the
// table from growing without bound. Returns when ctx is cancelled.
func StartIdempotencySweeper(ctx context.Context, svcs *Services, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svcs.idempotencyRepo.DeleteExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "idempotency sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "idempotency sweep removed expired records", "count", n)
			}
		}
	}
}

// Close releases service-held resources. Safe to call once during shutdown.
func (s *Services) Close() {
	if sim, ok := s.dispatcher.(*dispatch.Simulator); ok {
		sim.Close()
	}
	if s.Statsd != nil {
		_ = s.Statsd.Close()
	}
}
