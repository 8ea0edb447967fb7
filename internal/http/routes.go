package httpx

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/glasskite/darkroom/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth        *service.AuthService
	Jobs        *service.JobService
	Idempotency *service.IdempotencyService
	Callbacks   *service.CallbackService

	// CallbackSecret guards POST /internal/callback.
	CallbackSecret string

	DB     *sql.DB
	Cache  HealthChecker // optional
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{
		Jobs:        services.Jobs,
		Idempotency: services.Idempotency,
		Logger:      logger,
	}
	callbackHandlers := &CallbackHandlers{Callbacks: services.Callbacks, Logger: logger}
	healthHandlers := &HealthHandlers{DB: services.DB, Cache: services.Cache}

	requireKey := RequireAPIKey(services.Auth)
	requireSecret := RequireInternalSecret(services.CallbackSecret)

	mux.Handle("POST /v1/jobs", requireKey(http.HandlerFunc(jobHandlers.Create)))
	mux.Handle("GET /v1/jobs/{id}", requireKey(http.HandlerFunc(jobHandlers.Get)))
	mux.Handle("POST /internal/callback", requireSecret(http.HandlerFunc(callbackHandlers.Receive)))
	mux.HandleFunc("GET /healthz", healthHandlers.Check)

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
