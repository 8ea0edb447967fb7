// Package mocks provides mock implementations for testing the darkroom job API.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the service-layer interfaces. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	ledger := mocks.NewMockLedger(ctrl)
//	ledger.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for the Ledger interface from internal/service.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ledger_mock.go github.com/glasskite/darkroom/internal/service Ledger

// Generate mock for the JobStore interface from internal/service.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/glasskite/darkroom/internal/service JobStore

// Generate mock for the URLChecker interface from internal/service.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=url_checker_mock.go github.com/glasskite/darkroom/internal/service URLChecker

// Generate mocks for the webhook collaborators from internal/service.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=webhook_mock.go github.com/glasskite/darkroom/internal/service SecretSource,WebhookDeliverer

// Generate mocks for the idempotency collaborators from internal/service.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=idempotency_mock.go github.com/glasskite/darkroom/internal/service IdempotencyStore,ByteCache

// Generate mock for the APIKeyStore interface from internal/service.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=apikey_store_mock.go github.com/glasskite/darkroom/internal/service APIKeyStore

// Generate mock for the Dispatcher interface from internal/dispatch.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dispatcher_mock.go github.com/glasskite/darkroom/internal/dispatch Dispatcher
