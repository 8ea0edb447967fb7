package config

import "time"

// DispatchConfig contains configuration for handing admitted jobs to the
// external processing service.
type DispatchConfig struct {
	// Mode selects the dispatcher implementation: "http" posts jobs to
	// ProcessingURL, "simulator" runs the in-process simulator (dev only).
	Mode string `env:"DISPATCH_MODE" envDefault:"http"`

	// ProcessingURL is the external processing service endpoint.
	ProcessingURL string `env:"DISPATCH_PROCESSING_URL" envDefault:"http://localhost:9090/process"`

	// Timeout bounds each dispatch HTTP call.
	Timeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`

	// SimulatorMinDelay/SimulatorMaxDelay bound the simulated processing time.
	SimulatorMinDelay time.Duration `env:"DISPATCH_SIMULATOR_MIN_DELAY" envDefault:"3s"`
	SimulatorMaxDelay time.Duration `env:"DISPATCH_SIMULATOR_MAX_DELAY" envDefault:"5s"`

	// SimulatorFailureRate is the fraction of simulated jobs that report a
	// processing failure via the callback (0.0-1.0).
	SimulatorFailureRate float64 `env:"DISPATCH_SIMULATOR_FAILURE_RATE" envDefault:"0.2"`
}

// Sanitize applies guardrails to dispatch configuration values.
func (d *DispatchConfig) Sanitize() {
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.SimulatorMinDelay <= 0 {
		d.SimulatorMinDelay = time.Second
	}
	if d.SimulatorMaxDelay < d.SimulatorMinDelay {
		d.SimulatorMaxDelay = d.SimulatorMinDelay
	}
	if d.SimulatorFailureRate < 0 {
		d.SimulatorFailureRate = 0
	}
	if d.SimulatorFailureRate > 1 {
		d.SimulatorFailureRate = 1
	}
}

// WebhookConfig contains outbound webhook delivery configuration.
type WebhookConfig struct {
	// MaxAttempts is the total number of delivery attempts per outcome.
	MaxAttempts int `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"3"`

	// BaseDelay seeds the exponential backoff between retryable attempts
	// (attempt n waits BaseDelay * 2^(n-1)).
	BaseDelay time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// Timeout bounds each individual delivery attempt.
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to webhook configuration values.
func (w *WebhookConfig) Sanitize() {
	if w.MaxAttempts < 1 {
		w.MaxAttempts = 1
	}
	if w.BaseDelay <= 0 {
		w.BaseDelay = time.Second
	}
	if w.Timeout <= 0 {
		w.Timeout = 10 * time.Second
	}
}

// CallbackConfig contains configuration for the internal callback endpoint
// the processing service reports outcomes to.
type CallbackConfig struct {
	// Secret must match the X-Internal-Secret header on callback requests.
	Secret string `env:"INTERNAL_CALLBACK_SECRET" envDefault:"default-internal-secret"`

	// URL is the absolute callback endpoint handed to dispatchers so the
	// processing service knows where to report outcomes.
	URL string `env:"INTERNAL_CALLBACK_URL" envDefault:"http://localhost:8080/internal/callback"`
}

// ObservabilityConfig contains metrics configuration.
type ObservabilityConfig struct {
	// StatsdAddr is the UDP address of a statsd agent. Empty disables metrics.
	StatsdAddr string `env:"STATSD_ADDR" envDefault:""`

	// StatsdPrefix is prepended to every metric name.
	StatsdPrefix string `env:"STATSD_PREFIX" envDefault:"darkroom"`
}

// Sanitize applies guardrails to observability configuration values.
func (o *ObservabilityConfig) Sanitize() {
	if o.StatsdPrefix == "" {
		o.StatsdPrefix = "darkroom"
	}
}
