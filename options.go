package snap

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport executes the assembled HTTP request. *http.Client satisfies
// it; tests plug in fakes. The wrapped SDK transport stays external to
// this core.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

type config struct {
	transport   Transport
	clock       func() time.Time
	logger      *slog.Logger
	retry       Policy
	faults      HeaderFaults
	deviceID    string
	consentBase string
}

// Option customizes the client behavior.
type Option func(*config)

// WithTransport replaces the default http.Client.
func WithTransport(t Transport) Option {
	return func(cfg *config) {
		cfg.transport = t
	}
}

// WithClock provides deterministic time in tests.
func WithClock(fn func() time.Time) Option {
	return func(cfg *config) {
		cfg.clock = fn
	}
}

// WithLogger attaches a structured logger. Key material and signatures
// are never logged regardless of level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithRetryPolicy sets the default retry policy for gateway calls.
func WithRetryPolicy(p Policy) Option {
	return func(cfg *config) {
		cfg.retry = p
	}
}

// WithHeaderFaults deliberately breaks outbound headers for
// negative-path testing. Never set in production configuration.
func WithHeaderFaults(f HeaderFaults) Option {
	return func(cfg *config) {
		cfg.faults = f
	}
}

// WithDeviceID attaches the optional X-DEVICE-ID correlation header to
// consumer-facing calls.
func WithDeviceID(id string) Option {
	return func(cfg *config) {
		cfg.deviceID = id
	}
}

// WithConsentBaseURL overrides the consent-screen endpoint used by
// [Client.ConsentURL].
func WithConsentBaseURL(base string) Option {
	return func(cfg *config) {
		cfg.consentBase = base
	}
}
