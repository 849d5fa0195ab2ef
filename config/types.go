// Package config loads and validates the client library configuration
// from defaults, optional YAML files, and environment variables.
package config

import "time"

// Config is the root configuration for the client library.
type Config struct {
	Client ClientConfig `koanf:"client"`
	Auth   AuthConfig   `koanf:"auth"`
	Log    LogConfig    `koanf:"log"`
}

// ClientConfig holds HTTP client settings.
type ClientConfig struct {
	// Timeout bounds each request, including retries of a single attempt.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
	// Headers are default headers sent with every request.
	Headers map[string]string `koanf:"headers"`
	Retry   RetryConfig       `koanf:"retry"`
	Payload PayloadConfig     `koanf:"payload"`
	Trace   TraceConfig       `koanf:"trace"`
	Rate    RateConfig        `koanf:"rate"`
}

// RetryConfig holds the built-in retry policy settings.
type RetryConfig struct {
	// Max is the maximum number of built-in retries per request.
	Max int `koanf:"max" validate:"gte=0"`
	// Delay is the base delay for exponential backoff.
	Delay time.Duration `koanf:"delay" validate:"gte=0"`
}

// PayloadConfig controls debug-level payload logging.
type PayloadConfig struct {
	// Log enables header and body logging at debug level.
	Log bool `koanf:"log"`
	// MaxBytes caps body previews in debug logs.
	MaxBytes int `koanf:"maxbytes" validate:"gte=0"`
}

// TraceConfig controls trace header propagation.
type TraceConfig struct {
	// Header overrides the trace ID header name (default X-Request-ID).
	Header string `koanf:"header"`
	// W3C enables traceparent/tracestate propagation.
	W3C bool `koanf:"w3c"`
}

// RateConfig holds client-side rate limiting settings.
type RateConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps" validate:"gte=0"`
	Burst   int     `koanf:"burst" validate:"gte=0"`
}

// AuthConfig holds authentication interceptor settings.
type AuthConfig struct {
	Refresh RefreshConfig `koanf:"refresh"`
}

// RefreshConfig bounds credential refresh attempts. A zero Window or
// MaxAttempts disables the bound.
type RefreshConfig struct {
	Window      time.Duration `koanf:"window" validate:"gte=0"`
	MaxAttempts int           `koanf:"maxattempts" validate:"gte=0"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}
