package config

import (
	"github.com/calidris/go-courier/auth"
	"github.com/calidris/go-courier/httpclient"
	"github.com/calidris/go-courier/logger"
)

// NewLogger builds the configured logger.
func NewLogger(cfg *Config) logger.Logger {
	return logger.New(cfg.Log.Level, cfg.Log.Pretty)
}

// BuildClient assembles an httpclient.Client from the configuration.
// Adapters and retriers (e.g. an auth.Interceptor) are wired by the
// caller through the returned builder pattern; use BuildClientWith for
// that.
func BuildClient(cfg *Config, log logger.Logger) httpclient.Client {
	return clientBuilder(cfg, log).Build()
}

// BuildClientWith assembles an httpclient.Client with a combined
// adapter/retrier such as an auth.Interceptor wired into the pipeline.
func BuildClientWith(cfg *Config, log logger.Logger, interceptor interface {
	httpclient.RequestAdapter
	httpclient.RequestRetrier
}) httpclient.Client {
	return clientBuilder(cfg, log).WithInterceptor(interceptor).Build()
}

func clientBuilder(cfg *Config, log logger.Logger) *httpclient.Builder {
	b := httpclient.NewBuilder(log).
		WithTimeout(cfg.Client.Timeout).
		WithRetries(cfg.Client.Retry.Max, cfg.Client.Retry.Delay)

	if cfg.Client.Payload.Log {
		b = b.WithPayloadLogging(cfg.Client.Payload.MaxBytes)
	}
	if cfg.Client.Trace.Header != "" {
		b = b.WithTraceHeader(cfg.Client.Trace.Header)
	}
	if cfg.Client.Trace.W3C {
		b = b.WithW3CTrace()
	}
	if cfg.Client.Rate.Enabled {
		b = b.WithRateLimit(cfg.Client.Rate.RPS, cfg.Client.Rate.Burst)
	}
	for key, value := range cfg.Client.Headers {
		b = b.WithDefaultHeader(key, value)
	}

	return b
}

// RefreshWindow returns the configured credential refresh window.
// The second return value is false when the bound is disabled.
func (c *Config) RefreshWindow() (auth.RefreshWindow, bool) {
	r := c.Auth.Refresh
	if r.Window <= 0 || r.MaxAttempts <= 0 {
		return auth.RefreshWindow{}, false
	}
	return auth.RefreshWindow{Interval: r.Window, MaximumAttempts: r.MaxAttempts}, true
}
