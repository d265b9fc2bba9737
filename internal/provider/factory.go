package provider

import (
	"fmt"
	"time"
)

// Config selects and configures a provider implementation.
type Config struct {
	// Kind is "http" or "static". Empty defaults to static so the app
	// runs with zero external configuration.
	Kind string

	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// New creates the provider selected by the config.
func New(cfg Config) (Provider, error) {
	switch cfg.Kind {
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("http provider requires a base URL")
		}
		return NewHTTPProvider(HTTPConfig{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}), nil
	case "static", "":
		return NewStaticProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported enrichment provider: %q", cfg.Kind)
	}
}
