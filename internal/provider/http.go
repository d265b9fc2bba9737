package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ekkohq/ekko/pkg/types"
)

// HTTPConfig holds configuration for the HTTP enrichment provider.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // default: 30s

	// RequestsPerSecond throttles outbound calls to the intelligence
	// API. Default: 2, burst 4.
	RequestsPerSecond float64
	Burst             int
}

// HTTPProvider queries a JSON intelligence API for contact facts.
type HTTPProvider struct {
	cfg            HTTPConfig
	client         *http.Client
	limiter        *rate.Limiter
	circuitBreaker *CircuitBreaker
}

// NewHTTPProvider creates a new HTTP provider with the given configuration.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst == 0 {
		cfg.Burst = 4
	}
	return &HTTPProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		circuitBreaker: NewCircuitBreaker(),
	}
}

// Name identifies the provider for logging.
func (p *HTTPProvider) Name() string {
	return "http"
}

// enrichRequest is the request body for POST /v1/enrich.
type enrichRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// Enrich posts the contact's identifying fields to the intelligence API
// and decodes the returned facts. Calls are rate limited and pass through
// the circuit breaker.
func (p *HTTPProvider) Enrich(ctx context.Context, contact *types.Contact) (*types.EnrichmentFacts, error) {
	if contact == nil {
		return nil, fmt.Errorf("%w: nil contact", ErrProvider)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrProvider, err)
	}

	result, err := p.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return p.enrich(ctx, contact)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrProvider)
		}
		if errors.Is(err, ErrProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return result.(*types.EnrichmentFacts), nil
}

func (p *HTTPProvider) enrich(ctx context.Context, contact *types.Contact) (*types.EnrichmentFacts, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	jsonData, err := json.Marshal(enrichRequest{
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Company:   contact.Company,
		Email:     contact.Email,
		LinkedIn:  contact.LinkedIn,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.BaseURL+"/v1/enrich", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, string(body))
	}

	var facts types.EnrichmentFacts
	if err := json.NewDecoder(resp.Body).Decode(&facts); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrProvider, err)
	}

	return &facts, nil
}
