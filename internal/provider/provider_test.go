package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
)

func TestHTTPProviderEnrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/enrich" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"linkedin_url": "https://linkedin.com/in/ada",
			"linkedin_headline": "Countess of Computing",
			"company_industry": "Software",
			"recent_news": [{"title": "Series A"}]
		}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: server.URL, APIKey: "test-key", RequestsPerSecond: 100, Burst: 100})

	facts, err := p.Enrich(context.Background(), &types.Contact{FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("Enrich() failed: %v", err)
	}
	if facts.LinkedInHeadline != "Countess of Computing" {
		t.Errorf("LinkedInHeadline: got %q", facts.LinkedInHeadline)
	}
	if len(facts.RecentNews) != 1 || facts.RecentNews[0].Title != "Series A" {
		t.Errorf("RecentNews: got %+v", facts.RecentNews)
	}
}

func TestHTTPProviderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: server.URL, RequestsPerSecond: 100, Burst: 100})

	_, err := p.Enrich(context.Background(), &types.Contact{FirstName: "Ada", LastName: "Lovelace"})
	if !errors.Is(err, ErrProvider) {
		t.Errorf("got %v, want ErrProvider", err)
	}
}

func TestHTTPProviderMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: server.URL, RequestsPerSecond: 100, Burst: 100})

	_, err := p.Enrich(context.Background(), &types.Contact{FirstName: "Ada", LastName: "Lovelace"})
	if !errors.Is(err, ErrProvider) {
		t.Errorf("got %v, want ErrProvider", err)
	}
}

func TestHTTPProviderCircuitOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: server.URL, RequestsPerSecond: 1000, Burst: 1000})

	contact := &types.Contact{FirstName: "Ada", LastName: "Lovelace"}
	for i := 0; i < 3; i++ {
		if _, err := p.Enrich(context.Background(), contact); err == nil {
			t.Fatalf("call %d: got nil error", i)
		}
	}

	// Tripped after three consecutive failures; the next call is
	// rejected without reaching the server.
	_, err := p.Enrich(context.Background(), contact)
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("got %v, want ErrProvider", err)
	}
	if p.circuitBreaker.State() != "open" {
		t.Errorf("breaker state: got %q, want open", p.circuitBreaker.State())
	}
}

func TestCircuitBreakerRespectsContext(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (interface{}, error) {
		t.Fatal("fn must not run with cancelled context")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestStaticProviderDeterministic(t *testing.T) {
	p := NewStaticProvider()
	contact := &types.Contact{FirstName: "Ada", LastName: "Lovelace", Company: "Analytical Engines", Role: "Mathematician"}

	first, err := p.Enrich(context.Background(), contact)
	if err != nil {
		t.Fatalf("Enrich() failed: %v", err)
	}
	if first.LinkedInURL != "https://linkedin.com/in/ada-lovelace" {
		t.Errorf("LinkedInURL: got %q", first.LinkedInURL)
	}
	if first.LinkedInHeadline != "Mathematician" {
		t.Errorf("LinkedInHeadline: got %q", first.LinkedInHeadline)
	}
	if first.CompanyWebsite != "https://analyticalengines.example.com" {
		t.Errorf("CompanyWebsite: got %q", first.CompanyWebsite)
	}

	second, err := p.Enrich(context.Background(), contact)
	if err != nil {
		t.Fatalf("Enrich() failed: %v", err)
	}
	if first.LinkedInURL != second.LinkedInURL || first.CompanyWebsite != second.CompanyWebsite {
		t.Error("static provider output not deterministic")
	}
}

func TestFactory(t *testing.T) {
	if _, err := New(Config{Kind: "static"}); err != nil {
		t.Errorf("static: %v", err)
	}
	if _, err := New(Config{}); err != nil {
		t.Errorf("default: %v", err)
	}
	if _, err := New(Config{Kind: "http", BaseURL: "http://localhost:9999", Timeout: time.Second}); err != nil {
		t.Errorf("http: %v", err)
	}
	if _, err := New(Config{Kind: "http"}); err == nil {
		t.Error("http without base URL: got nil error")
	}
	if _, err := New(Config{Kind: "bogus"}); err == nil {
		t.Error("unknown kind: got nil error")
	}
}
