package agent_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/blacksky-llc/maurice-go/pkg/agent"
	coreerrors "github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/otel"
)

func TestLookupUserContext(t *testing.T) {
	var hits atomic.Int64
	var lastAuth atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/u-123/context" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hits.Add(1)
		lastAuth.Store(r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"interest_level": "hot",
			"lead_status": "qualified",
			"enhanced_facts": {"budget": "50k"},
			"conversation_summary": "evaluating the platform"
		}`)
	}))
	defer server.Close()

	metrics := otel.NewInMemoryMetrics()
	client := agent.NewClient(server.URL, agent.WithAPIKey("secret"), agent.WithMetrics(metrics))

	intel, err := client.LookupUserContext(context.Background(), "u-123")
	if err != nil {
		t.Fatalf("LookupUserContext failed: %v", err)
	}

	if intel.InterestLevel != "hot" || intel.LeadStatus != "qualified" {
		t.Fatalf("unexpected intelligence: %+v", intel)
	}
	if intel.Facts["budget"] != "50k" {
		t.Fatalf("facts not decoded: %+v", intel.Facts)
	}
	if intel.IsNewUser {
		t.Fatalf("known user flagged as new")
	}
	if lastAuth.Load() != "Bearer secret" {
		t.Fatalf("missing bearer auth, got %v", lastAuth.Load())
	}

	// Second lookup is served from cache.
	if _, err := client.LookupUserContext(context.Background(), "u-123"); err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", hits.Load())
	}
	if got := metrics.GetCounterValue(otel.MetricAgentCacheHits); got != 1 {
		t.Fatalf("expected 1 cache hit recorded, got %d", got)
	}
	if got := metrics.GetCounterValue(otel.MetricAgentLookups); got != 1 {
		t.Fatalf("expected 1 lookup recorded, got %d", got)
	}
}

func TestLookupUserContextUnknownUser(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := agent.NewClient(server.URL)

	intel, err := client.LookupUserContext(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("LookupUserContext failed: %v", err)
	}
	if !intel.IsNewUser {
		t.Fatalf("expected IsNewUser for 404, got %+v", intel)
	}

	// The not-found result is cached too.
	if _, err := client.LookupUserContext(context.Background(), "stranger"); err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", hits.Load())
	}
}

func TestLookupUserContextServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := agent.NewClient(server.URL)

	_, err := client.LookupUserContext(context.Background(), "u-123")
	if !errors.Is(err, coreerrors.ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}
}

func TestLookupUserContextUnreachable(t *testing.T) {
	client := agent.NewClient("http://localhost:1")

	_, err := client.LookupUserContext(context.Background(), "u-123")
	if !errors.Is(err, coreerrors.ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}
}

func TestLookupUserContextNotConfigured(t *testing.T) {
	client := agent.NewClient("")

	if client.Configured() {
		t.Fatalf("empty base URL should mean not configured")
	}

	_, err := client.LookupUserContext(context.Background(), "u-123")
	if !errors.Is(err, coreerrors.ErrAgentNotConfigured) {
		t.Fatalf("expected ErrAgentNotConfigured, got %v", err)
	}
}

func TestClearCache(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"interest_level":"warm"}`)
	}))
	defer server.Close()

	client := agent.NewClient(server.URL)
	ctx := context.Background()

	if _, err := client.LookupUserContext(ctx, "u-1"); err != nil {
		t.Fatalf("LookupUserContext failed: %v", err)
	}

	client.ClearCache("u-1")
	if _, err := client.LookupUserContext(ctx, "u-1"); err != nil {
		t.Fatalf("LookupUserContext failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected cache cleared, got %d upstream hits", hits.Load())
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if ok := agent.NewClient(server.URL).HealthCheck(context.Background()); !ok {
		t.Fatalf("expected healthy")
	}
	if ok := agent.NewClient("").HealthCheck(context.Background()); ok {
		t.Fatalf("unconfigured client must report unhealthy")
	}
}
