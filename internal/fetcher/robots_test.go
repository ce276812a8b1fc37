package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func robotsServer(t *testing.T, body string, status int, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPolicyCacheDisallowedPath(t *testing.T) {
	srv := robotsServer(t, "User-agent: *\nDisallow: /tickets/\n", http.StatusOK, nil)

	cache := NewPolicyCache(PolicyCacheOptions{UserAgent: "ticketwatcher", Timeout: time.Second}, noopLogger())
	if cache.Allowed(context.Background(), srv.URL+"/tickets/arsenal") {
		t.Fatal("disallowed path should be blocked")
	}
	if !cache.Allowed(context.Background(), srv.URL+"/fixtures") {
		t.Fatal("path outside the disallow rule should be permitted")
	}
}

func TestPolicyCacheAgentSpecificRule(t *testing.T) {
	srv := robotsServer(t, "User-agent: ticketwatcher\nDisallow: /\n\nUser-agent: *\nAllow: /\n", http.StatusOK, nil)

	cache := NewPolicyCache(PolicyCacheOptions{UserAgent: "ticketwatcher", Timeout: time.Second}, noopLogger())
	if cache.Allowed(context.Background(), srv.URL+"/anything") {
		t.Fatal("agent-specific disallow should apply to our user agent")
	}
}

func TestPolicyCacheFetchesOncePerOrigin(t *testing.T) {
	var hits atomic.Int64
	srv := robotsServer(t, "User-agent: *\nAllow: /\n", http.StatusOK, &hits)

	cache := NewPolicyCache(PolicyCacheOptions{UserAgent: "ticketwatcher", Timeout: time.Second}, noopLogger())
	for i := 0; i < 5; i++ {
		if !cache.Allowed(context.Background(), srv.URL+"/page") {
			t.Fatal("allow-all policy should permit fetching")
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("robots.txt should be fetched once per origin, got %d fetches", got)
	}
}

func TestPolicyCacheUnreachablePermits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	cache := NewPolicyCache(PolicyCacheOptions{UserAgent: "ticketwatcher", Timeout: time.Second}, noopLogger())
	if !cache.Allowed(context.Background(), target+"/page") {
		t.Fatal("unreachable robots.txt should permit fetching")
	}
}

func TestPolicyCacheServerErrorPermits(t *testing.T) {
	srv := robotsServer(t, "", http.StatusInternalServerError, nil)

	cache := NewPolicyCache(PolicyCacheOptions{UserAgent: "ticketwatcher", Timeout: time.Second}, noopLogger())
	if !cache.Allowed(context.Background(), srv.URL+"/page") {
		t.Fatal("robots.txt server error should permit fetching")
	}
}

func TestPolicyCacheUnparsableURLPermits(t *testing.T) {
	cache := NewPolicyCache(PolicyCacheOptions{UserAgent: "ticketwatcher", Timeout: time.Second}, noopLogger())
	if !cache.Allowed(context.Background(), "not-a-url") {
		t.Fatal("unparsable URL should be treated as permitted")
	}
}
