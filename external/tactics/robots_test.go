package tactics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
)

func TestParseRobots_WildcardDisallowPrefixes(t *testing.T) {
	t.Parallel()

	policy := parseRobots(`
# comment line
User-agent: googlebot
Disallow: /ignored-section/

User-agent: *
Disallow: /player/
Disallow: /api/
Disallow:
`)

	if policy.Allows("/player/na/Foo") {
		t.Fatal("expected /player/na/Foo to be disallowed")
	}
	if policy.Allows("/api/internal") {
		t.Fatal("expected /api/internal to be disallowed")
	}
	if !policy.Allows("/team-builder") {
		t.Fatal("expected /team-builder to be allowed")
	}
	if !policy.Allows("/ignored-section/page") {
		t.Fatal("expected another agent's disallow to be ignored")
	}
}

func TestParseRobots_EmptyTextAllowsEverything(t *testing.T) {
	t.Parallel()

	policy := parseRobots("")
	if !policy.Allows("/player/na/Foo") {
		t.Fatal("expected empty robots.txt to allow everything")
	}
}

func TestGate_FetchesPolicyOnce(t *testing.T) {
	t.Parallel()

	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Write([]byte("User-agent: *\nDisallow: /player/\n"))
	}))
	t.Cleanup(server.Close)

	gate := NewGate(server.Client(), server.URL+"/robots.txt", "scout-test", logging.NewNop())

	ctx := context.Background()
	if gate.Allowed(ctx, "/player/na/Foo") {
		t.Fatal("expected /player/na/Foo to be denied")
	}
	if !gate.Allowed(ctx, "/about") {
		t.Fatal("expected /about to be allowed")
	}
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("expected 1 robots fetch, got=%d", got)
	}
}

func TestGate_MissingRobotsAllowsEverything(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	gate := NewGate(server.Client(), server.URL+"/robots.txt", "scout-test", logging.NewNop())
	if !gate.Allowed(context.Background(), "/player/na/Foo") {
		t.Fatal("expected a missing robots.txt to allow the path")
	}
}
