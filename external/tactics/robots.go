package tactics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hogwashthegreat/tft-assistant/internal/platform/cache"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
)

// robotsPolicy is the minimal subset of robots.txt the scraper honors: the
// Disallow prefixes declared for the wildcard user agent.
type robotsPolicy struct {
	disallow []string
}

func parseRobots(text string) robotsPolicy {
	var policy robotsPolicy
	wildcard := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "user-agent:"):
			_, agent, _ := strings.Cut(line, ":")
			wildcard = strings.TrimSpace(agent) == "*"
		case wildcard && strings.HasPrefix(lower, "disallow:"):
			_, prefix, _ := strings.Cut(line, ":")
			if prefix = strings.TrimSpace(prefix); prefix != "" {
				policy.disallow = append(policy.disallow, prefix)
			}
		}
	}
	return policy
}

// Allows matches paths by prefix, the way most crawlers interpret Disallow.
func (p robotsPolicy) Allows(path string) bool {
	for _, prefix := range p.disallow {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// Gate fetches and caches the site's robots.txt for the lifetime of the
// process and answers per-path crawl questions. An unreadable robots.txt
// allows everything; the pacing delay still applies.
type Gate struct {
	httpClient *http.Client
	robotsURL  string
	userAgent  string
	policies   *cache.Store
	logger     *logging.Logger
}

func NewGate(httpClient *http.Client, robotsURL, userAgent string, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{
		httpClient: httpClient,
		robotsURL:  robotsURL,
		userAgent:  userAgent,
		policies:   cache.NewStore(0),
		logger:     logger,
	}
}

func (g *Gate) Allowed(ctx context.Context, path string) bool {
	value, err := g.policies.GetOrLoad(ctx, g.robotsURL, g.fetchPolicy)
	if err != nil {
		g.logger.DebugContext(ctx, "robots.txt unreadable, allowing path", "path", path, "error", err)
		return true
	}
	policy, ok := value.(robotsPolicy)
	if !ok {
		return true
	}
	return policy.Allows(path)
}

func (g *Gate) fetchPolicy(ctx context.Context) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A missing or broken robots.txt means no restrictions.
		return robotsPolicy{}, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	return parseRobots(string(raw)), nil
}
