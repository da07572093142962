package tactics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	sonic "github.com/bytedance/sonic"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
	"github.com/hogwashthegreat/tft-assistant/internal/usecase"
)

const (
	defaultBaseURL = "https://tactics.tools"
	maxPageBytes   = 8 << 20
	maxWalkDepth   = 10
	coreSize       = 2
)

type ClientConfig struct {
	HTTPClient  *http.Client
	BaseURL     string
	UserAgent   string
	ScrapeDelay time.Duration
	Timeout     time.Duration
	Logger      *logging.Logger
}

// Client scrapes player profile pages for composition evidence. Every
// fetch passes the robots gate first and is paced so the site sees at most
// one request per ScrapeDelay.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	scrapeDelay time.Duration
	gate        *Gate
	logger      *logging.Logger

	mu     sync.Mutex
	lastAt time.Time
	now    func() time.Time
}

var _ usecase.ProfileStatsSource = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 12 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		userAgent:   strings.TrimSpace(cfg.UserAgent),
		scrapeDelay: cfg.ScrapeDelay,
		gate:        NewGate(httpClient, baseURL+"/robots.txt", cfg.UserAgent, logger),
		logger:      logger,
		now:         time.Now,
	}
}

// PlayerEvidence mines the player's profile page for weighted composition
// cores. Robots denial, a missing page, and an unparseable page are all
// ordinary empty results; only transport failures surface as errors.
func (c *Client) PlayerEvidence(ctx context.Context, regionSlug, gameName, tagLine string) ([]evidence.WeightedCore, error) {
	path := "/player/" + url.PathEscape(regionSlug) + "/" + url.PathEscape(gameName)
	if tagLine != "" {
		path += "/" + url.PathEscape(tagLine)
	}

	if !c.gate.Allowed(ctx, path) {
		c.logger.DebugContext(ctx, "robots.txt disallows profile path", "path", path)
		return nil, nil
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.DebugContext(ctx, "profile page unavailable", "path", path, "status", resp.StatusCode)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse profile page: %w", err)
	}

	payload := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if payload == "" {
		return nil, nil
	}

	var data map[string]any
	if err := sonic.Unmarshal([]byte(payload), &data); err != nil {
		c.logger.DebugContext(ctx, "embedded page state is not valid json", "path", path, "error", err)
		return nil, nil
	}

	series := collectWeightedCores(pageRoot(data))
	if len(series) == 0 {
		c.logger.DebugContext(ctx, "profile page carried no composition rows", "path", path)
	}
	return series, nil
}

// pace reserves the next send slot under the mutex, then waits outside it
// so concurrent callers queue up rather than stampede.
func (c *Client) pace(ctx context.Context) error {
	if c.scrapeDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	now := c.now()
	earliest := c.lastAt.Add(c.scrapeDelay)
	wait := time.Duration(0)
	if earliest.After(now) {
		wait = earliest.Sub(now)
	}
	c.lastAt = now.Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pageRoot picks the densest plausible subtree of the embedded page state.
func pageRoot(data map[string]any) any {
	if props, ok := data["props"].(map[string]any); ok {
		if pageProps, ok := props["pageProps"]; ok && pageProps != nil {
			return pageProps
		}
	}
	if pageProps, ok := data["pageProps"]; ok && pageProps != nil {
		return pageProps
	}
	return data
}

// compCandidate is the typed shape a page object must satisfy to count as
// a composition row: a trait-name list, plus whichever frequency fields the
// page happens to expose.
type compCandidate struct {
	traitNames []string
	sampleSize float64
	playRate   float64
	winRate    float64
	hasSamples bool
	hasRate    bool
	hasWinRate bool
}

// collectWeightedCores walks the page state to bounded depth, shaping every
// object that satisfies the candidate contract, then converts each to a
// weighted core.
func collectWeightedCores(root any) []evidence.WeightedCore {
	candidates := make([]compCandidate, 0, 16)
	findCandidates(root, 0, &candidates)

	series := make([]evidence.WeightedCore, 0, len(candidates))
	for _, cand := range candidates {
		core := cand.core()
		if core.IsEmpty() {
			continue
		}
		series = append(series, evidence.WeightedCore{Core: core, Weight: cand.weight()})
	}
	return series
}

func findCandidates(node any, depth int, out *[]compCandidate) {
	if depth > maxWalkDepth {
		return
	}
	switch value := node.(type) {
	case map[string]any:
		if cand, ok := shapeCandidate(value); ok {
			*out = append(*out, cand)
		}
		for _, child := range value {
			findCandidates(child, depth+1, out)
		}
	case []any:
		for _, child := range value {
			findCandidates(child, depth+1, out)
		}
	}
}

// shapeCandidate checks the candidate contract with field-presence tests.
// Only a traits list is required; trait entries appear both as plain
// strings and as objects keyed name, slug, or key depending on the page.
func shapeCandidate(row map[string]any) (compCandidate, bool) {
	rawTraits, ok := row["traits"].([]any)
	if !ok {
		return compCandidate{}, false
	}

	var cand compCandidate
	for _, raw := range rawTraits {
		var name string
		switch trait := raw.(type) {
		case string:
			name = trait
		case map[string]any:
			for _, key := range []string{"name", "slug", "key"} {
				if text, okText := trait[key].(string); okText && text != "" {
					name = text
					break
				}
			}
		}
		if name != "" {
			cand.traitNames = append(cand.traitNames, name)
		}
	}

	for _, key := range []string{"games", "matches", "count"} {
		if value, okNum := numericField(row, key); okNum {
			cand.sampleSize = max(cand.sampleSize, value)
			cand.hasSamples = true
		}
	}
	for _, key := range []string{"playRate", "playrate", "rate", "pr"} {
		if value, okNum := numericField(row, key); okNum {
			cand.playRate = max(cand.playRate, value)
			cand.hasRate = true
		}
	}
	for _, key := range []string{"winRate", "wr"} {
		if value, okNum := numericField(row, key); okNum {
			cand.winRate += value
			cand.hasWinRate = true
		}
	}

	return cand, true
}

// core keeps the first traits in site order; the page already ranks them.
func (c compCandidate) core() evidence.Core {
	if len(c.traitNames) == 0 {
		return nil
	}
	names := c.traitNames
	if len(names) > coreSize {
		names = names[:coreSize]
	}
	return evidence.Core(names)
}

// weight scores a candidate: raw sample counts win over play rates, and win
// rate adds a small boost on top. A row with no frequency fields still
// counts once.
func (c compCandidate) weight() float64 {
	weight := 1.0
	if c.hasSamples {
		weight = max(weight, c.sampleSize)
	}
	if c.hasRate {
		weight = max(weight, c.playRate*100.0)
	}
	if c.hasWinRate {
		weight += c.winRate * 10.0
	}
	return weight
}

func numericField(row map[string]any, key string) (float64, bool) {
	switch value := row[key].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	}
	return 0, false
}
