package riot

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
	"github.com/hogwashthegreat/tft-assistant/internal/domain/identity"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/resilience"
	"github.com/hogwashthegreat/tft-assistant/internal/usecase"
)

const (
	defaultHostSuffix = "api.riotgames.com"
	maxFetchAttempts  = 7
	backoffGrowth     = 1.6
	maxBodyBytes      = 4 << 20
)

var errRiotTransient = crerr.New("riot transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	// BaseURL overrides the per-host https endpoint scheme entirely. Meant
	// for pointing the client at a stand-in server.
	BaseURL        string
	HostSuffix     string
	APIKey         string
	Timeout        time.Duration
	RetryBaseDelay time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the Riot platform and regional hosts. One instance serves
// every host: the host name is part of each request, the key and retry
// policy are shared.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	hostSuffix     string
	apiKey         string
	retryBaseDelay time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

var (
	_ usecase.AccountDirectory   = (*Client)(nil)
	_ usecase.SessionSource      = (*Client)(nil)
	_ usecase.MatchHistorySource = (*Client)(nil)
)

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
		httpClient.Timeout = 10 * time.Second
	}

	hostSuffix := strings.TrimSpace(cfg.HostSuffix)
	if hostSuffix == "" {
		hostSuffix = defaultHostSuffix
	}

	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = time.Second
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		hostSuffix:     hostSuffix,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// Ping hits the status endpoint, which answers for any valid key.
func (c *Client) Ping(ctx context.Context, platform string) error {
	var payload map[string]any
	err := c.doJSON(ctx, platform, "/tft/status/v1/platform-data", &payload)
	if err != nil && stderrors.Is(err, usecase.ErrNotFound) {
		// Some platforms answer 404 here while still accepting the key.
		return nil
	}
	return err
}

// AccountByRiotID resolves "name#tag" to a puuid on a regional host.
func (c *Client) AccountByRiotID(ctx context.Context, region, gameName, tagLine string) (string, error) {
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName), url.PathEscape(tagLine))

	var account accountEnvelope
	if err := c.doJSON(ctx, region, path, &account); err != nil {
		return "", err
	}
	if account.PUUID == "" {
		return "", fmt.Errorf("%w: account payload carried no puuid", usecase.ErrNotFound)
	}
	return account.PUUID, nil
}

// AccountByPUUID resolves a puuid back to its riot id.
func (c *Client) AccountByPUUID(ctx context.Context, region, puuid string) (identity.RiotID, error) {
	path := "/riot/account/v1/accounts/by-puuid/" + url.PathEscape(puuid)

	var account accountEnvelope
	if err := c.doJSON(ctx, region, path, &account); err != nil {
		return identity.RiotID{}, err
	}
	return identity.RiotID{GameName: account.GameName, TagLine: account.TagLine}, nil
}

// HasSummoner reports whether the platform hosts a summoner record for the
// puuid. A 404 is a plain "no", not an error.
func (c *Client) HasSummoner(ctx context.Context, platform, puuid string) (bool, error) {
	path := "/tft/summoner/v1/summoners/by-puuid/" + url.PathEscape(puuid)

	var summoner summonerEnvelope
	err := c.doJSON(ctx, platform, path, &summoner)
	if err != nil {
		if stderrors.Is(err, usecase.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return summoner.PUUID != "", nil
}

// ActiveGame returns the live-lobby participants for the puuid, or
// ErrNotFound when the spectator endpoint has no session.
func (c *Client) ActiveGame(ctx context.Context, platform, puuid string) ([]identity.Player, error) {
	path := "/lol/spectator/tft/v5/active-games/by-puuid/" + url.PathEscape(puuid)

	var game activeGameEnvelope
	if err := c.doJSON(ctx, platform, path, &game); err != nil {
		return nil, err
	}

	players := make([]identity.Player, 0, len(game.Participants))
	for _, participant := range game.Participants {
		player := participant.toPlayer()
		if player.PUUID == "" {
			continue
		}
		players = append(players, player)
	}
	return players, nil
}

// RecentMatchIDs returns up to count match ids, newest first.
func (c *Client) RecentMatchIDs(ctx context.Context, region, puuid string, count int) ([]string, error) {
	if count < 1 {
		count = 1
	}
	path := fmt.Sprintf("/tft/match/v1/matches/by-puuid/%s/ids?count=%d", url.PathEscape(puuid), count)

	var ids []string
	if err := c.doJSON(ctx, region, path, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// MatchByID fetches one match document.
func (c *Client) MatchByID(ctx context.Context, region, matchID string) (matchEnvelope, error) {
	path := "/tft/match/v1/matches/" + url.PathEscape(matchID)

	var match matchEnvelope
	if err := c.doJSON(ctx, region, path, &match); err != nil {
		return matchEnvelope{}, err
	}
	return match, nil
}

// RecentEvidence pulls the newest matches and maps the puuid's board in
// each to an observation. A match that fails to fetch is skipped unless the
// failure would also doom the rest of the batch.
func (c *Client) RecentEvidence(ctx context.Context, region, puuid string, maxSamples int) ([]evidence.Record, error) {
	ids, err := c.RecentMatchIDs(ctx, region, puuid, maxSamples)
	if err != nil {
		if stderrors.Is(err, usecase.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list match ids: %w", err)
	}

	records := make([]evidence.Record, 0, len(ids))
	for recency, matchID := range ids {
		match, fetchErr := c.MatchByID(ctx, region, matchID)
		if fetchErr != nil {
			if stderrors.Is(fetchErr, usecase.ErrUnauthorized) || stderrors.Is(fetchErr, usecase.ErrRateLimited) {
				return nil, fmt.Errorf("fetch match %s: %w", matchID, fetchErr)
			}
			c.logger.WarnContext(ctx, "skipping unfetchable match", "match_id", matchID, "error", fetchErr)
			continue
		}
		if record, ok := match.evidenceRecord(puuid, recency); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (c *Client) doJSON(ctx context.Context, host, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "riot circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: riot api is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.endpoint(host, path)

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errRiotTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode riot payload: %w", err)
	}
	return nil
}

// executeRequest runs the attempt loop. Only 429 is retried; the wait grows
// geometrically from the base delay, and a Retry-After header overrides the
// computed wait.
func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	delay := c.retryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: send request: %s", errRiotTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		}

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: read response body: %v", errRiotTransient, readErr)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return raw, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: riot status=404", usecase.ErrNotFound)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: riot status=%d", usecase.ErrUnauthorized, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: %w: riot status=429", errRiotTransient, usecase.ErrRateLimited)
			if attempt == maxFetchAttempts {
				break
			}
			wait := delay
			if retryAfter := parseRetryAfter(resp.Header.Get("Retry-After")); retryAfter > 0 {
				wait = retryAfter
			}
			c.logger.DebugContext(ctx, "riot rate limited, backing off",
				"attempt", attempt, "wait", wait.String())
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * backoffGrowth)
			continue
		default:
			return nil, fmt.Errorf("%w: riot status=%d body=%s", errRiotTransient, resp.StatusCode, abbreviateBody(raw))
		}
		break
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("riot request failed")
	}
	c.logger.WarnContext(ctx, "riot request exhausted retries", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) endpoint(host, path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return fmt.Sprintf("https://%s.%s%s", host, c.hostSuffix, path)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sanitizeSensitiveText(value, secret string) string {
	value = strings.TrimSpace(value)
	if value == "" || secret == "" {
		return value
	}
	return strings.ReplaceAll(value, secret, "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
