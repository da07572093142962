package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/identity"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
)

// Config stores runtime configuration for one scouting run.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	RiotAPIKey    string
	RiotID        identity.RiotID
	PlatformGuess string

	MaxMatches      int
	FallbackMatches int

	HTTPTimeout    time.Duration
	RetryBaseDelay time.Duration

	RiotCircuitEnabled        bool
	RiotCircuitFailureCount   int
	RiotCircuitOpenTimeout    time.Duration
	RiotCircuitHalfOpenMaxReq int

	TacticsBaseURL string
	ScrapeDelay    time.Duration
	ScrapeTimeout  time.Duration
	UserAgent      string

	UptraceEnabled bool
	UptraceDSN     string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	apiKey := strings.Trim(strings.TrimSpace(getEnv("RIOT_API_KEY", "")), "\"'")
	if apiKey == "" {
		return Config{}, fmt.Errorf("RIOT_API_KEY is required")
	}
	if !strings.HasPrefix(apiKey, "RGAPI-") {
		return Config{}, fmt.Errorf("RIOT_API_KEY must start with RGAPI-")
	}

	riotID, err := identity.ParseRiotID(getEnv("RIOT_ID", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse RIOT_ID: %w", err)
	}

	platformGuess := strings.ToLower(strings.TrimSpace(getEnv("RIOT_PLATFORM", "")))
	if platformGuess != "" && !identity.KnownPlatform(platformGuess) {
		return Config{}, fmt.Errorf("unknown RIOT_PLATFORM %q", platformGuess)
	}

	maxMatches, err := getEnvAsInt("SCOUT_MAX_MATCHES", 12)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCOUT_MAX_MATCHES: %w", err)
	}
	if maxMatches < 1 {
		return Config{}, fmt.Errorf("SCOUT_MAX_MATCHES must be >= 1")
	}

	fallbackMatches, err := getEnvAsInt("SCOUT_FALLBACK_MATCHES", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCOUT_FALLBACK_MATCHES: %w", err)
	}
	if fallbackMatches < 1 {
		return Config{}, fmt.Errorf("SCOUT_FALLBACK_MATCHES must be >= 1")
	}

	httpTimeout, err := time.ParseDuration(getEnv("SCOUT_HTTP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCOUT_HTTP_TIMEOUT: %w", err)
	}
	if httpTimeout <= 0 {
		return Config{}, fmt.Errorf("SCOUT_HTTP_TIMEOUT must be > 0")
	}

	retryBaseDelay, err := time.ParseDuration(getEnv("SCOUT_RETRY_BASE_DELAY", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCOUT_RETRY_BASE_DELAY: %w", err)
	}
	if retryBaseDelay <= 0 {
		return Config{}, fmt.Errorf("SCOUT_RETRY_BASE_DELAY must be > 0")
	}

	scrapeDelay, err := time.ParseDuration(getEnv("SCOUT_SCRAPE_DELAY", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCOUT_SCRAPE_DELAY: %w", err)
	}
	if scrapeDelay < 0 {
		return Config{}, fmt.Errorf("SCOUT_SCRAPE_DELAY must be >= 0")
	}

	scrapeTimeout, err := time.ParseDuration(getEnv("SCOUT_SCRAPE_TIMEOUT", "12s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCOUT_SCRAPE_TIMEOUT: %w", err)
	}
	if scrapeTimeout <= 0 {
		return Config{}, fmt.Errorf("SCOUT_SCRAPE_TIMEOUT must be > 0")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("RIOT_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RIOT_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("RIOT_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse RIOT_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailureCount < 1 {
		return Config{}, fmt.Errorf("RIOT_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("RIOT_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RIOT_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if circuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("RIOT_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	circuitHalfOpenMaxReq, err := getEnvAsInt("RIOT_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse RIOT_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if circuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("RIOT_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg := Config{
		AppEnv:                    appEnv,
		ServiceName:               getEnv("APP_SERVICE_NAME", "tft-assistant"),
		ServiceVersion:            getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:                  parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		RiotAPIKey:                apiKey,
		RiotID:                    riotID,
		PlatformGuess:             platformGuess,
		MaxMatches:                maxMatches,
		FallbackMatches:           fallbackMatches,
		HTTPTimeout:               httpTimeout,
		RetryBaseDelay:            retryBaseDelay,
		RiotCircuitEnabled:        circuitEnabled,
		RiotCircuitFailureCount:   circuitFailureCount,
		RiotCircuitOpenTimeout:    circuitOpenTimeout,
		RiotCircuitHalfOpenMaxReq: circuitHalfOpenMaxReq,
		TacticsBaseURL:            strings.TrimRight(strings.TrimSpace(getEnv("TACTICS_BASE_URL", "https://tactics.tools")), "/"),
		ScrapeDelay:               scrapeDelay,
		ScrapeTimeout:             scrapeTimeout,
		UserAgent:                 strings.TrimSpace(getEnv("SCOUT_USER_AGENT", "tft-assistant/1.0 (+https://github.com/hogwashthegreat/tft-assistant)")),
		UptraceEnabled:            uptraceEnabled,
		UptraceDSN:                uptraceDSN,
	}
	if cfg.TacticsBaseURL == "" {
		return Config{}, fmt.Errorf("TACTICS_BASE_URL cannot be empty")
	}
	if cfg.UserAgent == "" {
		return Config{}, fmt.Errorf("SCOUT_USER_AGENT cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
