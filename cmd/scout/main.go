package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hogwashthegreat/tft-assistant/external/riot"
	"github.com/hogwashthegreat/tft-assistant/external/tactics"
	"github.com/hogwashthegreat/tft-assistant/internal/config"
	"github.com/hogwashthegreat/tft-assistant/internal/interfaces/console"
	"github.com/hogwashthegreat/tft-assistant/internal/observability"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/id"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/resilience"
	"github.com/hogwashthegreat/tft-assistant/internal/usecase"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}

	// Logs go to stderr; stdout carries only the report.
	logger := logging.NewJSON(cfg.LogLevel).With("run_id", id.NewRunID())
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("uptrace init failed", "error", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	riotClient := riot.NewClient(riot.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		APIKey:         cfg.RiotAPIKey,
		RetryBaseDelay: cfg.RetryBaseDelay,
		Logger:         logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.RiotCircuitEnabled,
			FailureThreshold: cfg.RiotCircuitFailureCount,
			OpenTimeout:      cfg.RiotCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.RiotCircuitHalfOpenMaxReq,
		},
	})

	tacticsClient := tactics.NewClient(tactics.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.ScrapeTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:     cfg.TacticsBaseURL,
		UserAgent:   cfg.UserAgent,
		ScrapeDelay: cfg.ScrapeDelay,
		Logger:      logger,
	})

	predictor := usecase.NewPredictorService(tacticsClient, riotClient, cfg.FallbackMatches, cfg.MaxMatches, logger)
	lobby := usecase.NewLobbyService(riotClient, riotClient, predictor, logger)

	logger.Info("scouting lobby",
		"riot_id", cfg.RiotID.String(),
		"platform_guess", cfg.PlatformGuess,
	)

	report, err := lobby.Scout(ctx, cfg.RiotID, cfg.PlatformGuess)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnauthorized):
			fmt.Fprintln(os.Stderr, "riot api rejected the key; check RIOT_API_KEY (keys expire daily for dev keys)")
		case errors.Is(err, usecase.ErrNotInGame):
			fmt.Fprintln(os.Stderr, "not in an active game; run again during champ select, loading, or in-game")
		case errors.Is(err, usecase.ErrNotFound):
			fmt.Fprintln(os.Stderr, "account not found; double-check RIOT_ID spelling and tag")
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, "interrupted")
		default:
			fmt.Fprintln(os.Stderr, "scout failed:", err)
		}
		logger.Error("scout run failed", "error", err)
		return 1
	}

	if err := console.Render(os.Stdout, report); err != nil {
		logger.Error("render report", "error", err)
		return 1
	}
	return 0
}
