package usecase

import (
	"context"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
	"github.com/hogwashthegreat/tft-assistant/internal/domain/identity"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
)

// ProfileStatsSource mines composition evidence from a third-party stats
// profile. A nil error with an empty series is a normal "nothing published
// for this player" outcome.
type ProfileStatsSource interface {
	PlayerEvidence(ctx context.Context, regionSlug, gameName, tagLine string) ([]evidence.WeightedCore, error)
}

// MatchHistorySource extracts evidence records from recent match history,
// newest first.
type MatchHistorySource interface {
	RecentEvidence(ctx context.Context, region, puuid string, maxSamples int) ([]evidence.Record, error)
}

// PredictorService predicts a single player's likely cores, preferring the
// cheap scraped profile and falling back to match history. The fallback
// after a scrape attempt stays shallow to conserve api calls; a player
// the scraper cannot even address gets the deeper scan instead.
type PredictorService struct {
	profiles        ProfileStatsSource
	matches         MatchHistorySource
	fallbackSamples int
	deepSamples     int
	logger          *logging.Logger
}

func NewPredictorService(profiles ProfileStatsSource, matches MatchHistorySource, fallbackSamples, deepSamples int, logger *logging.Logger) *PredictorService {
	if fallbackSamples < 1 {
		fallbackSamples = 4
	}
	if deepSamples < fallbackSamples {
		deepSamples = fallbackSamples
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictorService{
		profiles:        profiles,
		matches:         matches,
		fallbackSamples: fallbackSamples,
		deepSamples:     deepSamples,
		logger:          logger,
	}
}

// Predict returns the ranked prediction list for one player. Source
// failures degrade to the next source and finally to an empty list; an
// empty list means "no signal", never an error.
func (s *PredictorService) Predict(ctx context.Context, player identity.Player, tacticsSlug, region string) []evidence.Prediction {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictorService.Predict")
	defer span.End()

	samples := s.deepSamples
	if player.RiotID.GameName != "" {
		samples = s.fallbackSamples
		series, err := s.profiles.PlayerEvidence(ctx, tacticsSlug, player.RiotID.GameName, player.RiotID.TagLine)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "profile scrape failed, falling back to match history",
				"player", player.DisplayName(),
				"error", err,
			)
		case len(series) > 0:
			if preds := rankCores(series); len(preds) > 0 {
				return preds
			}
		}
	}

	records, err := s.matches.RecentEvidence(ctx, region, player.PUUID, samples)
	if err != nil {
		s.logger.WarnContext(ctx, "match-history fallback failed",
			"player", player.DisplayName(),
			"error", err,
		)
		return nil
	}

	return scoreRecords(records)
}
