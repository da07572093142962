package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
	"github.com/hogwashthegreat/tft-assistant/internal/domain/identity"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
)

const (
	nameWorkerCap     = 6
	contentionDisplay = 8
)

// AccountDirectory resolves between riot ids and puuids on a regional host.
type AccountDirectory interface {
	AccountByRiotID(ctx context.Context, region, gameName, tagLine string) (string, error)
	AccountByPUUID(ctx context.Context, region, puuid string) (identity.RiotID, error)
}

// SessionSource answers platform-routed live-session questions.
type SessionSource interface {
	Ping(ctx context.Context, platform string) error
	HasSummoner(ctx context.Context, platform, puuid string) (bool, error)
	ActiveGame(ctx context.Context, platform, puuid string) ([]identity.Player, error)
}

// PlayerPrediction pairs one lobby participant with their ranked cores.
type PlayerPrediction struct {
	Player      identity.Player
	Predictions []evidence.Prediction
}

// LobbyReport is the complete output of one scouting run, in participant
// order.
type LobbyReport struct {
	Platform       string
	Players        []PlayerPrediction
	MostContested  []TraitContention
	LeastContested []TraitContention
}

// HasSignal reports whether any player produced a usable top prediction.
func (r LobbyReport) HasSignal() bool {
	for _, p := range r.Players {
		if len(p.Predictions) > 0 {
			return true
		}
	}
	return false
}

// LobbyService drives the whole pipeline: session bootstrap, concurrent
// display-name resolution, sequential per-player prediction, and lobby
// aggregation.
type LobbyService struct {
	directory AccountDirectory
	session   SessionSource
	predictor *PredictorService
	logger    *logging.Logger
}

func NewLobbyService(directory AccountDirectory, session SessionSource, predictor *PredictorService, logger *logging.Logger) *LobbyService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LobbyService{
		directory: directory,
		session:   session,
		predictor: predictor,
		logger:    logger,
	}
}

// Scout resolves the caller's live lobby and predicts every participant's
// likely cores. Only an authorization failure during bootstrap aborts the
// run; per-player trouble degrades to empty predictions.
func (s *LobbyService) Scout(ctx context.Context, riotID identity.RiotID, platformGuess string) (LobbyReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LobbyService.Scout")
	defer span.End()

	if riotID.GameName == "" || riotID.TagLine == "" {
		return LobbyReport{}, fmt.Errorf("%w: riot id must carry name and tag", ErrInvalidInput)
	}

	// Surfaces a bad or expired key before any real work happens.
	if err := s.session.Ping(ctx, "na1"); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return LobbyReport{}, fmt.Errorf("credential check failed: %w", err)
		}
		s.logger.WarnContext(ctx, "status ping failed, continuing", "error", err)
	}

	puuid, err := s.resolveAccount(ctx, riotID)
	if err != nil {
		return LobbyReport{}, err
	}
	s.logger.InfoContext(ctx, "account resolved", "riot_id", riotID.String())

	platform, err := s.resolvePlatform(ctx, puuid, platformGuess)
	if err != nil {
		return LobbyReport{}, err
	}
	region := identity.RegionForPlatform(platform)
	tacticsSlug := identity.TacticsSlugForPlatform(platform)
	s.logger.InfoContext(ctx, "platform resolved", "platform", platform, "region", region, "tactics_slug", tacticsSlug)

	participants, err := s.session.ActiveGame(ctx, platform, puuid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LobbyReport{}, fmt.Errorf("%w: spectator has no session for this player", ErrNotInGame)
		}
		return LobbyReport{}, fmt.Errorf("spectator lookup: %w", err)
	}
	if len(participants) == 0 {
		return LobbyReport{}, fmt.Errorf("%w: session has no participants", ErrNotInGame)
	}
	s.logger.InfoContext(ctx, "live game found", "players", len(participants))

	names := s.resolveNames(ctx, region, participants)
	for i := range participants {
		if id, ok := names[participants[i].PUUID]; ok {
			participants[i].RiotID = id
		}
	}

	// Prediction stays sequential in participant order: the scrape source
	// mandates a pacing delay per request.
	predictionsByPUUID := make(map[string][]evidence.Prediction, len(participants))
	players := make([]PlayerPrediction, 0, len(participants))
	for i, p := range participants {
		if _, dup := predictionsByPUUID[p.PUUID]; dup {
			continue
		}
		s.logger.InfoContext(ctx, "predicting player",
			"position", fmt.Sprintf("%d/%d", i+1, len(participants)),
			"player", p.DisplayName(),
		)
		preds := s.predictor.Predict(ctx, p, tacticsSlug, region)
		predictionsByPUUID[p.PUUID] = preds
		players = append(players, PlayerPrediction{Player: p, Predictions: preds})
	}

	tally := ContentionFromPredictions(predictionsByPUUID)

	return LobbyReport{
		Platform:       platform,
		Players:        players,
		MostContested:  MostContested(tally, contentionDisplay),
		LeastContested: LeastContested(tally, contentionDisplay),
	}, nil
}

// resolveAccount tries every regional routing host; account records migrate
// between them, so a 404 on one host is not conclusive.
func (s *LobbyService) resolveAccount(ctx context.Context, riotID identity.RiotID) (string, error) {
	var lastErr error
	for _, region := range identity.AllRegions {
		puuid, err := s.directory.AccountByRiotID(ctx, region, riotID.GameName, riotID.TagLine)
		if err == nil && puuid != "" {
			return puuid, nil
		}
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return "", fmt.Errorf("account lookup on %s: %w", region, err)
			}
			if !errors.Is(err, ErrNotFound) {
				lastErr = err
			}
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("account lookup failed on every region: %w", lastErr)
	}
	return "", fmt.Errorf("%w: no account for %s", ErrNotFound, riotID.String())
}

func (s *LobbyService) resolvePlatform(ctx context.Context, puuid, guess string) (string, error) {
	if guess != "" && identity.KnownPlatform(guess) {
		ok, err := s.session.HasSummoner(ctx, guess, puuid)
		if err == nil && ok {
			return guess, nil
		}
		if err != nil && errors.Is(err, ErrUnauthorized) {
			return "", fmt.Errorf("summoner probe on %s: %w", guess, err)
		}
	}

	for _, platform := range identity.AllPlatforms {
		if platform == guess {
			continue
		}
		ok, err := s.session.HasSummoner(ctx, platform, puuid)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return "", fmt.Errorf("summoner probe on %s: %w", platform, err)
			}
			continue
		}
		if ok {
			return platform, nil
		}
	}

	return "", fmt.Errorf("%w: no platform hosts this summoner", ErrNotFound)
}

// resolveNames fans account lookups out over a bounded worker pool. Results
// are keyed by puuid; a failed lookup just leaves the player on their
// fallback label.
func (s *LobbyService) resolveNames(ctx context.Context, region string, participants []identity.Player) map[string]identity.RiotID {
	puuids := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.PUUID != "" {
			puuids = append(puuids, p.PUUID)
		}
	}
	if len(puuids) == 0 {
		return nil
	}

	workerCount := nameWorkerCap
	if len(puuids) < workerCount {
		workerCount = len(puuids)
	}

	type resolved struct {
		puuid string
		id    identity.RiotID
	}

	results := make(chan resolved, len(puuids))

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		s.logger.WarnContext(ctx, "name-resolution pool unavailable, resolving sequentially", "error", err)
		out := make(map[string]identity.RiotID, len(puuids))
		for _, pu := range puuids {
			if id, lookupErr := s.directory.AccountByPUUID(ctx, region, pu); lookupErr == nil {
				out[pu] = id
			}
		}
		return out
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, pu := range puuids {
		pu := pu
		workers.Add(1)
		if submitErr := pool.Submit(func() {
			defer workers.Done()

			id, lookupErr := s.directory.AccountByPUUID(ctx, region, pu)
			if lookupErr != nil {
				s.logger.DebugContext(ctx, "display-name lookup failed", "puuid_prefix", shortPUUID(pu), "error", lookupErr)
				return
			}
			results <- resolved{puuid: pu, id: id}
		}); submitErr != nil {
			workers.Done()
			s.logger.WarnContext(ctx, "name-resolution submit failed", "puuid_prefix", shortPUUID(pu), "error", submitErr)
		}
	}

	workers.Wait()
	close(results)

	out := make(map[string]identity.RiotID, len(puuids))
	for item := range results {
		out[item.puuid] = item.id
	}
	return out
}

func shortPUUID(puuid string) string {
	if len(puuid) > 8 {
		return puuid[:8]
	}
	return puuid
}
