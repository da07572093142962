package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
	"github.com/hogwashthegreat/tft-assistant/internal/domain/identity"
	"github.com/hogwashthegreat/tft-assistant/internal/platform/logging"
)

type stubDirectory struct {
	mu            sync.Mutex
	puuidByHandle map[string]string
	idByPUUID     map[string]identity.RiotID
	regionsTried  []string
	lookupErr     error
}

func (s *stubDirectory) AccountByRiotID(_ context.Context, region, gameName, tagLine string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regionsTried = append(s.regionsTried, region)
	if s.lookupErr != nil {
		return "", s.lookupErr
	}
	if puuid, ok := s.puuidByHandle[gameName+"#"+tagLine]; ok {
		return puuid, nil
	}
	return "", fmt.Errorf("%w: account", ErrNotFound)
}

func (s *stubDirectory) AccountByPUUID(_ context.Context, _ string, puuid string) (identity.RiotID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.idByPUUID[puuid]; ok {
		return id, nil
	}
	return identity.RiotID{}, fmt.Errorf("%w: account", ErrNotFound)
}

type stubSession struct {
	pingErr      error
	platform     string
	participants []identity.Player
	gameErr      error
}

func (s *stubSession) Ping(_ context.Context, _ string) error { return s.pingErr }

func (s *stubSession) HasSummoner(_ context.Context, platform, _ string) (bool, error) {
	return platform == s.platform, nil
}

func (s *stubSession) ActiveGame(_ context.Context, _, _ string) ([]identity.Player, error) {
	if s.gameErr != nil {
		return nil, s.gameErr
	}
	return s.participants, nil
}

// fixedProfiles returns a canned series per game name so each lobby player
// gets a distinct prediction.
type fixedProfiles struct {
	seriesByName map[string][]evidence.WeightedCore
}

func (f *fixedProfiles) PlayerEvidence(_ context.Context, _, gameName, _ string) ([]evidence.WeightedCore, error) {
	return f.seriesByName[gameName], nil
}

type emptyMatches struct{}

func (emptyMatches) RecentEvidence(_ context.Context, _, _ string, _ int) ([]evidence.Record, error) {
	return nil, nil
}

func newScoutFixture() (*LobbyService, *stubDirectory, *stubSession) {
	directory := &stubDirectory{
		puuidByHandle: map[string]string{"Scout#NA1": "puuid-self"},
		idByPUUID: map[string]identity.RiotID{
			"puuid-self":  {GameName: "Scout", TagLine: "NA1"},
			"puuid-two":   {GameName: "Rival", TagLine: "EUW"},
			"puuid-three": {GameName: "Quiet", TagLine: "KR1"},
		},
	}
	session := &stubSession{
		platform: "na1",
		participants: []identity.Player{
			{PUUID: "puuid-self"},
			{PUUID: "puuid-two"},
			{PUUID: "puuid-three"},
		},
	}
	profiles := &fixedProfiles{seriesByName: map[string][]evidence.WeightedCore{
		"Scout": {
			{Core: evidence.Core{"Set15_Duelist", "Set15_Sniper"}, Weight: 6},
			{Core: evidence.Core{"Set15_Bruiser", "Set15_Sorcerer"}, Weight: 4},
		},
		"Rival": {
			{Core: evidence.Core{"Set15_Duelist", "Set15_Vanguard"}, Weight: 1},
			{Core: evidence.Core{"Set15_Invoker", "Set15_Sniper"}, Weight: 1},
		},
	}}
	predictor := NewPredictorService(profiles, emptyMatches{}, 4, 12, logging.NewNop())
	return NewLobbyService(directory, session, predictor, logging.NewNop()), directory, session
}

func TestScoutProducesOrderedReportAndContention(t *testing.T) {
	t.Parallel()

	svc, _, _ := newScoutFixture()
	report, err := svc.Scout(context.Background(), identity.RiotID{GameName: "Scout", TagLine: "NA1"}, "na1")
	if err != nil {
		t.Fatalf("Scout: %v", err)
	}

	if report.Platform != "na1" {
		t.Fatalf("platform = %q, want na1", report.Platform)
	}
	if len(report.Players) != 3 {
		t.Fatalf("player count = %d, want 3", len(report.Players))
	}
	// Participant order survives name resolution and prediction.
	wantNames := []string{"Scout#NA1", "Rival#EUW", "Quiet#KR1"}
	for i, want := range wantNames {
		if got := report.Players[i].Player.DisplayName(); got != want {
			t.Fatalf("player %d = %q, want %q", i, got, want)
		}
	}

	if len(report.Players[2].Predictions) != 0 {
		t.Fatalf("Quiet has predictions %v, want none", report.Players[2].Predictions)
	}
	if !report.HasSignal() {
		t.Fatal("HasSignal() = false, want true")
	}

	// Scout's top core is (Duelist, Sniper) at 0.6; Rival's is
	// (Duelist, Vanguard) at 0.5. Duelist is the only shared trait.
	if len(report.MostContested) == 0 || report.MostContested[0].Trait != "Set15_Duelist" {
		t.Fatalf("most contested head = %+v, want Set15_Duelist", report.MostContested)
	}
	if !almostEqual(report.MostContested[0].Score, 1.1) {
		t.Fatalf("Set15_Duelist score = %v, want 1.1", report.MostContested[0].Score)
	}
	if head := report.LeastContested[0]; head.Trait == "Set15_Duelist" {
		t.Fatalf("least contested head = %+v, want a non-shared trait", head)
	}
}

func TestScoutAbortsOnUnauthorizedPing(t *testing.T) {
	t.Parallel()

	svc, _, session := newScoutFixture()
	session.pingErr = fmt.Errorf("%w: key rejected", ErrUnauthorized)

	_, err := svc.Scout(context.Background(), identity.RiotID{GameName: "Scout", TagLine: "NA1"}, "na1")
	if err == nil || !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestScoutMapsMissingGameToNotInGame(t *testing.T) {
	t.Parallel()

	svc, _, session := newScoutFixture()
	session.gameErr = fmt.Errorf("%w: spectator", ErrNotFound)

	_, err := svc.Scout(context.Background(), identity.RiotID{GameName: "Scout", TagLine: "NA1"}, "na1")
	if err == nil || !errors.Is(err, ErrNotInGame) {
		t.Fatalf("error = %v, want ErrNotInGame", err)
	}
}

func TestScoutRejectsPartialRiotID(t *testing.T) {
	t.Parallel()

	svc, _, _ := newScoutFixture()
	_, err := svc.Scout(context.Background(), identity.RiotID{GameName: "Scout"}, "na1")
	if err == nil || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestScoutTriesEveryRegionForAccount(t *testing.T) {
	t.Parallel()

	svc, directory, _ := newScoutFixture()
	directory.puuidByHandle = map[string]string{}

	_, err := svc.Scout(context.Background(), identity.RiotID{GameName: "Ghost", TagLine: "XX"}, "na1")
	if err == nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if len(directory.regionsTried) != len(identity.AllRegions) {
		t.Fatalf("regions tried = %v, want all of %v", directory.regionsTried, identity.AllRegions)
	}
}
