package riot

import (
	"strings"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
	"github.com/hogwashthegreat/tft-assistant/internal/domain/identity"
)

type accountEnvelope struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type summonerEnvelope struct {
	PUUID         string `json:"puuid"`
	Level         int64  `json:"summonerLevel"`
	ProfileIconID int64  `json:"profileIconId"`
}

type activeGameEnvelope struct {
	GameID       int64                   `json:"gameId"`
	GameMode     string                  `json:"gameMode"`
	Participants []activeGameParticipant `json:"participants"`
}

type activeGameParticipant struct {
	PUUID        string `json:"puuid"`
	RiotID       string `json:"riotId"`
	SummonerName string `json:"summonerName"`
}

func (p activeGameParticipant) toPlayer() identity.Player {
	player := identity.Player{
		PUUID:        strings.TrimSpace(p.PUUID),
		SummonerName: strings.TrimSpace(p.SummonerName),
	}
	if id, err := identity.ParseRiotID(p.RiotID); err == nil {
		player.RiotID = id
	}
	return player
}

type matchEnvelope struct {
	Metadata matchMetadata `json:"metadata"`
	Info     matchInfo     `json:"info"`
}

type matchMetadata struct {
	MatchID      string   `json:"match_id"`
	Participants []string `json:"participants"`
}

type matchInfo struct {
	GameDatetime int64              `json:"game_datetime"`
	QueueID      int64              `json:"queue_id"`
	Participants []matchParticipant `json:"participants"`
}

type matchParticipant struct {
	PUUID     string       `json:"puuid"`
	Placement int          `json:"placement"`
	Traits    []matchTrait `json:"traits"`
}

type matchTrait struct {
	Name        string `json:"name"`
	TierCurrent int    `json:"tier_current"`
	NumUnits    int    `json:"num_units"`
}

// evidenceRecord maps one match participant to a scored observation.
// Recency is the caller's position in the newest-first id list.
func (m matchEnvelope) evidenceRecord(puuid string, recency int) (evidence.Record, bool) {
	for _, participant := range m.Info.Participants {
		if participant.PUUID != puuid {
			continue
		}
		traits := make([]evidence.Trait, 0, len(participant.Traits))
		for _, trait := range participant.Traits {
			if trait.Name == "" {
				continue
			}
			traits = append(traits, evidence.Trait{
				Name:  trait.Name,
				Tier:  trait.TierCurrent,
				Units: trait.NumUnits,
			})
		}
		return evidence.Record{
			Traits:    traits,
			Placement: participant.Placement,
			Recency:   recency,
		}, true
	}
	return evidence.Record{}, false
}
