package identity

import (
	"fmt"
	"strings"
)

// AllPlatforms lists every Riot platform host the summoner probe may try.
var AllPlatforms = []string{
	"na1", "br1", "la1", "la2", "oc1", "euw1", "eun1", "tr1", "ru", "jp1", "kr",
	"ph2", "sg2", "th2", "tw2", "vn2",
}

var regionByPlatform = map[string]string{
	"na1": "americas", "br1": "americas", "la1": "americas", "la2": "americas", "oc1": "americas",
	"euw1": "europe", "eun1": "europe", "tr1": "europe", "ru": "europe",
	"jp1": "asia", "kr": "asia", "ph2": "asia", "sg2": "asia", "th2": "asia", "tw2": "asia", "vn2": "asia",
}

// tactics.tools uses its own region slugs, close to but not equal to platform ids.
var tacticsSlugByPlatform = map[string]string{
	"na1": "na", "br1": "br", "la1": "lan", "la2": "las", "oc1": "oce", "euw1": "euw", "eun1": "eune",
	"tr1": "tr", "ru": "ru", "jp1": "jp", "kr": "kr", "ph2": "sea", "sg2": "sea", "th2": "sea",
	"tw2": "tw", "vn2": "vn",
}

// AllRegions lists regional routing hosts in account-resolution probe order.
var AllRegions = []string{"americas", "europe", "asia"}

func KnownPlatform(platform string) bool {
	_, ok := regionByPlatform[platform]
	return ok
}

// RegionForPlatform maps a platform host to its regional routing host.
func RegionForPlatform(platform string) string {
	if region, ok := regionByPlatform[platform]; ok {
		return region
	}
	return "americas"
}

// TacticsSlugForPlatform maps a platform host to the tactics.tools region slug.
func TacticsSlugForPlatform(platform string) string {
	if slug, ok := tacticsSlugByPlatform[platform]; ok {
		return slug
	}
	return "na"
}

// RiotID is the human-readable account handle, "Name#Tag".
type RiotID struct {
	GameName string
	TagLine  string
}

func ParseRiotID(raw string) (RiotID, error) {
	name, tag, ok := strings.Cut(raw, "#")
	name = strings.TrimSpace(name)
	tag = strings.TrimSpace(tag)
	if !ok || name == "" || tag == "" {
		return RiotID{}, fmt.Errorf("riot id %q must look like \"Name#Tag\"", raw)
	}
	return RiotID{GameName: name, TagLine: tag}, nil
}

func (r RiotID) IsZero() bool {
	return r.GameName == "" && r.TagLine == ""
}

func (r RiotID) String() string {
	if r.GameName == "" {
		return ""
	}
	if r.TagLine == "" {
		return r.GameName
	}
	return r.GameName + "#" + r.TagLine
}

// Player is one lobby participant. PUUID is the stable identity key; the
// riot id is resolved lazily and may stay empty when resolution fails.
type Player struct {
	PUUID        string
	RiotID       RiotID
	SummonerName string
}

// DisplayName prefers the resolved riot id, then the spectator summoner
// name, then a truncated puuid so every player has a printable label.
func (p Player) DisplayName() string {
	if p.RiotID.GameName != "" && p.RiotID.TagLine != "" {
		return p.RiotID.String()
	}
	if p.SummonerName != "" {
		return p.SummonerName
	}
	if p.RiotID.GameName != "" {
		return p.RiotID.GameName
	}
	if len(p.PUUID) >= 8 {
		return p.PUUID[:8]
	}
	if p.PUUID != "" {
		return p.PUUID
	}
	return "?"
}
