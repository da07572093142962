package evidence

import (
	"sort"
	"strings"
)

// Trait is one named composition attribute with its observed strength.
// Tier is the activation level (0 means inactive), Units the piece count
// backing it.
type Trait struct {
	Name  string
	Tier  int
	Units int
}

// Record is a single observation of what a player fielded in one past
// match: the active traits, the finishing placement (1 is best), and the
// 0-based recency index within a newest-first history.
type Record struct {
	Traits    []Trait
	Placement int
	Recency   int
}

// Core is a short ordered trait-name tuple naming the essence of a
// composition. Equal tuples (same names, same order) are the same core.
type Core []string

// Key returns the identity used to merge equal cores in tallies.
func (c Core) Key() string {
	return strings.Join(c, "\x1f")
}

func (c Core) IsEmpty() bool {
	return len(c) == 0
}

// WeightedCore is one entry of an extractor's (core, weight) series.
type WeightedCore struct {
	Core   Core
	Weight float64
}

// Prediction pairs a core with its probability within a player's ranked
// prediction list.
type Prediction struct {
	Core        Core
	Probability float64
}

// CoreFromTraits derives a record's core: sort active traits descending by
// (tier, units) and keep the top two. A borderline second pick (tier below
// 2) is swapped for the third trait when one exists, preferring a definitive
// pair over a shaky one. Fewer than two traits yield whatever is available,
// possibly an empty core.
func CoreFromTraits(traits []Trait) Core {
	active := make([]Trait, 0, len(traits))
	for _, t := range traits {
		if t.Tier > 0 && t.Name != "" {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Tier != active[j].Tier {
			return active[i].Tier > active[j].Tier
		}
		return active[i].Units > active[j].Units
	})

	if len(active) == 0 {
		return nil
	}
	if len(active) == 1 {
		return Core{active[0].Name}
	}
	if active[1].Tier < 2 && len(active) >= 3 {
		return Core{active[0].Name, active[2].Name}
	}
	return Core{active[0].Name, active[1].Name}
}
