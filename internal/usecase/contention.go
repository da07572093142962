package usecase

import (
	"sort"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
)

// TraitContention is one row of the lobby contention ranking.
type TraitContention struct {
	Trait string
	Score float64
}

// ContentionFromPredictions sums, per trait, the probability of each
// player's leading prediction. Players without predictions contribute
// nothing at all, not a zero entry.
func ContentionFromPredictions(predictions map[string][]evidence.Prediction) map[string]float64 {
	tally := make(map[string]float64)
	for _, preds := range predictions {
		if len(preds) == 0 {
			continue
		}
		top := preds[0]
		if top.Core.IsEmpty() {
			continue
		}
		for _, trait := range top.Core {
			tally[trait] += top.Probability
		}
	}
	return tally
}

// MostContested returns up to n traits by descending score; ties order by
// trait name so output is deterministic.
func MostContested(tally map[string]float64, n int) []TraitContention {
	rows := contentionRows(tally)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Trait < rows[j].Trait
	})
	return truncateContention(rows, n)
}

// LeastContested returns up to n traits by ascending score.
func LeastContested(tally map[string]float64, n int) []TraitContention {
	rows := contentionRows(tally)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score < rows[j].Score
		}
		return rows[i].Trait < rows[j].Trait
	})
	return truncateContention(rows, n)
}

func contentionRows(tally map[string]float64) []TraitContention {
	rows := make([]TraitContention, 0, len(tally))
	for trait, score := range tally {
		rows = append(rows, TraitContention{Trait: trait, Score: score})
	}
	return rows
}

func truncateContention(rows []TraitContention, n int) []TraitContention {
	if n < 0 {
		n = 0
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
