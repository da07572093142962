package usecase

import (
	"math"
	"sort"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
)

const (
	recencyDecay     = 0.85
	strongFinishRank = 4
	strongFinishMult = 1.3
	maxPredictions   = 5
)

// recordWeight is the evidence weight of one match observation: newer games
// count more, and a top-4 finish signals the player trusts the composition.
func recordWeight(rec evidence.Record) float64 {
	weight := math.Pow(recencyDecay, float64(rec.Recency))
	if rec.Placement >= 1 && rec.Placement <= strongFinishRank {
		weight *= strongFinishMult
	}
	return weight
}

// scoreRecords turns match observations into a ranked prediction list by
// weighting each record and handing the resulting core series to rankCores.
// Records whose core is empty carry no signal and are dropped.
func scoreRecords(records []evidence.Record) []evidence.Prediction {
	if len(records) == 0 {
		return nil
	}

	series := make([]evidence.WeightedCore, 0, len(records))
	for _, rec := range records {
		core := evidence.CoreFromTraits(rec.Traits)
		if core.IsEmpty() {
			continue
		}
		series = append(series, evidence.WeightedCore{Core: core, Weight: recordWeight(rec)})
	}

	return rankCores(series)
}

// rankCores merges a (core, weight) series by core identity, normalizes by
// the total weight across every distinct core, and returns the top entries
// in descending weight order. Ties keep first-seen order.
func rankCores(series []evidence.WeightedCore) []evidence.Prediction {
	if len(series) == 0 {
		return nil
	}

	type tallyEntry struct {
		core   evidence.Core
		weight float64
	}

	index := make(map[string]int, len(series))
	tally := make([]tallyEntry, 0, len(series))
	total := 0.0
	for _, item := range series {
		if item.Core.IsEmpty() {
			continue
		}
		key := item.Core.Key()
		pos, seen := index[key]
		if !seen {
			pos = len(tally)
			index[key] = pos
			tally = append(tally, tallyEntry{core: item.Core})
		}
		tally[pos].weight += item.Weight
		total += item.Weight
	}
	if len(tally) == 0 {
		return nil
	}
	if total <= 0 {
		total = 1.0
	}

	sort.SliceStable(tally, func(i, j int) bool {
		return tally[i].weight > tally[j].weight
	})

	limit := len(tally)
	if limit > maxPredictions {
		limit = maxPredictions
	}

	out := make([]evidence.Prediction, 0, limit)
	for _, item := range tally[:limit] {
		out = append(out, evidence.Prediction{
			Core:        item.core,
			Probability: item.weight / total,
		})
	}
	return out
}
