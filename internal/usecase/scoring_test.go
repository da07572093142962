package usecase

import (
	"math"
	"testing"

	"github.com/hogwashthegreat/tft-assistant/internal/domain/evidence"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecordWeightDecaysWithRecency(t *testing.T) {
	t.Parallel()

	prev := math.Inf(1)
	for recency := 0; recency < 8; recency++ {
		w := recordWeight(evidence.Record{Placement: 8, Recency: recency})
		if w >= prev {
			t.Fatalf("weight at recency %d = %v, want strictly below %v", recency, w, prev)
		}
		prev = w
	}
}

func TestRecordWeightStrongFinishBonus(t *testing.T) {
	t.Parallel()

	top := recordWeight(evidence.Record{Placement: 4, Recency: 2})
	bottom := recordWeight(evidence.Record{Placement: 5, Recency: 2})
	if !almostEqual(top, bottom*strongFinishMult) {
		t.Fatalf("placement 4 weight = %v, want %v * %v", top, bottom, strongFinishMult)
	}

	unplaced := recordWeight(evidence.Record{Placement: 0, Recency: 2})
	if !almostEqual(unplaced, bottom) {
		t.Fatalf("missing placement weight = %v, want no bonus (%v)", unplaced, bottom)
	}
}

func TestScoreRecordsRanksRepeatedCoreFirst(t *testing.T) {
	t.Parallel()

	reroll := []evidence.Trait{
		{Name: "Set15_Duelist", Tier: 3, Units: 6},
		{Name: "Set15_Sniper", Tier: 2, Units: 4},
	}
	oneOff := []evidence.Trait{
		{Name: "Set15_Bruiser", Tier: 2, Units: 4},
		{Name: "Set15_Sorcerer", Tier: 2, Units: 4},
	}

	records := []evidence.Record{
		{Traits: reroll, Placement: 3, Recency: 0},
		{Traits: oneOff, Placement: 7, Recency: 1},
		{Traits: reroll, Placement: 5, Recency: 2},
	}

	preds := scoreRecords(records)
	if len(preds) != 2 {
		t.Fatalf("prediction count = %d, want 2", len(preds))
	}
	want := evidence.Core{"Set15_Duelist", "Set15_Sniper"}
	if preds[0].Core.Key() != want.Key() {
		t.Fatalf("top core = %v, want %v", preds[0].Core, want)
	}
	if preds[0].Probability <= preds[1].Probability {
		t.Fatalf("probabilities not descending: %v then %v", preds[0].Probability, preds[1].Probability)
	}
}

func TestScoreRecordsDropsEmptyCores(t *testing.T) {
	t.Parallel()

	records := []evidence.Record{
		{Traits: nil, Placement: 1, Recency: 0},
		{Traits: []evidence.Trait{{Name: "Set15_Inactive", Tier: 0, Units: 3}}, Placement: 1, Recency: 0},
	}
	if preds := scoreRecords(records); preds != nil {
		t.Fatalf("predictions from signal-free records = %v, want nil", preds)
	}
}

func TestRankCoresProbabilitiesSumToOne(t *testing.T) {
	t.Parallel()

	series := []evidence.WeightedCore{
		{Core: evidence.Core{"A", "B"}, Weight: 3},
		{Core: evidence.Core{"C", "D"}, Weight: 2},
		{Core: evidence.Core{"A", "B"}, Weight: 1},
		{Core: evidence.Core{"E", "F"}, Weight: 4},
	}

	preds := rankCores(series)
	sum := 0.0
	for _, p := range preds {
		sum += p.Probability
	}
	if !almostEqual(sum, 1.0) {
		t.Fatalf("probability sum = %v, want 1.0", sum)
	}
	if preds[0].Core.Key() != (evidence.Core{"E", "F"}).Key() {
		t.Fatalf("top core = %v, want (E,F)", preds[0].Core)
	}
	if !almostEqual(preds[1].Probability, 0.4) {
		t.Fatalf("merged (A,B) probability = %v, want 0.4", preds[1].Probability)
	}
}

func TestRankCoresNormalizesAcrossTruncatedTail(t *testing.T) {
	t.Parallel()

	// Seven distinct cores; only five survive, but the denominator still
	// covers all seven so the visible probabilities undercount on purpose.
	series := make([]evidence.WeightedCore, 0, 7)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		series = append(series, evidence.WeightedCore{Core: evidence.Core{name, name + "2"}, Weight: 1})
	}

	preds := rankCores(series)
	if len(preds) != maxPredictions {
		t.Fatalf("prediction count = %d, want %d", len(preds), maxPredictions)
	}
	sum := 0.0
	for _, p := range preds {
		sum += p.Probability
	}
	if !almostEqual(sum, 5.0/7.0) {
		t.Fatalf("probability sum over top %d = %v, want %v", maxPredictions, sum, 5.0/7.0)
	}
}

func TestRankCoresTiesKeepFirstSeenOrder(t *testing.T) {
	t.Parallel()

	series := []evidence.WeightedCore{
		{Core: evidence.Core{"Later", "X"}, Weight: 2},
		{Core: evidence.Core{"First", "X"}, Weight: 1},
		{Core: evidence.Core{"Second", "X"}, Weight: 1},
	}

	preds := rankCores(series)
	if preds[1].Core[0] != "First" || preds[2].Core[0] != "Second" {
		t.Fatalf("tie order = %v, %v; want first-seen order", preds[1].Core, preds[2].Core)
	}
}

func TestRankCoresZeroTotalWeight(t *testing.T) {
	t.Parallel()

	series := []evidence.WeightedCore{
		{Core: evidence.Core{"A", "B"}, Weight: 0},
	}
	preds := rankCores(series)
	if len(preds) != 1 {
		t.Fatalf("prediction count = %d, want 1", len(preds))
	}
	if preds[0].Probability != 0 {
		t.Fatalf("probability = %v, want 0 without dividing by zero", preds[0].Probability)
	}
}
