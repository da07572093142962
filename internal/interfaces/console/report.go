// Package console renders a scouting report as plain text for a terminal.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/hogwashthegreat/tft-assistant/internal/usecase"
)

const topCoresShown = 3

// Render writes the full report: likely cores per player in lobby order,
// then the trait contention summary.
func Render(w io.Writer, report usecase.LobbyReport) error {
	var b strings.Builder

	b.WriteString("=== Likely cores per player (top 3) ===\n")
	for _, entry := range report.Players {
		name := entry.Player.DisplayName()
		if len(entry.Predictions) == 0 {
			fmt.Fprintf(&b, "- %s: (not enough data)\n", name)
			continue
		}
		shown := entry.Predictions
		if len(shown) > topCoresShown {
			shown = shown[:topCoresShown]
		}
		parts := make([]string, 0, len(shown))
		for _, pred := range shown {
			parts = append(parts, fmt.Sprintf("%s (%.0f%%)", FormatCore(pred.Core), pred.Probability*100))
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, strings.Join(parts, ",  "))
	}

	b.WriteString("\n=== Trait contestedness (lower is better / more open) ===\n")
	if !report.HasSignal() || len(report.MostContested) == 0 {
		b.WriteString("(no signal)\n")
	} else {
		b.WriteString("Most contested:\n")
		for _, row := range report.MostContested {
			fmt.Fprintf(&b, "  - %s: %.2f players-likely\n", FormatTrait(row.Trait), row.Score)
		}
		b.WriteString("Least contested:\n")
		for _, row := range report.LeastContested {
			fmt.Fprintf(&b, "  - %s: %.2f players-likely\n", FormatTrait(row.Trait), row.Score)
		}
		b.WriteString("\nTip: if your target core overlaps the most contested traits, pivot to adjacent traits with lower pressure.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatTrait drops the set prefix the game data attaches to trait names,
// so "Set15_Duelist" prints as "15_Duelist".
func FormatTrait(trait string) string {
	trait = strings.ReplaceAll(trait, "Set", "")
	return strings.ReplaceAll(trait, "set", "")
}

// FormatCore joins the core traits for display.
func FormatCore(core []string) string {
	parts := make([]string, 0, len(core))
	for _, trait := range core {
		parts = append(parts, FormatTrait(trait))
	}
	return strings.Join(parts, " + ")
}
