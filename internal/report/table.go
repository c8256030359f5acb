// Package report renders crawl results for the terminal: the discovered
// object table, per-level statistics, and the migration plan.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/depcrawl/internal/types"
)

// tierStyle maps a complexity tier to its terminal color.
func tierStyle(tier types.Tier) color.Color {
	switch tier {
	case types.TierHigh:
		return color.Red
	case types.TierMedium:
		return color.Yellow
	case types.TierLow:
		return color.Green
	default:
		return color.Normal
	}
}

type cell struct {
	text  string
	style color.Color
}

func plainCell(text string) cell {
	return cell{text: text, style: color.Normal}
}

// renderTable lays out rows under a header, aligning columns on display
// width so wide runes in object names don't skew the layout. Styling is
// applied after padding; colored is false when output is not a TTY.
func renderTable(header []string, rows [][]cell, colored bool) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c.text); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []cell) {
		for i, c := range cells {
			padded := c.text + strings.Repeat(" ", widths[i]-runewidth.StringWidth(c.text))
			if colored && c.style != color.Normal {
				padded = c.style.Render(padded)
			}
			b.WriteString(padded)
			if i < len(cells)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}

	headerCells := make([]cell, len(header))
	for i, h := range header {
		headerCells[i] = plainCell(h)
	}
	writeRow(headerCells)

	total := 0
	for _, w := range widths {
		total += w
	}
	b.WriteString(strings.Repeat("-", total+2*(len(widths)-1)))
	b.WriteString("\n")

	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// RenderObjects renders the discovered object table sorted by tier
// (high first), then score, then name.
func RenderObjects(records []types.DiscoveredObjectRecord, colored bool) string {
	if len(records) == 0 {
		return "No objects discovered.\n"
	}

	sorted := append([]types.DiscoveredObjectRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		if a, b := tierRank(sorted[i].Score.Tier), tierRank(sorted[j].Score.Tier); a != b {
			return a > b
		}
		if sorted[i].Score.Value != sorted[j].Score.Value {
			return sorted[i].Score.Value > sorted[j].Score.Value
		}
		return sorted[i].Object.Ref.Key() < sorted[j].Object.Ref.Key()
	})

	rows := make([][]cell, 0, len(sorted))
	for _, rec := range sorted {
		ref := rec.Object.Ref
		rows = append(rows, []cell{
			plainCell(ref.Database + "." + ref.Schema + "." + ref.Name),
			plainCell(string(ref.Kind)),
			plainCell(fmt.Sprintf("%d", rec.Level)),
			{text: string(rec.Score.Tier), style: tierStyle(rec.Score.Tier)},
			plainCell(fmt.Sprintf("%d", rec.Score.Value)),
			plainCell(strings.Join(rec.Score.MatchedPatterns, ", ")),
		})
	}

	return renderTable([]string{"OBJECT", "KIND", "LEVEL", "TIER", "SCORE", "PATTERNS"}, rows, colored)
}

func tierRank(tier types.Tier) int {
	switch tier {
	case types.TierHigh:
		return 3
	case types.TierMedium:
		return 2
	case types.TierLow:
		return 1
	default:
		return 0
	}
}

// RenderLevelStats renders one line per completed traversal level.
func RenderLevelStats(stats []types.LevelStats) string {
	if len(stats) == 0 {
		return ""
	}

	rows := make([][]cell, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []cell{
			plainCell(fmt.Sprintf("%d", s.Level)),
			plainCell(fmt.Sprintf("%d", s.FrontierSize)),
			plainCell(fmt.Sprintf("%d", s.Discovered)),
			plainCell(fmt.Sprintf("%d", s.FailedPartitions)),
			plainCell(s.Duration.Round(time.Millisecond).String()),
		})
	}

	return renderTable([]string{"LEVEL", "FRONTIER", "DISCOVERED", "FAILED", "DURATION"}, rows, false)
}

// RenderTierSummary renders the object count per tier, colored like the
// main table.
func RenderTierSummary(records []types.DiscoveredObjectRecord, colored bool) string {
	counts := map[types.Tier]int{}
	for _, rec := range records {
		counts[rec.Score.Tier]++
	}

	var b strings.Builder
	for _, tier := range []types.Tier{types.TierHigh, types.TierMedium, types.TierLow} {
		label := fmt.Sprintf("%-6s %d", tier, counts[tier])
		if colored {
			label = tierStyle(tier).Render(label)
		}
		b.WriteString("  " + label + "\n")
	}
	return b.String()
}
