package render

import (
	"fmt"
	"math"
	"strings"

	"qdeutsch/internal/simulator"
)

// DefaultBarWidth is the bar length of the most frequent outcome.
const DefaultBarWidth = 40

// Histogram draws one bar per observed outcome, keys in ascending order,
// scaled so the most frequent outcome spans width cells.
func Histogram(counts simulator.Counts, width int, th Theme) string {
	total := counts.Total()
	if total == 0 {
		return apply(th.Dim, "(no counts)") + "\n"
	}
	if width <= 0 {
		width = DefaultBarWidth
	}
	_, peak := counts.MostFrequent()
	keyW := 0
	for _, k := range counts.Keys() {
		keyW = max(keyW, len(k))
	}
	countW := len(fmt.Sprint(peak))

	var sb strings.Builder
	for _, outcome := range counts.Keys() {
		n := counts[outcome]
		bar := int(math.Round(float64(n) / float64(peak) * float64(width)))
		if n > 0 && bar == 0 {
			bar = 1
		}
		pct := 100 * float64(n) / float64(total)

		fmt.Fprintf(&sb, "%*s │%s%s %6.2f%% %*d\n",
			keyW, outcome,
			apply(th.Bar, strings.Repeat("█", bar)),
			strings.Repeat(" ", width-bar),
			pct,
			countW, n)
	}
	fmt.Fprintf(&sb, "%s\n", apply(th.Dim, fmt.Sprintf("%*s   %d shots", keyW, "", total)))
	return sb.String()
}

// FormatCounts prints counts as a dictionary with sorted keys, the way the
// runner reports each example.
func FormatCounts(counts simulator.Counts) string {
	parts := make([]string, 0, len(counts))
	for _, k := range counts.Keys() {
		parts = append(parts, fmt.Sprintf("'%s': %d", k, counts[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
