package analyzer

import (
	"fmt"

	"github.com/tabletalk/tabletalk/pkg/types"
)

// buildNarrative derives at most one ranked statement per dimension
// actually present in the result set. Statements are never fabricated
// for absent columns; degraded-column notes come last.
func buildNarrative(rs *types.ResultSet, report *types.AnalysisReport, degraded []string) []string {
	var lines []string

	lines = append(lines, fmt.Sprintf("Result contains %s.", rs.Summary()))

	groupCol := firstColumnOfType(rs, types.SemanticCategorical)

	// Highest-average-by-group, one statement per numeric column.
	if groupCol >= 0 {
		for i, col := range rs.Columns {
			if col.Type != types.SemanticNumeric {
				continue
			}
			if group, avg, ok := highestAverageGroup(rs, groupCol, i); ok {
				lines = append(lines, fmt.Sprintf("%s has the highest average %s (%.2f).",
					group, col.Name, avg))
			}
		}
	}

	// Most-common-category per categorical column.
	for _, col := range rs.Columns {
		summary, ok := report.CategoricalTops[col.Name]
		if !ok || len(summary.Top) == 0 {
			continue
		}
		top := summary.Top[0]
		lines = append(lines, fmt.Sprintf("%s is the most common %s (%d of %d rows).",
			top.Value, col.Name, top.Count, len(rs.Rows)))
	}

	for _, col := range rs.Columns {
		if count := report.Outliers[col.Name]; count > 0 {
			lines = append(lines, fmt.Sprintf("%d outlier value(s) detected in %s.", count, col.Name))
		}
	}

	for _, c := range report.Correlations {
		lines = append(lines, fmt.Sprintf("Strong correlation between %s and %s (r=%.2f).",
			c.ColumnA, c.ColumnB, c.Coefficient))
	}

	lines = append(lines, degraded...)
	return lines
}

func firstColumnOfType(rs *types.ResultSet, t types.SemanticType) int {
	for i, c := range rs.Columns {
		if c.Type == t {
			return i
		}
	}
	return -1
}

// highestAverageGroup computes the group (by the categorical column)
// with the highest mean of the numeric column. Returns false when no
// group has a usable value.
func highestAverageGroup(rs *types.ResultSet, groupCol, valueCol int) (string, float64, bool) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, r := range rs.Rows {
		g := r[groupCol]
		v, ok := asFloat(r[valueCol])
		if g == nil || !ok || !usable(v) {
			continue
		}
		key := fmt.Sprintf("%v", g)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		sums[key] += v
		counts[key]++
	}
	if len(order) == 0 {
		return "", 0, false
	}

	best := order[0]
	bestAvg := sums[best] / float64(counts[best])
	for _, key := range order[1:] {
		avg := sums[key] / float64(counts[key])
		if avg > bestAvg {
			best, bestAvg = key, avg
		}
	}
	return best, bestAvg, true
}
