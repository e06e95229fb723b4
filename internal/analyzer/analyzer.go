// Package analyzer turns executed result sets into structured analysis
// reports: per-column summary statistics, categorical frequency tables,
// IQR outlier counts, strong pairwise correlations and a short narrative.
// Analysis never fails hard; columns that cannot be analyzed degrade to
// a narrative line so every turn still yields a report.
package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/tabletalk/tabletalk/pkg/types"
)

const (
	correlationThreshold = 0.5
	topValueLimit        = 5
)

// numericColumn is the cleaned numeric material for one column: the
// usable values plus a parallel row index so correlation can align
// samples across columns.
type numericColumn struct {
	name    string
	values  []float64
	rows    []int
	missing int
}

// Analyze produces an AnalysisReport for the given result set. An empty
// result set short-circuits to a single "no data" narrative line with no
// statistics computed.
func Analyze(rs *types.ResultSet) *types.AnalysisReport {
	report := &types.AnalysisReport{
		SummaryStats:    map[string]types.ColumnStats{},
		CategoricalTops: map[string]types.CategoricalSummary{},
		Outliers:        map[string]int{},
	}

	if rs.Empty() {
		report.Narrative = []string{"No data found for this query."}
		return report
	}

	var numerics []numericColumn
	var degraded []string

	for i, col := range rs.Columns {
		switch col.Type {
		case types.SemanticNumeric:
			nc := extractNumeric(rs, i)
			if len(nc.values) == 0 {
				degraded = append(degraded, fmt.Sprintf("Could not analyze column %q: no usable numeric values.", col.Name))
				continue
			}
			lo, hi := minMax(nc.values)
			report.SummaryStats[col.Name] = types.ColumnStats{
				Mean:     mean(nc.values),
				Min:      lo,
				Max:      hi,
				Missing:  nc.missing,
				Skewness: skewness(nc.values),
				Kurtosis: kurtosis(nc.values),
			}
			report.Outliers[col.Name] = countOutliers(nc.values)
			numerics = append(numerics, nc)
		case types.SemanticCategorical, types.SemanticTemporal:
			report.CategoricalTops[col.Name] = summarizeCategorical(rs, i)
		}
	}

	report.Correlations = correlate(numerics)
	report.Narrative = buildNarrative(rs, report, degraded)
	return report
}

func extractNumeric(rs *types.ResultSet, col int) numericColumn {
	nc := numericColumn{name: rs.Columns[col].Name}
	for row, r := range rs.Rows {
		v, ok := asFloat(r[col])
		if !ok || !usable(v) {
			nc.missing++
			continue
		}
		nc.values = append(nc.values, v)
		nc.rows = append(nc.rows, row)
	}
	return nc
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func summarizeCategorical(rs *types.ResultSet, col int) types.CategoricalSummary {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, r := range rs.Rows {
		v := r[col]
		if v == nil {
			continue
		}
		key := fmt.Sprintf("%v", v)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	// Most frequent first; ties keep first-appearance order so the
	// summary is deterministic.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	top := make([]types.ValueCount, 0, topValueLimit)
	for _, key := range order {
		if len(top) == topValueLimit {
			break
		}
		top = append(top, types.ValueCount{Value: key, Count: counts[key]})
	}
	return types.CategoricalSummary{UniqueCount: len(counts), Top: top}
}

// correlate computes Pearson coefficients for every unordered pair of
// numeric columns over the rows where both values are present, keeping
// only pairs above the strength threshold.
func correlate(numerics []numericColumn) []types.Correlation {
	var out []types.Correlation
	for i := 0; i < len(numerics); i++ {
		for j := i + 1; j < len(numerics); j++ {
			xs, ys := alignSamples(numerics[i], numerics[j])
			r := pearson(xs, ys)
			if math.Abs(r) > correlationThreshold {
				out = append(out, types.Correlation{
					ColumnA:     numerics[i].name,
					ColumnB:     numerics[j].name,
					Coefficient: r,
				})
			}
		}
	}
	return out
}

// alignSamples pairs up the values of two columns by original row index,
// dropping rows where either side is missing.
func alignSamples(a, b numericColumn) ([]float64, []float64) {
	inB := make(map[int]float64, len(b.rows))
	for i, row := range b.rows {
		inB[row] = b.values[i]
	}
	var xs, ys []float64
	for i, row := range a.rows {
		if v, ok := inB[row]; ok {
			xs = append(xs, a.values[i])
			ys = append(ys, v)
		}
	}
	return xs, ys
}
