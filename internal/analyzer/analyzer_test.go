package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletalk/tabletalk/pkg/types"
)

func numericSet(name string, values ...interface{}) *types.ResultSet {
	rs := &types.ResultSet{
		Columns: []types.Column{{Name: name, Type: types.SemanticNumeric}},
	}
	for _, v := range values {
		rs.Rows = append(rs.Rows, []interface{}{v})
	}
	return rs
}

func TestAnalyze_EmptyResultShortCircuits(t *testing.T) {
	rs := &types.ResultSet{
		Columns: []types.Column{{Name: "salary", Type: types.SemanticNumeric}},
	}

	report := Analyze(rs)

	require.Len(t, report.Narrative, 1)
	assert.Equal(t, "No data found for this query.", report.Narrative[0])
	assert.Empty(t, report.SummaryStats)
	assert.Empty(t, report.CategoricalTops)
	assert.Empty(t, report.Outliers)
	assert.Empty(t, report.Correlations)
}

func TestAnalyze_SummaryStats(t *testing.T) {
	rs := numericSet("salary", 10.0, 20.0, 30.0, nil)

	report := Analyze(rs)

	stats, ok := report.SummaryStats["salary"]
	require.True(t, ok)
	assert.InDelta(t, 20.0, stats.Mean, 1e-9)
	assert.Equal(t, 10.0, stats.Min)
	assert.Equal(t, 30.0, stats.Max)
	assert.Equal(t, 1, stats.Missing)
}

func TestAnalyze_OutlierDetectionIQR(t *testing.T) {
	report := Analyze(numericSet("v", 1.0, 2.0, 3.0, 4.0, 5.0, 100.0))
	assert.Equal(t, 1, report.Outliers["v"], "100 lies outside the IQR fences")

	report = Analyze(numericSet("v", 1.0, 2.0, 3.0, 4.0, 5.0))
	assert.Equal(t, 0, report.Outliers["v"])
}

func TestAnalyze_NaNAndInfExcludedNotZeroed(t *testing.T) {
	rs := numericSet("v", 10.0, math.NaN(), math.Inf(1), 20.0)

	report := Analyze(rs)

	stats := report.SummaryStats["v"]
	assert.InDelta(t, 15.0, stats.Mean, 1e-9, "NaN/Inf must not drag the mean toward zero")
	assert.Equal(t, 2, stats.Missing)
}

func TestAnalyze_AllUnusableColumnDegradesToNarrative(t *testing.T) {
	rs := numericSet("v", math.NaN(), nil)

	report := Analyze(rs)

	_, ok := report.SummaryStats["v"]
	assert.False(t, ok)
	assert.Contains(t, report.Narrative, `Could not analyze column "v": no usable numeric values.`)
}

func TestAnalyze_CategoricalTopValues(t *testing.T) {
	rs := &types.ResultSet{
		Columns: []types.Column{{Name: "department", Type: types.SemanticCategorical}},
		Rows: [][]interface{}{
			{"Finance"}, {"IT"}, {"Finance"}, {"HR"}, {"Finance"}, {"IT"},
		},
	}

	report := Analyze(rs)

	summary, ok := report.CategoricalTops["department"]
	require.True(t, ok)
	assert.Equal(t, 3, summary.UniqueCount)
	require.NotEmpty(t, summary.Top)
	assert.Equal(t, types.ValueCount{Value: "Finance", Count: 3}, summary.Top[0])
	assert.Equal(t, types.ValueCount{Value: "IT", Count: 2}, summary.Top[1])
}

func TestAnalyze_CorrelationFilter(t *testing.T) {
	strong := &types.ResultSet{
		Columns: []types.Column{
			{Name: "a", Type: types.SemanticNumeric},
			{Name: "b", Type: types.SemanticNumeric},
		},
		Rows: [][]interface{}{
			{1.0, 1.1}, {2.0, 2.3}, {3.0, 2.8}, {4.0, 4.2}, {5.0, 4.9},
		},
	}
	report := Analyze(strong)
	require.Len(t, report.Correlations, 1)
	assert.Equal(t, "a", report.Correlations[0].ColumnA)
	assert.Equal(t, "b", report.Correlations[0].ColumnB)
	assert.Greater(t, report.Correlations[0].Coefficient, 0.5)

	weak := &types.ResultSet{
		Columns: strong.Columns,
		Rows: [][]interface{}{
			{1.0, 4.0}, {2.0, 1.0}, {3.0, 5.0}, {4.0, 2.0}, {5.0, 3.0},
		},
	}
	report = Analyze(weak)
	assert.Empty(t, report.Correlations)
}

func TestAnalyze_NarrativeRankedStatements(t *testing.T) {
	rs := &types.ResultSet{
		Columns: []types.Column{
			{Name: "department", Type: types.SemanticCategorical},
			{Name: "salary", Type: types.SemanticNumeric},
		},
		Rows: [][]interface{}{
			{"Finance", 90000.0},
			{"Finance", 80000.0},
			{"IT", 60000.0},
			{"IT", 65000.0},
			{"IT", 70000.0},
		},
	}

	report := Analyze(rs)

	assert.Contains(t, report.Narrative, "Finance has the highest average salary (85000.00).")
	assert.Contains(t, report.Narrative, "IT is the most common department (3 of 5 rows).")
}

func TestAnalyze_NoFabricatedStatements(t *testing.T) {
	rs := numericSet("salary", 10.0, 20.0)

	report := Analyze(rs)

	for _, line := range report.Narrative {
		assert.NotContains(t, line, "most common", "no categorical column present")
		assert.NotContains(t, line, "highest average", "no group column present")
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 100}
	assert.InDelta(t, 2.25, percentile(sorted, 25), 1e-9)
	assert.InDelta(t, 4.75, percentile(sorted, 75), 1e-9)
}

func TestSkewnessAndKurtosis(t *testing.T) {
	symmetric := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 0.0, skewness(symmetric), 1e-9)

	rightSkewed := []float64{1, 1, 1, 1, 10}
	assert.Greater(t, skewness(rightSkewed), 1.0)

	constant := []float64{5, 5, 5}
	assert.Equal(t, 0.0, skewness(constant))
	assert.Equal(t, 0.0, kurtosis(constant))
}
