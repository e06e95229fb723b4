package exporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletalk/tabletalk/pkg/types"
)

func fixedExporter() *Exporter {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Exporter{Now: func() time.Time { return ts }}
}

func sampleResults() *types.ResultSet {
	return &types.ResultSet{
		Columns: []types.Column{
			{Name: "name", Type: types.SemanticCategorical},
			{Name: "salary", Type: types.SemanticNumeric},
		},
		Rows: [][]interface{}{
			{"Alice", 90000.0},
			{"O'Brien", nil},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	var unsupported *ErrUnsupportedFormat
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "xlsx", unsupported.Format)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedExporter().Export(&buf, sampleResults(), FormatCSV))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Generated: 2025-06-01T12:00:00Z\n"))
	assert.Contains(t, out, "# Total Rows: 2\n")
	assert.Contains(t, out, "# Columns: name, salary\n")
	assert.Contains(t, out, "name,salary\n")
	assert.Contains(t, out, "Alice,90000\n")
	assert.Contains(t, out, "O'Brien,\n")
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedExporter().Export(&buf, sampleResults(), FormatJSON))

	var env struct {
		Metadata struct {
			Generated string   `json:"generated"`
			TotalRows int      `json:"total_rows"`
			Columns   []string `json:"columns"`
		} `json:"metadata"`
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))

	assert.Equal(t, 2, env.Metadata.TotalRows)
	assert.Equal(t, []string{"name", "salary"}, env.Metadata.Columns)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "Alice", env.Data[0]["name"])
	assert.Nil(t, env.Data[1]["salary"])
}

func TestExportSQL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedExporter().Export(&buf, sampleResults(), FormatSQL))

	out := buf.String()
	assert.Contains(t, out, "-- Total Rows: 2")
	assert.Contains(t, out, "INSERT INTO query_results (name, salary) VALUES")
	assert.Contains(t, out, "('Alice', 90000),")
	assert.Contains(t, out, "('O''Brien', NULL);", "quotes escaped, nil becomes NULL, last row terminated")
}

func TestExportSQL_EmptyResultSkipsInsert(t *testing.T) {
	var buf bytes.Buffer
	rs := &types.ResultSet{Columns: sampleResults().Columns}
	require.NoError(t, fixedExporter().Export(&buf, rs, FormatSQL))

	assert.NotContains(t, buf.String(), "INSERT INTO")
	assert.Contains(t, buf.String(), "-- Total Rows: 0")
}

func TestExport_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := fixedExporter().Export(&buf, sampleResults(), Format("yaml"))
	var unsupported *ErrUnsupportedFormat
	assert.ErrorAs(t, err, &unsupported)
}
