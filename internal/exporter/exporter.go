// Package exporter renders result sets in downloadable formats: CSV with
// a commented metadata header, JSON with a metadata envelope, and SQL
// INSERT statements.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/pkg/types"
)

// Format identifies a supported export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
)

// ErrUnsupportedFormat is returned for format names outside csv/json/sql.
type ErrUnsupportedFormat struct {
	Format string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("exporter: unsupported format %q (use csv, json or sql)", e.Format)
}

// Exporter writes result sets to an io.Writer. Now is injectable so
// tests get stable metadata timestamps; nil means time.Now.
type Exporter struct {
	Now func() time.Time
}

// ContentType returns the MIME type for a format, defaulting to
// text/plain for SQL.
func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain"
	}
}

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "sql":
		return FormatSQL, nil
	default:
		return "", &ErrUnsupportedFormat{Format: name}
	}
}

// Export renders rs in the given format.
func (e *Exporter) Export(w io.Writer, rs *types.ResultSet, format Format) error {
	switch format {
	case FormatCSV:
		return e.exportCSV(w, rs)
	case FormatJSON:
		return e.exportJSON(w, rs)
	case FormatSQL:
		return e.exportSQL(w, rs)
	default:
		return &ErrUnsupportedFormat{Format: string(format)}
	}
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func columnNames(rs *types.ResultSet) []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

// exportCSV writes a commented metadata header followed by the records.
func (e *Exporter) exportCSV(w io.Writer, rs *types.ResultSet) error {
	names := columnNames(rs)
	header := fmt.Sprintf("# Generated: %s\n# Total Rows: %d\n# Columns: %s\n",
		e.now().Format(time.RFC3339), len(rs.Rows), strings.Join(names, ", "))
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("exporter: failed to write csv header: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("exporter: failed to write csv columns: %w", err)
	}
	for _, row := range rs.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("exporter: failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("exporter: failed to flush csv: %w", err)
	}
	return nil
}

// jsonEnvelope matches the wire shape consumers expect: metadata plus
// one object per row keyed by column name.
type jsonEnvelope struct {
	Metadata struct {
		Generated string   `json:"generated"`
		TotalRows int      `json:"total_rows"`
		Columns   []string `json:"columns"`
	} `json:"metadata"`
	Data []map[string]interface{} `json:"data"`
}

func (e *Exporter) exportJSON(w io.Writer, rs *types.ResultSet) error {
	names := columnNames(rs)

	var env jsonEnvelope
	env.Metadata.Generated = e.now().Format(time.RFC3339)
	env.Metadata.TotalRows = len(rs.Rows)
	env.Metadata.Columns = names
	env.Data = make([]map[string]interface{}, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		record := make(map[string]interface{}, len(names))
		for i, name := range names {
			record[name] = row[i]
		}
		env.Data = append(env.Data, record)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("exporter: failed to encode json: %w", err)
	}
	return nil
}

func (e *Exporter) exportSQL(w io.Writer, rs *types.ResultSet) error {
	names := columnNames(rs)
	var b strings.Builder
	fmt.Fprintf(&b, "-- Generated: %s\n", e.now().Format(time.RFC3339))
	fmt.Fprintf(&b, "-- Total Rows: %d\n", len(rs.Rows))
	fmt.Fprintf(&b, "-- Columns: %s\n\n", strings.Join(names, ", "))

	if len(rs.Rows) > 0 {
		fmt.Fprintf(&b, "INSERT INTO query_results (%s) VALUES\n", strings.Join(names, ", "))
		for i, row := range rs.Rows {
			values := make([]string, len(row))
			for j, v := range row {
				values[j] = sqlLiteral(v)
			}
			sep := ",\n"
			if i == len(rs.Rows)-1 {
				sep = ";\n"
			}
			fmt.Fprintf(&b, "(%s)%s", strings.Join(values, ", "), sep)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("exporter: failed to write sql: %w", err)
	}
	return nil
}

func sqlLiteral(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return fmt.Sprintf("%v", n)
	case int, int64:
		return fmt.Sprintf("%d", n)
	case bool:
		if n {
			return "1"
		}
		return "0"
	default:
		s := strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''")
		return "'" + s + "'"
	}
}
