package storage

import (
	"database/sql"
	"regexp"
	"time"

	"github.com/tabletalk/tabletalk/pkg/types"
)

// datePattern matches the common ISO-ish date layouts drivers hand back
// as text (2021-03-01, 2021/03/01, optionally with a time suffix).
var datePattern = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}([ T].*)?$`)

// ScanRows converts sql.Rows into a ResultSet, inferring a semantic type
// per column from the values actually seen. Inference is value-driven
// rather than declared-type-driven because both backends happily return
// numerics through text columns and vice versa.
func ScanRows(rows *sql.Rows) (*types.ResultSet, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &types.ResultSet{Columns: make([]types.Column, len(names))}
	for i, name := range names {
		rs.Columns[i] = types.Column{Name: name, Type: types.SemanticUnknown}
	}

	for rows.Next() {
		raw := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(names))
		for i, v := range raw {
			row[i] = normalizeValue(v)
			rs.Columns[i].Type = refineType(rs.Columns[i].Type, row[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// normalizeValue maps driver-specific value types onto the small set the
// analyzer understands: float64, string, time.Time, or nil.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(val)
	case float64:
		return val
	case bool:
		if val {
			return float64(1)
		}
		return float64(0)
	case []byte:
		return string(val)
	case time.Time:
		return val
	default:
		return val
	}
}

// refineType folds one observed value into a column's running semantic
// type. A column stays numeric/temporal only while every non-null value
// agrees; any conflicting value demotes it to categorical.
func refineType(current types.SemanticType, v interface{}) types.SemanticType {
	if v == nil {
		return current
	}

	var observed types.SemanticType
	switch val := v.(type) {
	case float64:
		observed = types.SemanticNumeric
	case time.Time:
		observed = types.SemanticTemporal
	case string:
		if datePattern.MatchString(val) {
			observed = types.SemanticTemporal
		} else {
			observed = types.SemanticCategorical
		}
	default:
		observed = types.SemanticCategorical
	}

	if current == types.SemanticUnknown || current == observed {
		return observed
	}
	return types.SemanticCategorical
}
