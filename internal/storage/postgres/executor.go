// Package postgres implements the storage.QueryExecutor interface on a
// PostgreSQL database via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/pkg/types"
)

// Executor runs queries against a PostgreSQL database.
type Executor struct {
	db *sql.DB
}

// NewExecutor opens a PostgreSQL connection pool for the given DSN.
func NewExecutor(dsn string) (*Executor, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}
	return &Executor{db: db}, nil
}

// Execute runs the query and returns its rows as a ResultSet.
func (e *Executor) Execute(ctx context.Context, query string) (*types.ResultSet, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &storage.ExecutionError{Query: query, Message: err.Error(), Err: err}
	}
	defer func() { _ = rows.Close() }()

	rs, err := storage.ScanRows(rows)
	if err != nil {
		return nil, &storage.ExecutionError{Query: query, Message: err.Error(), Err: err}
	}
	return rs, nil
}

// DescribeSchema reads table and column metadata from information_schema,
// preserving ordinal column order.
func (e *Executor) DescribeSchema(ctx context.Context) (types.Schema, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to read schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	schema := make(types.Schema)
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan schema row: %w", err)
		}
		schema[table] = append(schema[table], types.ColumnDescriptor{
			Name:         column,
			DeclaredType: dataType,
			Nullable:     nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate schema rows: %w", err)
	}
	return schema, nil
}

// Dialect identifies PostgreSQL. Errors surface through the driver, not
// inline, so WrapRecoverable stays nil.
func (e *Executor) Dialect() storage.Dialect {
	return storage.Dialect{Name: "PostgreSQL"}
}

// Close releases the connection pool.
func (e *Executor) Close() error {
	return e.db.Close()
}

// Compile-time assertion.
var _ storage.QueryExecutor = (*Executor)(nil)
