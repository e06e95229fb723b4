// Package sqlite implements the storage.QueryExecutor interface on a
// SQLite database file via the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/pkg/types"
)

// Executor runs queries against a SQLite database.
type Executor struct {
	db *sql.DB
}

// NewExecutor opens the SQLite database at dsn.
// SQLite supports only one concurrent writer; a single open connection
// serialises access and avoids SQLITE_BUSY under concurrent sessions.
func NewExecutor(dsn string) (*Executor, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}
	return &Executor{db: db}, nil
}

// NewExecutorFromDB wraps an already open database handle. Used by tests
// and the setup command.
func NewExecutorFromDB(db *sql.DB) *Executor {
	return &Executor{db: db}
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

// DescribeSchema lists user tables from sqlite_master and their columns
// via PRAGMA table_info, preserving declaration order.
func (e *Executor) DescribeSchema(ctx context.Context) (types.Schema, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate tables: %w", err)
	}

	schema := make(types.Schema, len(tables))
	for _, table := range tables {
		cols, err := e.describeTable(ctx, table)
		if err != nil {
			return nil, err
		}
		schema[table] = cols
	}
	return schema, nil
}

func (e *Executor) describeTable(ctx context.Context, table string) ([]types.ColumnDescriptor, error) {
	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to describe table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []types.ColumnDescriptor
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan column info for %s: %w", table, err)
		}
		cols = append(cols, types.ColumnDescriptor{
			Name:         name,
			DeclaredType: ctype,
			Nullable:     notNull == 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate columns for %s: %w", table, err)
	}
	return cols, nil
}

// Dialect identifies SQLite. SQLite has no inline error-capture construct,
// so WrapRecoverable stays nil.
func (e *Executor) Dialect() storage.Dialect {
	return storage.Dialect{Name: "SQLite"}
}

// Close releases the database handle.
func (e *Executor) Close() error {
	return e.db.Close()
}

// Compile-time assertion.
var _ storage.QueryExecutor = (*Executor)(nil)
