// Package storage defines the query-execution interfaces for the TableTalk
// datastore collaborators. Backends (SQLite, Postgres) implement QueryExecutor;
// the conversational core never speaks SQL-driver APIs directly.
package storage

import (
	"context"
	"fmt"

	"github.com/tabletalk/tabletalk/pkg/types"
)

// QueryExecutor runs queries against a tabular datastore and introspects
// its schema.
type QueryExecutor interface {
	// Execute runs the given query and returns its result set.
	// Failures (malformed query, connectivity loss) are reported as
	// *ExecutionError. A zero-row result is a valid ResultSet, not an error.
	Execute(ctx context.Context, query string) (*types.ResultSet, error)

	// DescribeSchema returns the datastore schema: table names mapped to
	// ordered column descriptors. Used to enrich generative prompts;
	// callers treat failure as non-fatal and may substitute an empty schema.
	DescribeSchema(ctx context.Context) (types.Schema, error)

	// Dialect identifies the backend's SQL dialect for prompt building
	// and query post-processing.
	Dialect() Dialect

	// Close releases the underlying connection resources.
	Close() error
}

// Dialect captures the backend-specific knobs the router's post-processing
// needs: a display name for prompts, and the optional recoverable-error
// envelope for dialects with inline error capture.
type Dialect struct {
	// Name is the human-readable dialect name embedded in prompts,
	// e.g. "SQLite" or "PostgreSQL".
	Name string

	// WrapRecoverable wraps a query in the dialect's inline error-capture
	// construct. Nil when the dialect has no such construct (both SQLite
	// and PostgreSQL surface errors through the driver instead).
	WrapRecoverable func(query string) string
}

// ExecutionError reports a failed query execution with the attempted
// query attached for diagnosis.
type ExecutionError struct {
	Query   string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("storage: query execution failed: %s (query: %s)", e.Message, e.Query)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
