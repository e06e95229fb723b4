// Package handlers provides the HTTP handlers and middleware for the
// TableTalk web API.
package handlers

import (
	"github.com/tabletalk/tabletalk/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	Text string `json:"text"`
}

// QueryResponse is the response for POST /api/query: the processed turn
// plus the session ID the client must send on follow-ups.
type QueryResponse struct {
	SessionID   string                `json:"session_id"`
	QueryUsed   string                `json:"query_used"`
	Results     *types.ResultSet      `json:"results"`
	Analysis    *types.AnalysisReport `json:"analysis"`
	Suggestions []string              `json:"suggestions"`
}

// ContextResponse is the response for GET /api/context.
type ContextResponse struct {
	SessionID string               `json:"session_id"`
	Context   types.SessionContext `json:"context"`
}

// SuggestResponse is the response for GET /api/suggest.
type SuggestResponse struct {
	SessionID   string   `json:"session_id"`
	Suggestions []string `json:"suggestions"`
}

// SchemaResponse is the response for GET /api/schema.
type SchemaResponse struct {
	Tables types.Schema `json:"tables"`
}

// SampleResponse is the response for GET /api/sample/{table}.
type SampleResponse struct {
	Table   string           `json:"table"`
	Results *types.ResultSet `json:"results"`
}
