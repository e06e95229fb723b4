package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/exporter"
	"github.com/tabletalk/tabletalk/internal/router"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/suggest"
)

// sessionHeader carries the conversation identity between requests.
const sessionHeader = "X-Session-ID"

const defaultSampleRows = 10

// APIHandlers contains the HTTP handlers for the REST API.
type APIHandlers struct {
	engine   *chat.Engine
	executor storage.QueryExecutor
	sessions *SessionManager
	export   *exporter.Exporter
	hub      *WebSocketHub
}

// NewAPIHandlers creates an APIHandlers instance. The hub is optional;
// when present, processed turns are broadcast to connected clients.
func NewAPIHandlers(engine *chat.Engine, executor storage.QueryExecutor, sessions *SessionManager, hub *WebSocketHub) *APIHandlers {
	return &APIHandlers{
		engine:   engine,
		executor: executor,
		sessions: sessions,
		export:   &exporter.Exporter{},
		hub:      hub,
	}
}

// HandleQuery handles POST /api/query - process one conversational turn.
// The session is identified by the X-Session-ID header; a missing or
// unknown ID starts a fresh conversation and the assigned ID is echoed
// back in both the header and the response body.
func (h *APIHandlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required", nil)
		return
	}

	id, session := h.sessions.Acquire(r.Header.Get(sessionHeader))
	session.mu.Lock()
	defer session.mu.Unlock()

	resp, err := h.engine.ProcessTurn(r.Context(), session.memory, req.Text)
	if err != nil {
		respondTurnError(w, id, err)
		return
	}
	session.lastResults = resp.Results

	if h.hub != nil {
		h.hub.Broadcast(TurnEvent{
			Type:        "turn",
			SessionID:   id,
			QueryUsed:   resp.QueryUsed,
			ResultShape: resp.Results.Summary(),
		})
	}

	w.Header().Set(sessionHeader, id)
	respondJSON(w, http.StatusOK, QueryResponse{
		SessionID:   id,
		QueryUsed:   resp.QueryUsed,
		Results:     resp.Results,
		Analysis:    resp.Analysis,
		Suggestions: resp.Suggestions,
	})
}

// HandleContext handles GET /api/context - session context introspection.
func (h *APIHandlers) HandleContext(w http.ResponseWriter, r *http.Request) {
	id, session := h.sessions.Acquire(r.Header.Get(sessionHeader))
	session.mu.Lock()
	sctx := session.memory.Context()
	session.mu.Unlock()

	w.Header().Set(sessionHeader, id)
	respondJSON(w, http.StatusOK, ContextResponse{SessionID: id, Context: sctx})
}

// HandleSuggest handles GET /api/suggest - follow-up suggestions for the
// session's current context.
func (h *APIHandlers) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	id, session := h.sessions.Acquire(r.Header.Get(sessionHeader))
	session.mu.Lock()
	sctx := session.memory.Context()
	session.mu.Unlock()

	w.Header().Set(sessionHeader, id)
	respondJSON(w, http.StatusOK, SuggestResponse{
		SessionID:   id,
		Suggestions: suggest.Suggest(sctx),
	})
}

// HandleSchema handles GET /api/schema - datastore schema introspection.
func (h *APIHandlers) HandleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.engine.Schema(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to describe schema", err)
		return
	}
	respondJSON(w, http.StatusOK, SchemaResponse{Tables: schema})
}

// HandleSample handles GET /api/sample/{table} - a bounded preview of one
// table. The table name is validated against the introspected schema, so
// only real tables ever reach the datastore.
func (h *APIHandlers) HandleSample(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if table == "" {
		respondError(w, http.StatusBadRequest, "table name is required", nil)
		return
	}

	schema, err := h.engine.Schema(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to describe schema", err)
		return
	}
	if _, ok := schema[table]; !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown table %q", table), nil)
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), defaultSampleRows)
	if limit < 1 || limit > 100 {
		limit = defaultSampleRows
	}

	results, err := h.executor.Execute(r.Context(), fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to sample table", err)
		return
	}
	respondJSON(w, http.StatusOK, SampleResponse{Table: table, Results: results})
}

// HandleExport handles GET /api/export/{format} - export the session's
// last query results as csv, json or sql.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(r.PathValue("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported export format", err)
		return
	}

	id, session := h.sessions.Acquire(r.Header.Get(sessionHeader))
	session.mu.Lock()
	results := session.lastResults
	session.mu.Unlock()

	if results == nil {
		respondError(w, http.StatusNotFound, "no results available for export", nil)
		return
	}

	w.Header().Set(sessionHeader, id)
	w.Header().Set("Content-Type", exporter.ContentType(format))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=query_results.%s", format))
	if err := h.export.Export(w, results, format); err != nil {
		// Headers are already sent; the truncated body is the best we
		// can do at this point.
		fmt.Printf("failed to write export: %v\n", err)
	}
}

// respondTurnError maps a failed turn to an HTTP status that identifies
// the failing stage: routing failures are upstream problems, execution
// failures are query problems.
func respondTurnError(w http.ResponseWriter, sessionID string, err error) {
	w.Header().Set(sessionHeader, sessionID)

	var turnErr *chat.TurnError
	if !errors.As(err, &turnErr) {
		respondError(w, http.StatusInternalServerError, "turn processing failed", err)
		return
	}

	switch turnErr.Stage {
	case chat.StageRouting:
		var genErr *router.GenerationError
		if errors.As(err, &genErr) {
			respondError(w, http.StatusBadGateway, "query generation failed", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "routing failed", err)
	case chat.StageExecution:
		respondError(w, http.StatusBadRequest, "query execution failed", err)
	default:
		respondError(w, http.StatusInternalServerError, "turn processing failed", err)
	}
}

// Helper functions

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, log but don't try to write another response
		// (headers already sent)
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
