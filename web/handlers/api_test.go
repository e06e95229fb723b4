package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/intent"
	"github.com/tabletalk/tabletalk/internal/router"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/pkg/types"
	"github.com/tabletalk/tabletalk/web/handlers"
)

// fakeExecutor serves canned results for handler tests.
type fakeExecutor struct {
	result *types.ResultSet
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, query string) (*types.ResultSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeExecutor) DescribeSchema(ctx context.Context) (types.Schema, error) {
	return types.Schema{
		"employees": {
			{Name: "name", DeclaredType: "TEXT"},
			{Name: "salary", DeclaredType: "REAL"},
		},
	}, nil
}

func (f *fakeExecutor) Dialect() storage.Dialect { return storage.Dialect{Name: "SQLite"} }

func (f *fakeExecutor) Close() error { return nil }

func newTestHandlers(exec *fakeExecutor) *handlers.APIHandlers {
	r := router.New(router.Config{
		Retry:   router.RetryPolicy{MaxAttempts: 1, Backoff: time.Millisecond, Sleep: func(time.Duration) {}},
		Dialect: exec.Dialect(),
	})
	engine := chat.NewEngine(intent.NewClassifier(), r, exec)
	return handlers.NewAPIHandlers(engine, exec, handlers.NewSessionManager(10), nil)
}

func defaultResults() *types.ResultSet {
	return &types.ResultSet{
		Columns: []types.Column{
			{Name: "name", Type: types.SemanticCategorical},
			{Name: "salary", Type: types.SemanticNumeric},
		},
		Rows: [][]interface{}{
			{"Alice", 90000.0},
			{"Bob", 60000.0},
		},
	}
}

func postQuery(t *testing.T, h *handlers.APIHandlers, text, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"text":"`+text+`"}`))
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	w := httptest.NewRecorder()
	h.HandleQuery(w, req)
	return w
}

func TestHandleQuery_AssignsSessionID(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	w := postQuery(t, h, "show me all employees", "")

	require.Equal(t, http.StatusOK, w.Code)
	sessionID := w.Header().Get("X-Session-ID")
	assert.NotEmpty(t, sessionID)

	var resp handlers.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sessionID, resp.SessionID)
	assert.Contains(t, resp.QueryUsed, "FROM employees")
	assert.NotNil(t, resp.Analysis)
	assert.NotEmpty(t, resp.Suggestions)
}

func TestHandleQuery_SessionContinuity(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	first := postQuery(t, h, "show me all employees", "")
	require.Equal(t, http.StatusOK, first.Code)
	sessionID := first.Header().Get("X-Session-ID")

	req := httptest.NewRequest(http.MethodGet, "/api/context", nil)
	req.Header.Set("X-Session-ID", sessionID)
	w := httptest.NewRecorder()
	h.HandleContext(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.ContextResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sessionID, resp.SessionID)
	assert.Equal(t, "show me all employees", resp.Context.LastQuery)
}

func TestHandleQuery_RejectsEmptyText(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	w := postQuery(t, h, "", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleQuery_ExecutionFailureReturnsBadRequest(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{
		err: &storage.ExecutionError{Query: "SELECT nope", Message: "no such column"},
	})

	w := postQuery(t, h, "show me all employees", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query execution failed")
}

func TestHandleQuery_RoutingFailureReturnsBadGateway(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	// No pattern matches and no generative provider is configured.
	w := postQuery(t, h, "tell me a joke", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleSuggest_EmptySessionUsesGenericPool(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	req := httptest.NewRequest(http.MethodGet, "/api/suggest", nil)
	w := httptest.NewRecorder()
	h.HandleSuggest(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.SuggestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Suggestions)
	assert.LessOrEqual(t, len(resp.Suggestions), 5)
}

func TestHandleSchema(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	w := httptest.NewRecorder()
	h.HandleSchema(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.SchemaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Tables, "employees")
}

func TestHandleSample_UnknownTableRejected(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	req := httptest.NewRequest(http.MethodGet, "/api/sample/secrets", nil)
	req.SetPathValue("table", "secrets")
	w := httptest.NewRecorder()
	h.HandleSample(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSample_KnownTable(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	req := httptest.NewRequest(http.MethodGet, "/api/sample/employees", nil)
	req.SetPathValue("table", "employees")
	w := httptest.NewRecorder()
	h.HandleSample(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.SampleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "employees", resp.Table)
	require.NotNil(t, resp.Results)
	assert.Len(t, resp.Results.Rows, 2)
}

func TestHandleExport_NoResultsYet(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	req := httptest.NewRequest(http.MethodGet, "/api/export/csv", nil)
	req.SetPathValue("format", "csv")
	w := httptest.NewRecorder()
	h.HandleExport(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleExport_AfterQuery(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	first := postQuery(t, h, "show me all employees", "")
	require.Equal(t, http.StatusOK, first.Code)
	sessionID := first.Header().Get("X-Session-ID")

	req := httptest.NewRequest(http.MethodGet, "/api/export/csv", nil)
	req.SetPathValue("format", "csv")
	req.Header.Set("X-Session-ID", sessionID)
	w := httptest.NewRecorder()
	h.HandleExport(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "name,salary")
	assert.Contains(t, w.Body.String(), "Alice")
}

func TestHandleExport_UnsupportedFormat(t *testing.T) {
	h := newTestHandlers(&fakeExecutor{result: defaultResults()})

	req := httptest.NewRequest(http.MethodGet, "/api/export/xlsx", nil)
	req.SetPathValue("format", "xlsx")
	w := httptest.NewRecorder()
	h.HandleExport(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
