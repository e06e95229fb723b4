package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/intent"
	"github.com/tabletalk/tabletalk/internal/router"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/pkg/types"
	"github.com/tabletalk/tabletalk/web/handlers"
)

type fakeExecutor struct{}

func (f *fakeExecutor) Execute(ctx context.Context, query string) (*types.ResultSet, error) {
	return &types.ResultSet{
		Columns: []types.Column{
			{Name: "department", Type: types.SemanticCategorical},
			{Name: "employee_count", Type: types.SemanticNumeric},
		},
		Rows: [][]interface{}{{"Finance", 12.0}, {"IT", 8.0}},
	}, nil
}

func (f *fakeExecutor) DescribeSchema(ctx context.Context) (types.Schema, error) {
	return types.Schema{"employees": {{Name: "name", DeclaredType: "TEXT"}}}, nil
}

func (f *fakeExecutor) Dialect() storage.Dialect { return storage.Dialect{Name: "SQLite"} }

func (f *fakeExecutor) Close() error { return nil }

func startTestServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Chat.MaxTurns = 10
	cfg.Security.SecurityMode = "development"

	exec := &fakeExecutor{}
	r := router.New(router.Config{
		Retry:   router.RetryPolicy{MaxAttempts: 1, Backoff: time.Millisecond, Sleep: func(time.Duration) {}},
		Dialect: exec.Dialect(),
	})
	engine := chat.NewEngine(intent.NewClassifier(), r, exec)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr, _ := Start(ctx, cfg, engine, exec)
	return "http://" + addr
}

func TestServer_HealthEndpoint(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServer_SecurityHeaders(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestServer_QueryRoundTrip(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Post(base+"/api/query", "application/json",
		strings.NewReader(`{"text":"how many employees are in each department?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Session-ID"))

	var body handlers.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.QueryUsed, "GROUP BY department")
	require.NotNil(t, body.Results)
	assert.Len(t, body.Results.Rows, 2)
	assert.NotEmpty(t, body.Suggestions)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/api/query")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
