package router

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/pkg/types"
)

// fakeGenerator scripts Complete responses for router tests.
type fakeGenerator struct {
	calls     int
	prompts   []string
	responses []string
	errs      []error
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func (f *fakeGenerator) GetModel() string { return "fake" }

func newTestRouter(patterns *PatternLibrary, gen llm.TextGenerator) *Router {
	return New(Config{
		Patterns:  patterns,
		Generator: gen,
		Retry:     RetryPolicy{MaxAttempts: 3, Backoff: time.Second, Sleep: func(time.Duration) {}},
		Dialect:   storage.Dialect{Name: "SQLite"},
	})
}

func TestResolve_PatternMatchIsDeterministic(t *testing.T) {
	r := newTestRouter(DefaultPatternLibrary(), nil)

	first, err := r.Resolve(context.Background(), "How many employees are in each department?", "", types.Intent{}, types.SessionContext{})
	require.NoError(t, err)
	assert.Contains(t, first, "GROUP BY department")

	for i := 0; i < 5; i++ {
		got, err := r.Resolve(context.Background(), "How many employees are in each department?", "", types.Intent{}, types.SessionContext{})
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

// When two triggers both match, the pattern declared first wins.
func TestResolve_FirstMatchTieBreak(t *testing.T) {
	lib := NewPatternLibrary([]Pattern{
		{Trigger: "employees", Template: "SELECT DISTINCT name FROM employees"},
		{Trigger: "all employees", Template: "SELECT DISTINCT * FROM employees"},
	})
	r := newTestRouter(lib, nil)

	got, err := r.Resolve(context.Background(), "show me all employees", "", types.Intent{}, types.SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT name FROM employees", got,
		"declaration order must break the tie")
}

func TestResolve_ContinuationRewriteReentersPatternsOnce(t *testing.T) {
	lib := NewPatternLibrary([]Pattern{
		{Trigger: "sorted by salary", Template: "SELECT DISTINCT * FROM employees ORDER BY salary"},
	})
	r := newTestRouter(lib, nil)

	sctx := types.SessionContext{LastQuery: "show me all employees"}
	got, err := r.Resolve(context.Background(), "sort by salary", "", types.Intent{}, sctx)
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT * FROM employees ORDER BY salary", got)
}

func TestResolve_ContinuationWithoutLastQueryGoesToGenerator(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"SELECT name FROM employees ORDER BY salary"}}
	r := newTestRouter(NewPatternLibrary(nil), gen)

	_, err := r.Resolve(context.Background(), "sort by salary", "", types.Intent{}, types.SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls, "no last query means no rewrite, straight to fallback")
}

// A provider that is always rate limited is invoked exactly MaxAttempts
// times before GenerationError surfaces.
func TestResolve_RetryBoundOnRateLimit(t *testing.T) {
	gen := &fakeGenerator{
		errs: []error{llm.ErrRateLimited, llm.ErrRateLimited, llm.ErrRateLimited},
	}
	var waits int
	r := New(Config{
		Patterns:  NewPatternLibrary(nil),
		Generator: gen,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     time.Second,
			Sleep:       func(time.Duration) { waits++ },
		},
		Dialect: storage.Dialect{Name: "SQLite"},
	})

	_, err := r.Resolve(context.Background(), "anything unusual", "", types.Intent{}, types.SessionContext{})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	var maxErr *MaxRetriesError
	assert.ErrorAs(t, err, &maxErr, "cause must identify exhausted retries")
	assert.Equal(t, 3, gen.calls, "exactly 3 attempts")
	assert.Equal(t, 2, waits, "2 waits for 3 attempts")
}

func TestResolve_HardProviderFailureAbortsImmediately(t *testing.T) {
	hard := &llm.ProviderError{Provider: "fake", Status: 500, Message: "boom"}
	gen := &fakeGenerator{errs: []error{hard}}
	r := newTestRouter(NewPatternLibrary(nil), gen)

	_, err := r.Resolve(context.Background(), "anything unusual", "", types.Intent{}, types.SessionContext{})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, gen.calls, "non-retryable errors must not be retried")
	var provErr *llm.ProviderError
	assert.ErrorAs(t, err, &provErr)
}

func TestResolve_PostprocessStripsFencesAndAddsDistinct(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"```sql\nSELECT name FROM employees\n```"}}
	r := newTestRouter(NewPatternLibrary(nil), gen)

	got, err := r.Resolve(context.Background(), "anything unusual", "", types.Intent{}, types.SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT name FROM employees", got)
}

func TestResolve_NeverReturnsEmptyQuerySilently(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"```\n```"}}
	r := newTestRouter(NewPatternLibrary(nil), gen)

	got, err := r.Resolve(context.Background(), "anything unusual", "", types.Intent{}, types.SessionContext{})
	assert.Empty(t, got)
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
}

func TestResolve_RewrittenTextFeedsGeneratorWhenNoPatternMatches(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"SELECT DISTINCT * FROM employees WHERE salary > 50000"}}
	r := newTestRouter(NewPatternLibrary(nil), gen)

	sctx := types.SessionContext{LastQuery: "show me all employees"}
	_, err := r.Resolve(context.Background(), "filter where salary > 50000", "", types.Intent{}, sctx)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestResolve_HistoryReachesGenerativePrompt(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"SELECT name FROM employees ORDER BY salary DESC"}}
	r := newTestRouter(NewPatternLibrary(nil), gen)

	history := "user: show me all employees\nassistant: 12 rows × 8 columns"
	_, err := r.Resolve(context.Background(), "which of those earns the most?", history, types.Intent{}, types.SessionContext{})
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], history)
}

// Pattern matches never touch the provider, so history must not force a
// generative round trip.
func TestResolve_PatternMatchIgnoresHistory(t *testing.T) {
	gen := &fakeGenerator{}
	r := newTestRouter(DefaultPatternLibrary(), gen)

	_, err := r.Resolve(context.Background(), "show me all employees", "user: earlier question", types.Intent{}, types.SessionContext{})
	require.NoError(t, err)
	assert.Zero(t, gen.calls)
}

func TestEnsureDistinct(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds after select", "SELECT a FROM t", "SELECT DISTINCT a FROM t"},
		{"already present", "SELECT DISTINCT a FROM t", "SELECT DISTINCT a FROM t"},
		{"case insensitive", "select distinct a from t", "select distinct a from t"},
		{"no select untouched", "PRAGMA table_info(t)", "PRAGMA table_info(t)"},
		{
			"with-prefixed query modifies the outer select",
			"WITH c AS (SELECT 1 AS x) SELECT x FROM c",
			"WITH c AS (SELECT 1 AS x) SELECT DISTINCT x FROM c",
		},
		{
			"outer select already distinct",
			"WITH c AS (SELECT 1 AS x) SELECT DISTINCT x FROM c",
			"WITH c AS (SELECT 1 AS x) SELECT DISTINCT x FROM c",
		},
		{
			"subquery select skipped",
			"SELECT a FROM (SELECT a FROM t) sub",
			"SELECT DISTINCT a FROM (SELECT a FROM t) sub",
		},
		{
			"quoted select is not a keyword",
			"WITH c AS (SELECT 'SELECT' AS x) SELECT x FROM c",
			"WITH c AS (SELECT 'SELECT' AS x) SELECT DISTINCT x FROM c",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ensureDistinct(tt.in))
		})
	}
}

func TestRetryPolicy_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Second, Sleep: func(time.Duration) { cancel() }}

	calls := 0
	_, err := p.Do(ctx, func() (string, error) {
		calls++
		return "", llm.ErrRateLimited
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// The trend templates embed the year-extraction function of the engine
// they will run against, so each dialect gets its own rendering.
func TestDefaultPatternLibraryFor_DialectYearExpressions(t *testing.T) {
	sqlite := DefaultPatternLibraryFor("SQLite")
	got, ok := sqlite.Match("show me hiring trends")
	require.True(t, ok)
	assert.Contains(t, got, "strftime('%Y', doj)")

	postgres := DefaultPatternLibraryFor("PostgreSQL")
	for _, text := range []string{"show me hiring trends", "time-based trends please"} {
		got, ok := postgres.Match(text)
		require.True(t, ok)
		assert.Contains(t, got, "EXTRACT(YEAR FROM")
		assert.NotContains(t, got, "strftime", "PostgreSQL has no strftime")
	}

	assert.Equal(t, sqlite.Len(), postgres.Len(), "dialect rendering must not drop patterns")
}

func TestLoadPatternLibrary_RejectsEmptyFields(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/patterns.yaml"
	require.NoError(t, os.WriteFile(path, []byte("- trigger: \"\"\n  template: SELECT 1\n"), 0o644))

	_, err := LoadPatternLibrary(path)
	assert.Error(t, err)
}

func TestLoadPatternLibrary_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/patterns.yaml"
	require.NoError(t, os.WriteFile(path, []byte(
		"- trigger: employees\n  template: SELECT DISTINCT name FROM employees\n"+
			"- trigger: all employees\n  template: SELECT DISTINCT * FROM employees\n"), 0o644))

	lib, err := LoadPatternLibrary(path)
	require.NoError(t, err)
	require.Equal(t, 2, lib.Len())

	got, ok := lib.Match("show me all employees")
	require.True(t, ok)
	assert.Equal(t, "SELECT DISTINCT name FROM employees", got)
}
