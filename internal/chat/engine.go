// Package chat wires the per-turn pipeline together: classify the raw
// text, resolve it to a query, execute it, analyze the results, fold the
// outcome into session memory and produce follow-up suggestions. The
// session is owned by the caller and passed into every turn; the engine
// itself holds no per-conversation state.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tabletalk/tabletalk/internal/analyzer"
	"github.com/tabletalk/tabletalk/internal/intent"
	"github.com/tabletalk/tabletalk/internal/memory"
	"github.com/tabletalk/tabletalk/internal/router"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/suggest"
	"github.com/tabletalk/tabletalk/pkg/types"
)

// Stage identifies which pipeline stage a turn failed in.
type Stage string

const (
	StageRouting   Stage = "routing"
	StageExecution Stage = "execution"
)

// TurnError is the single structured error a failed turn yields.
type TurnError struct {
	Stage Stage
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("chat: %s stage failed: %v", e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Engine processes conversation turns. Classification, analysis and
// suggestion generation are infallible; routing and execution failures
// surface as *TurnError with the failing stage attached.
type Engine struct {
	classifier *intent.Classifier
	router     *router.Router
	executor   storage.QueryExecutor
}

// NewEngine assembles a turn processor from its collaborators.
func NewEngine(classifier *intent.Classifier, r *router.Router, executor storage.QueryExecutor) *Engine {
	if classifier == nil {
		classifier = intent.NewClassifier()
	}
	return &Engine{classifier: classifier, router: r, executor: executor}
}

// ProcessTurn runs one full turn against the given session: the raw text
// is classified, resolved to a query, executed and analyzed, then the
// session context is updated and suggestions are drawn from it. The
// user turn is always appended to the log, even when the turn fails.
func (e *Engine) ProcessTurn(ctx context.Context, session *memory.Session, rawText string) (*types.TurnResponse, error) {
	rawText = strings.TrimSpace(rawText)

	// Snapshot the history before the current turn lands in the log, so
	// the generative prompt carries prior turns and not the question it
	// is already being asked.
	history := session.FormattedHistory()

	session.Append(types.ConversationTurn{Role: types.RoleUser, Text: rawText})

	in := e.classifier.Classify(rawText)

	query, err := e.router.Resolve(ctx, rawText, history, in, session.Context())
	if err != nil {
		return nil, &TurnError{Stage: StageRouting, Err: err}
	}
	log.Printf("chat: resolved turn to query: %s", query)

	results, err := e.executor.Execute(ctx, query)
	if err != nil {
		return nil, &TurnError{Stage: StageExecution, Err: err}
	}

	report := analyzer.Analyze(results)

	session.UpdateContext(memory.ContextUpdate{
		QueryText:     rawText,
		ResultSummary: results.Summary(),
		Topic:         in.Topic,
		EntityFilter:  in.EntityFilter,
		Metric:        in.Metric,
	})

	suggestions := suggest.Suggest(session.Context())

	session.Append(types.ConversationTurn{
		Role: types.RoleAssistant,
		Text: strings.Join(report.Narrative, "\n"),
		Metadata: map[string]interface{}{
			"query":        query,
			"result_shape": results.Summary(),
		},
	})

	return &types.TurnResponse{
		QueryUsed:   query,
		Results:     results,
		Analysis:    report,
		Suggestions: suggestions,
	}, nil
}

// CurrentContext exposes the session's derived context for introspection.
func (e *Engine) CurrentContext(session *memory.Session) types.SessionContext {
	return session.Context()
}

// Schema surfaces the datastore schema for hosting layers. Failure is
// non-fatal to turn processing; callers may substitute an empty schema.
func (e *Engine) Schema(ctx context.Context) (types.Schema, error) {
	return e.executor.DescribeSchema(ctx)
}
