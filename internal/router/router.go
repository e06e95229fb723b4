// Package router resolves a classified natural-language request into an
// executable query. It prefers deterministic pattern matches, applies a
// single context-aware rewrite pass for follow-up phrasings, and falls
// back to the generative provider under a bounded retry policy.
package router

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/pkg/types"
)

// GenerationError reports that the generative fallback could not produce
// a query: either a hard provider failure or exhausted retries.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("router: query generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// continuationKeywords mark follow-up requests that lean on the previous
// query ("sort by that", "filter where salary > 50000").
var continuationKeywords = []string{"group", "sort", "filter", "where"}

// Router turns raw text plus intent and session context into a query.
type Router struct {
	patterns  *PatternLibrary
	generator llm.TextGenerator
	retry     RetryPolicy
	dialect   storage.Dialect
	schema    func(ctx context.Context) types.Schema
}

// Config assembles a Router. Patterns defaults to the built-in library
// and Retry to DefaultRetryPolicy when unset. SchemaFunc may be nil; the
// generative prompt then carries no schema section.
type Config struct {
	Patterns   *PatternLibrary
	Generator  llm.TextGenerator
	Retry      RetryPolicy
	Dialect    storage.Dialect
	SchemaFunc func(ctx context.Context) types.Schema
}

// New creates a Router from the given configuration.
func New(cfg Config) *Router {
	if cfg.Patterns == nil {
		cfg.Patterns = DefaultPatternLibraryFor(cfg.Dialect.Name)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Router{
		patterns:  cfg.Patterns,
		generator: cfg.Generator,
		retry:     cfg.Retry,
		dialect:   cfg.Dialect,
		schema:    cfg.SchemaFunc,
	}
}

// Resolve maps rawText to an executable query. history is the formatted
// conversation preceding this turn; it reaches the generative prompt
// only, never the pattern matcher.
//
// Resolution order: pattern lookup on the raw text; one context-aware
// rewrite of continuation phrasings, restarting pattern lookup exactly
// once; generative fallback under the retry policy, post-processed.
// Resolve never returns an empty query with a nil error.
func (r *Router) Resolve(ctx context.Context, rawText, history string, in types.Intent, sctx types.SessionContext) (string, error) {
	if query, ok := r.patterns.Match(rawText); ok {
		return query, nil
	}

	text := rawText
	if rewritten, ok := rewriteContinuation(rawText, sctx); ok {
		if query, matched := r.patterns.Match(rewritten); matched {
			return query, nil
		}
		// The rewrite folds the previous request in, which gives the
		// generator the full picture even when no pattern caught it.
		text = rewritten
	}

	return r.generate(ctx, text, history, in)
}

// rewriteContinuation synthesizes an explicit request from a follow-up
// phrase and the previous query. Applied at most once per turn; the
// rewritten text is never rewritten again.
func rewriteContinuation(rawText string, sctx types.SessionContext) (string, bool) {
	if sctx.LastQuery == "" {
		return "", false
	}
	lowered := strings.ToLower(rawText)
	for _, kw := range continuationKeywords {
		idx := strings.Index(lowered, kw)
		if idx < 0 {
			continue
		}
		clause := strings.TrimSpace(rawText[idx+len(kw):])
		clause = strings.TrimPrefix(clause, "by ")
		clause = strings.TrimSpace(clause)
		var rewritten string
		switch kw {
		case "sort":
			rewritten = fmt.Sprintf("%s, sorted by %s", sctx.LastQuery, clause)
		case "group":
			rewritten = fmt.Sprintf("%s, grouped by %s", sctx.LastQuery, clause)
		default: // filter, where
			rewritten = fmt.Sprintf("%s, only where %s", sctx.LastQuery, clause)
		}
		return rewritten, true
	}
	return "", false
}

// generate delegates to the provider under the bounded retry policy and
// post-processes the returned text into a safe query.
func (r *Router) generate(ctx context.Context, text, history string, in types.Intent) (string, error) {
	if r.generator == nil {
		return "", &GenerationError{Cause: fmt.Errorf("no generative provider configured")}
	}

	var schema types.Schema
	if r.schema != nil {
		schema = r.schema(ctx)
	}
	prompt := llm.QueryPrompt(text, history, schema, r.dialect.Name)

	raw, err := r.retry.Do(ctx, func() (string, error) {
		return r.generator.Complete(ctx, prompt)
	})
	if err != nil {
		return "", &GenerationError{Cause: err}
	}

	query := postprocess(raw, r.dialect)
	if query == "" {
		return "", &GenerationError{Cause: fmt.Errorf("provider returned an empty query")}
	}

	log.Printf("router: generated query for topic=%s: %s", in.Topic, query)
	return query, nil
}
