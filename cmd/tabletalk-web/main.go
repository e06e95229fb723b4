// Command tabletalk-web hosts the TableTalk conversational query API
// over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/intent"
	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/router"
	"github.com/tabletalk/tabletalk/internal/server"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/storage/postgres"
	"github.com/tabletalk/tabletalk/internal/storage/sqlite"
	"github.com/tabletalk/tabletalk/pkg/types"
)

func main() {
	patternsPath := flag.String("patterns", "", "Path to a YAML pattern library (overrides TABLETALK_PATTERNS_PATH)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *patternsPath != "" {
		cfg.Chat.PatternsPath = *patternsPath
	}

	executor, err := newExecutor(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize datastore: %v", err)
	}
	defer executor.Close()

	engine, err := buildEngine(cfg, executor)
	if err != nil {
		log.Fatalf("Failed to build chat engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, _ := server.Start(ctx, cfg, engine, executor)
	log.Printf("TableTalk API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

func newExecutor(cfg *config.Config) (storage.QueryExecutor, error) {
	switch cfg.Datastore.Engine {
	case "postgres":
		return postgres.NewExecutor(cfg.Datastore.DSN)
	default:
		return sqlite.NewExecutor(cfg.Datastore.DSN)
	}
}

func buildEngine(cfg *config.Config, executor storage.QueryExecutor) (*chat.Engine, error) {
	patterns := router.DefaultPatternLibraryFor(executor.Dialect().Name)
	if cfg.Chat.PatternsPath != "" {
		loaded, err := router.LoadPatternLibrary(cfg.Chat.PatternsPath)
		if err != nil {
			return nil, err
		}
		patterns = loaded
		log.Printf("Loaded pattern library from %s (%d patterns)", cfg.Chat.PatternsPath, loaded.Len())
	}

	// A missing generative provider is not fatal: pattern matching and
	// context rewrites still work, only the fallback is disabled.
	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		log.Printf("Warning: generative fallback disabled: %v", err)
		generator = nil
	}

	r := router.New(router.Config{
		Patterns:  patterns,
		Generator: generator,
		Retry: router.RetryPolicy{
			MaxAttempts: cfg.Chat.MaxRetries,
			Backoff:     cfg.Chat.RetryBackoff,
		},
		Dialect:    executor.Dialect(),
		SchemaFunc: schemaFunc(executor),
	})

	return chat.NewEngine(intent.NewClassifier(), r, executor), nil
}

// schemaFunc adapts schema introspection for prompt enrichment; failure
// substitutes an empty schema rather than blocking the turn.
func schemaFunc(executor storage.QueryExecutor) func(ctx context.Context) types.Schema {
	return func(ctx context.Context) types.Schema {
		schema, err := executor.DescribeSchema(ctx)
		if err != nil {
			log.Printf("Warning: schema introspection failed: %v", err)
			return nil
		}
		return schema
	}
}
