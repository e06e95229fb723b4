// Command tabletalk-cli is an interactive REPL for conversational
// queries against the configured datastore.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/exporter"
	"github.com/tabletalk/tabletalk/internal/intent"
	"github.com/tabletalk/tabletalk/internal/llm"
	"github.com/tabletalk/tabletalk/internal/memory"
	"github.com/tabletalk/tabletalk/internal/router"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/internal/storage/postgres"
	"github.com/tabletalk/tabletalk/internal/storage/sqlite"
	"github.com/tabletalk/tabletalk/internal/suggest"
	"github.com/tabletalk/tabletalk/pkg/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	executor, err := newExecutor(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize datastore: %v", err)
	}
	defer executor.Close()

	engine := buildEngine(cfg, executor)
	session := memory.NewSession(cfg.Chat.MaxTurns)
	export := &exporter.Exporter{}

	var lastResults *types.ResultSet

	fmt.Println("TableTalk - ask questions about your data in plain English.")
	fmt.Println("Type 'help' for commands, 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "quit" || line == "exit":
			return
		case line == "help":
			printHelp()
		case line == "context":
			printContext(session.Context())
		case line == "suggest":
			for _, s := range suggest.Suggest(session.Context()) {
				fmt.Printf("  - %s\n", s)
			}
		case line == "clear":
			session.Clear()
			lastResults = nil
			fmt.Println("Conversation cleared.")
		case strings.HasPrefix(line, "export "):
			runExport(export, lastResults, strings.TrimPrefix(line, "export "))
		default:
			resp, err := engine.ProcessTurn(context.Background(), session, line)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			lastResults = resp.Results
			printResponse(resp)
		}
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  help               Show this help")
	fmt.Println("  context            Show the current conversation context")
	fmt.Println("  suggest            Get query suggestions based on current context")
	fmt.Println("  export <format>    Export the last results (csv, json, sql)")
	fmt.Println("  clear              Reset the conversation")
	fmt.Println("  quit               Exit")
	fmt.Println("Anything else is treated as a question about your data.")
}

func printContext(sctx types.SessionContext) {
	fmt.Printf("  topic:          %s\n", orNone(string(sctx.LastTopic)))
	fmt.Printf("  entity filter:  %s\n", orNone(sctx.LastEntityFilter))
	fmt.Printf("  metric:         %s\n", orNone(string(sctx.LastMetric)))
	fmt.Printf("  last query:     %s\n", orNone(sctx.LastQuery))
	fmt.Printf("  last results:   %s\n", orNone(sctx.LastResultSummary))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func printResponse(resp *types.TurnResponse) {
	fmt.Printf("\nSQL: %s\n\n", resp.QueryUsed)
	printResults(resp.Results)

	if resp.Analysis != nil && len(resp.Analysis.Narrative) > 0 {
		fmt.Println("Insights:")
		for _, line := range resp.Analysis.Narrative {
			fmt.Printf("  - %s\n", line)
		}
	}
	if len(resp.Suggestions) > 0 {
		fmt.Println("You could ask next:")
		for _, s := range resp.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
	fmt.Println()
}

const maxDisplayRows = 20

func printResults(rs *types.ResultSet) {
	if rs.Empty() {
		fmt.Println("(no rows)")
		return
	}

	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	fmt.Println(strings.Join(names, " | "))

	shown := rs.Rows
	if len(shown) > maxDisplayRows {
		shown = shown[:maxDisplayRows]
	}
	for _, row := range shown {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	if len(rs.Rows) > maxDisplayRows {
		fmt.Printf("... and %d more rows\n", len(rs.Rows)-maxDisplayRows)
	}
	fmt.Printf("(%s)\n\n", rs.Summary())
}

func runExport(export *exporter.Exporter, results *types.ResultSet, formatName string) {
	if results == nil {
		fmt.Println("No results to export yet - run a query first.")
		return
	}
	format, err := exporter.ParseFormat(formatName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	filename := fmt.Sprintf("query_results.%s", format)
	f, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer f.Close()

	if err := export.Export(f, results, format); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Data exported to %s\n", filename)
}

func newExecutor(cfg *config.Config) (storage.QueryExecutor, error) {
	switch cfg.Datastore.Engine {
	case "postgres":
		return postgres.NewExecutor(cfg.Datastore.DSN)
	default:
		return sqlite.NewExecutor(cfg.Datastore.DSN)
	}
}

func buildEngine(cfg *config.Config, executor storage.QueryExecutor) *chat.Engine {
	patterns := router.DefaultPatternLibraryFor(executor.Dialect().Name)
	if cfg.Chat.PatternsPath != "" {
		loaded, err := router.LoadPatternLibrary(cfg.Chat.PatternsPath)
		if err != nil {
			log.Fatalf("Failed to load pattern library: %v", err)
		}
		patterns = loaded
	}

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
		Dialect: executor.Dialect(),
		SchemaFunc: func(ctx context.Context) types.Schema {
			schema, err := executor.DescribeSchema(ctx)
			if err != nil {
				return nil
			}
			return schema
		},
	})

	return chat.NewEngine(intent.NewClassifier(), r, executor)
}
