package llm

import (
	"sort"
	"strings"

	"github.com/tabletalk/tabletalk/pkg/types"
)

// QueryPrompt builds the generation prompt for turning a natural-language
// question into a SQL query. The datastore schema is embedded so the
// provider can reference real table and column names; an empty schema
// produces a schema-free prompt rather than failing. history carries the
// formatted conversation so far, letting the provider resolve references
// like "those employees" back to earlier turns; empty history omits the
// section.
func QueryPrompt(question, history string, schema types.Schema, dialect string) string {
	var b strings.Builder

	b.WriteString("Given the following user question, generate a single ")
	b.WriteString(dialect)
	b.WriteString(" SQL query.\n")
	b.WriteString("Follow these rules:\n")
	b.WriteString("1. Use DISTINCT to avoid duplicate rows\n")
	b.WriteString("2. Generate only the SQL query, no explanations\n")
	b.WriteString("3. Do not include backticks or markdown formatting\n")
	b.WriteString("4. Only reference tables and columns from the schema\n")

	if len(schema) > 0 {
		b.WriteString("\nDatabase Schema:\n")
		// Tables sorted for prompt stability across calls.
		names := make([]string, 0, len(schema))
		for table := range schema {
			names = append(names, table)
		}
		sort.Strings(names)
		for _, table := range names {
			b.WriteString("\nTable: ")
			b.WriteString(table)
			b.WriteString("\nColumns: ")
			for i, col := range schema[table] {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(col.Name)
				b.WriteString(" (")
				b.WriteString(col.DeclaredType)
				if col.Nullable {
					b.WriteString(", nullable")
				}
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
	}

	if history != "" {
		b.WriteString("\nConversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("\nUser Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSQL:")
	return b.String()
}
