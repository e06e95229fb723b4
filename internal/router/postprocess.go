package router

import (
	"regexp"
	"strings"

	"github.com/tabletalk/tabletalk/internal/storage"
)

var (
	selectRe   = regexp.MustCompile(`(?i)\bSELECT\b`)
	distinctRe = regexp.MustCompile(`(?i)\ADISTINCT\b`)
)

// postprocess cleans a generated query for execution: markdown fences
// and backticks come off, the result-shaping clause gets a DISTINCT
// modifier exactly once, and dialects with inline error capture get
// their recoverable envelope.
func postprocess(query string, dialect storage.Dialect) string {
	query = stripCodeFences(query)
	query = ensureDistinct(query)
	if dialect.WrapRecoverable != nil {
		query = dialect.WrapRecoverable(query)
	}
	return query
}

// stripCodeFences removes markdown code-block artifacts providers add
// despite instructions, plus stray backticks.
func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```sql", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.ReplaceAll(text, "`", "")
	return strings.TrimSpace(text)
}

// ensureDistinct inserts DISTINCT after the first top-level SELECT when
// it is not already present there. SELECTs inside parentheses (CTE
// bodies, subqueries) are skipped so the modifier lands on the primary
// result-producing clause. Queries with no top-level SELECT are left
// untouched; a SELECT that already carries DISTINCT is not doubled.
func ensureDistinct(query string) string {
	end, ok := topLevelSelectEnd(query)
	if !ok {
		return query
	}
	rest := strings.TrimLeft(query[end:], " \t\n")
	if distinctRe.MatchString(rest) {
		return query
	}
	return query[:end] + " DISTINCT" + query[end:]
}

// topLevelSelectEnd returns the offset just past the first SELECT
// keyword at paren depth zero, skipping string literals so quoted text
// cannot confuse the depth count.
func topLevelSelectEnd(query string) (int, bool) {
	depth := 0
	for i := 0; i < len(query); i++ {
		switch query[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '\'':
			for i++; i < len(query) && query[i] != '\''; i++ {
			}
		default:
			if depth == 0 && (i == 0 || !isIdentByte(query[i-1])) {
				if loc := selectRe.FindStringIndex(query[i:]); loc != nil && loc[0] == 0 {
					return i + loc[1], true
				}
			}
		}
	}
	return 0, false
}

func isIdentByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
