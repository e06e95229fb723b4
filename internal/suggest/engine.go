// Package suggest produces follow-up query suggestions from the current
// session context. Suggestion generation is infallible: it always
// returns a (possibly shorter) list and never an error.
package suggest

import (
	"fmt"
	"strings"

	"github.com/tabletalk/tabletalk/pkg/types"
)

const (
	maxSuggestions = 5
	// A tier that already yielded this many candidates is considered
	// sufficient; later tiers are only consulted below this mark.
	sufficientCount = 3
)

// entityTemplates are instantiated with the active entity filter.
var entityTemplates = []string{
	"Show me the top performers in %s",
	"What is the average salary in %s?",
	"List all employees in %s by performance score",
	"Show me the skills distribution in %s",
	"Compare %s performance with other departments",
}

var topicPools = map[types.Topic][]string{
	types.TopicEntityGroup: {
		"Compare department performance metrics",
		"Show me department-wise salary distribution",
		"Which department has the highest average performance?",
		"Show me the largest department by employee count",
		"Compare department hiring trends",
	},
	types.TopicCompensation: {
		"Show me salary trends over time",
		"Compare salaries across departments",
		"Who are the top 5 highest paid employees?",
		"Show me the salary distribution by department",
		"What's the salary range in each department?",
	},
	types.TopicPerformance: {
		"Show me performance trends over time",
		"Compare performance across departments",
		"Who are the top 5 performers?",
		"Show me the performance distribution",
		"Which department has the most consistent performance?",
	},
	types.TopicSkill: {
		"What are the most common skills?",
		"Which skills are associated with higher salaries?",
		"Show me skill distribution by department",
		"Which skills are most common in top performers?",
	},
	types.TopicTemporal: {
		"Show me hiring trends by department",
		"Compare hiring patterns across years",
		"Which department has grown the most?",
		"Show me the average tenure by department",
	},
}

var metricPools = map[types.Metric][]string{
	types.MetricCount: {
		"How many employees are in each department?",
		"Compare department sizes",
		"How many employees joined in the last year?",
	},
	types.MetricAverage: {
		"What is the average salary in each department?",
		"Which department has the highest average performance?",
		"Show me the average tenure by department",
	},
	types.MetricMinMax: {
		"Who are the top 5 highest paid employees?",
		"Which department has the smallest headcount?",
		"Show me the highest performance scores",
	},
	types.MetricDistribution: {
		"Show me the overall salary distribution",
		"Show me the performance distribution",
		"Show me department-wise salary distribution",
	},
}

var genericPool = []string{
	"Show me all employees",
	"What are the top 5 highest paid employees?",
	"How many employees are in each department?",
	"Show me project performance metrics",
	"Analyze employee performance and contributions",
}

// Suggest returns up to 5 follow-up queries ranked by relevance to the
// session context. Candidates are drawn tier by tier (entity, topic,
// metric, generic); a later tier is consulted only while fewer than 3
// candidates have accumulated. Entries case-insensitively equal to a
// recent query, or to each other, are dropped.
func Suggest(sctx types.SessionContext) []string {
	seen := make(map[string]bool, len(sctx.RecentQueries))
	for _, q := range sctx.RecentQueries {
		seen[strings.ToLower(q)] = true
	}

	out := make([]string, 0, maxSuggestions)
	add := func(pool []string) {
		for _, candidate := range pool {
			if len(out) == maxSuggestions {
				return
			}
			key := strings.ToLower(candidate)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, candidate)
		}
	}

	if sctx.LastEntityFilter != "" {
		add(entityPool(sctx.LastEntityFilter))
	}
	if len(out) < sufficientCount {
		add(topicPools[sctx.LastTopic])
	}
	if len(out) < sufficientCount {
		add(metricPools[sctx.LastMetric])
	}
	if len(out) < sufficientCount {
		add(genericPool)
	}
	return out
}

func entityPool(entity string) []string {
	label := capitalize(entity)
	pool := make([]string, 0, len(entityTemplates))
	for _, tmpl := range entityTemplates {
		pool = append(pool, fmt.Sprintf(tmpl, label))
	}
	return pool
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
