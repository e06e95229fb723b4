// Package types defines the shared data model for the TableTalk
// conversational query pipeline: conversation turns, session context,
// classified intents, result sets, and analysis reports.
package types

import (
	"fmt"
	"time"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single message in the session log.
// Turns are immutable once appended to session memory.
type ConversationTurn struct {
	ID        string                 `json:"id"`
	Role      Role                   `json:"role"`
	Text      string                 `json:"text"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SessionContext is the derived summary of a conversation, used to
// disambiguate follow-up requests and rank suggestions. It is owned
// exclusively by the session memory and handed out by value.
type SessionContext struct {
	LastTopic         Topic    `json:"last_topic"`
	LastEntityFilter  string   `json:"last_entity_filter"`
	LastMetric        Metric   `json:"last_metric"`
	LastQuery         string   `json:"last_query"`
	LastResultSummary string   `json:"last_result_summary"`
	RecentQueries     []string `json:"recent_queries"`
}

// Topic is the broad subject a query is about.
type Topic string

const (
	TopicEntityGroup  Topic = "entity_group" // department/team membership
	TopicCompensation Topic = "compensation"
	TopicPerformance  Topic = "performance"
	TopicSkill        Topic = "skill"
	TopicTemporal     Topic = "temporal"
	TopicUnknown      Topic = "unknown"
)

// Metric is the aggregation hint extracted from a query.
type Metric string

const (
	MetricNone         Metric = ""
	MetricCount        Metric = "count"
	MetricAverage      Metric = "average"
	MetricMinMax       Metric = "min_max"
	MetricDistribution Metric = "distribution"
)

// Intent is the structured interpretation of one raw query.
// It is recomputed every turn and never persisted beyond the turn
// that produced it.
type Intent struct {
	Topic        Topic  `json:"topic"`
	EntityFilter string `json:"entity_filter,omitempty"`
	Metric       Metric `json:"metric,omitempty"`
}

// SemanticType is the inferred meaning of a result column.
type SemanticType string

const (
	SemanticNumeric     SemanticType = "numeric"
	SemanticCategorical SemanticType = "categorical"
	SemanticTemporal    SemanticType = "temporal"
	SemanticUnknown     SemanticType = "unknown"
)

// Column describes one result-set column with its inferred semantic type.
type Column struct {
	Name string       `json:"name"`
	Type SemanticType `json:"type"`
}

// ResultSet holds the rows returned by an executed query.
// Every row has exactly len(Columns) values. An empty ResultSet
// (zero rows) is valid and distinct from an execution failure.
type ResultSet struct {
	Columns []Column        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Empty reports whether the result set contains no rows.
func (rs *ResultSet) Empty() bool {
	return rs == nil || len(rs.Rows) == 0
}

// Summary returns a short shape description, e.g. "12 rows × 3 columns".
func (rs *ResultSet) Summary() string {
	if rs == nil {
		return "0 rows × 0 columns"
	}
	return fmt.Sprintf("%d rows × %d columns", len(rs.Rows), len(rs.Columns))
}

// ColumnStats holds summary statistics for a numeric column.
type ColumnStats struct {
	Mean     float64 `json:"mean"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Missing  int     `json:"missing"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// ValueCount pairs a categorical value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalSummary describes a text column's value distribution.
type CategoricalSummary struct {
	UniqueCount int          `json:"unique_count"`
	Top         []ValueCount `json:"top"` // at most 5, most frequent first
}

// Correlation is a strongly correlated pair of numeric columns.
type Correlation struct {
	ColumnA     string  `json:"column_a"`
	ColumnB     string  `json:"column_b"`
	Coefficient float64 `json:"coefficient"`
}

// AnalysisReport is the structured analysis of one executed result set.
type AnalysisReport struct {
	SummaryStats    map[string]ColumnStats        `json:"summary_stats"`
	CategoricalTops map[string]CategoricalSummary `json:"categorical_tops"`
	Outliers        map[string]int                `json:"outliers"`
	Correlations    []Correlation                 `json:"correlations"`
	Narrative       []string                      `json:"narrative"`
}

// TurnResponse is what one fully processed turn yields.
type TurnResponse struct {
	QueryUsed   string          `json:"query_used"`
	Results     *ResultSet      `json:"results"`
	Analysis    *AnalysisReport `json:"analysis"`
	Suggestions []string        `json:"suggestions"`
}

// ColumnDescriptor describes one column of a datastore table as reported
// by schema introspection.
type ColumnDescriptor struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declared_type"`
	Nullable     bool   `json:"nullable"`
}

// Schema maps table names to their ordered column descriptors.
type Schema map[string][]ColumnDescriptor
