// Package intent maps raw natural-language queries to structured intents
// using layered keyword taxonomies. Classification is deterministic,
// case-insensitive, and has no error path.
package intent

import (
	"strings"

	"github.com/tabletalk/tabletalk/pkg/types"
)

// taxonomy is one ordered topic rule: the first taxonomy whose keywords
// match wins, so declaration order is the priority order.
type taxonomy struct {
	topic    types.Topic
	keywords []string
}

// Classifier resolves query text to an Intent. The zero value is not
// usable; construct with NewClassifier.
type Classifier struct {
	taxonomies []taxonomy
	metrics    []metricRule
	entities   []string
}

type metricRule struct {
	metric   types.Metric
	keywords []string
}

// NewClassifier builds a classifier with the default taxonomies and the
// default set of known entity names (departments).
func NewClassifier() *Classifier {
	return NewClassifierWithEntities(defaultEntities)
}

// NewClassifierWithEntities builds a classifier recognizing the given
// entity names (matched literally, case-insensitively) as entity filters.
func NewClassifierWithEntities(entities []string) *Classifier {
	lowered := make([]string, len(entities))
	for i, e := range entities {
		lowered[i] = strings.ToLower(e)
	}
	return &Classifier{
		// Entity-group membership detection runs before metric-flavored
		// topics: "how many employees in each department" is a grouping
		// question first, a count second.
		taxonomies: []taxonomy{
			{types.TopicEntityGroup, []string{"department", "dept", "team", "division"}},
			{types.TopicCompensation, []string{"salary", "salaries", "paid", "compensation", "wage", "pay"}},
			{types.TopicPerformance, []string{"performance", "rating", "score", "performer"}},
			{types.TopicSkill, []string{"skill", "expertise", "capabilities", "proficienc"}},
			{types.TopicTemporal, []string{"trend", "time", "year", "month", "date", "hiring", "tenure"}},
		},
		metrics: []metricRule{
			{types.MetricCount, []string{"how many", "count", "number of"}},
			{types.MetricAverage, []string{"average", "avg", "mean"}},
			{types.MetricMinMax, []string{"highest", "lowest", "top", "bottom", "max", "min", "range"}},
			{types.MetricDistribution, []string{"distribution", "spread", "breakdown"}},
		},
		entities: lowered,
	}
}

var defaultEntities = []string{"engineering", "sales", "marketing", "hr", "finance", "it"}

// Classify returns the structured intent for the given text.
// It is pure: the same text always yields the same intent.
func (c *Classifier) Classify(text string) types.Intent {
	lowered := strings.ToLower(text)

	intent := types.Intent{Topic: types.TopicUnknown}

	for _, tx := range c.taxonomies {
		if containsAny(lowered, tx.keywords) {
			intent.Topic = tx.topic
			break
		}
	}

	for _, mr := range c.metrics {
		if containsAny(lowered, mr.keywords) {
			intent.Metric = mr.metric
			break
		}
	}

	// A literal entity name sets the filter regardless of topic match.
	for _, e := range c.entities {
		if containsWord(lowered, e) {
			intent.EntityFilter = e
			break
		}
	}

	return intent
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// containsWord matches entity names on word boundaries so that "hr" does
// not fire inside "three" or "through".
func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
