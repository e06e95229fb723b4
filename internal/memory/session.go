// Package memory implements bounded per-session conversation memory.
//
// A Session holds the ordered conversation log plus a derived context
// summary (last topic, entity filter, metric, and recent queries) that the
// router and suggestion engine consult to resolve follow-up requests.
// Sessions live for the process lifetime only; nothing here touches storage.
package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tabletalk/tabletalk/pkg/types"
)

// DefaultMaxTurns bounds the number of logical exchanges retained.
const DefaultMaxTurns = 10

// Session is the bounded conversation log plus derived context for one
// conversation. It is not safe for concurrent use: the caller must
// serialize turns against a single Session (one worker per session).
type Session struct {
	maxTurns int
	log      []types.ConversationTurn
	context  types.SessionContext
}

// ContextUpdate carries the per-turn values to fold into the session
// context. Nil/zero fields leave the corresponding context field untouched;
// QueryText is always recorded.
type ContextUpdate struct {
	QueryText     string
	ResultSummary string
	Topic         types.Topic
	EntityFilter  string
	Metric        types.Metric
}

// NewSession creates a session bounded to maxTurns logical exchanges.
// Values < 1 fall back to DefaultMaxTurns.
func NewSession(maxTurns int) *Session {
	if maxTurns < 1 {
		maxTurns = DefaultMaxTurns
	}
	return &Session{maxTurns: maxTurns}
}

// Append adds a turn to the conversation log, assigning an ID and timestamp
// when absent, and truncates the log to the most recent 2*maxTurns entries
// (each exchange contributes one user and one assistant turn).
func (s *Session) Append(turn types.ConversationTurn) {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	s.log = append(s.log, turn)
	if max := s.maxTurns * 2; len(s.log) > max {
		// Drop oldest first; copy so the backing array does not pin
		// evicted turns.
		kept := make([]types.ConversationTurn, max)
		copy(kept, s.log[len(s.log)-max:])
		s.log = kept
	}
}

// UpdateContext overwrites context fields for which a new non-zero value is
// supplied and always appends the query text to the recent-query list,
// capped at maxTurns entries (FIFO).
func (s *Session) UpdateContext(u ContextUpdate) {
	if u.Topic != "" && u.Topic != types.TopicUnknown {
		s.context.LastTopic = u.Topic
	}
	if u.EntityFilter != "" {
		s.context.LastEntityFilter = u.EntityFilter
	}
	if u.Metric != types.MetricNone {
		s.context.LastMetric = u.Metric
	}
	if u.ResultSummary != "" {
		s.context.LastResultSummary = u.ResultSummary
	}
	if u.QueryText != "" {
		s.context.LastQuery = u.QueryText
		// Case-insensitive dedup: a repeated query moves to the newest slot
		// instead of appearing twice.
		lowered := strings.ToLower(u.QueryText)
		for i, q := range s.context.RecentQueries {
			if strings.ToLower(q) == lowered {
				s.context.RecentQueries = append(s.context.RecentQueries[:i], s.context.RecentQueries[i+1:]...)
				break
			}
		}
		s.context.RecentQueries = append(s.context.RecentQueries, u.QueryText)
		if len(s.context.RecentQueries) > s.maxTurns {
			kept := make([]string, s.maxTurns)
			copy(kept, s.context.RecentQueries[len(s.context.RecentQueries)-s.maxTurns:])
			s.context.RecentQueries = kept
		}
	}
}

// Context returns the current session context by value. The recent-query
// slice is copied so callers cannot mutate session state through it.
func (s *Session) Context() types.SessionContext {
	ctx := s.context
	ctx.RecentQueries = append([]string(nil), s.context.RecentQueries...)
	return ctx
}

// Log returns a copy of the conversation log, oldest first.
func (s *Session) Log() []types.ConversationTurn {
	return append([]types.ConversationTurn(nil), s.log...)
}

// Len returns the number of turns currently retained.
func (s *Session) Len() int {
	return len(s.log)
}

// Clear resets the log and derived context, keeping the configured bound.
func (s *Session) Clear() {
	s.log = nil
	s.context = types.SessionContext{}
}

// FormattedHistory renders the retained log as "role: text" lines for
// inclusion in generative prompts.
func (s *Session) FormattedHistory() string {
	var b strings.Builder
	for i, turn := range s.log {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
	}
	return b.String()
}
