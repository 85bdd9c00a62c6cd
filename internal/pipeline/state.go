// Package pipeline sequences retrieval, profiling, enrichment, and SQL
// generation into a fixed node graph driven by a single shared state.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/queryscout/queryscout/internal/retrieval"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the state's ordered conversation history
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QuestionProfile classifies a question along the axes that matter for SQL
// shape. Built once by the profile-extraction node, read-only afterward.
type QuestionProfile struct {
	IsTimeseries          bool   `json:"is_timeseries"`
	IsAggregation         bool   `json:"is_aggregation"`
	HasFilter             bool   `json:"has_filter"`
	IsGrouped             bool   `json:"is_grouped"`
	HasRanking            bool   `json:"has_ranking"`
	HasTemporalComparison bool   `json:"has_temporal_comparison"`
	IntentType            string `json:"intent_type"`
}

// String renders the profile as a flattened key/value listing for prompts
func (p *QuestionProfile) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "is_timeseries: %t\n", p.IsTimeseries)
	fmt.Fprintf(&sb, "is_aggregation: %t\n", p.IsAggregation)
	fmt.Fprintf(&sb, "has_filter: %t\n", p.HasFilter)
	fmt.Fprintf(&sb, "is_grouped: %t\n", p.IsGrouped)
	fmt.Fprintf(&sb, "has_ranking: %t\n", p.HasRanking)
	fmt.Fprintf(&sb, "has_temporal_comparison: %t\n", p.HasTemporalComparison)
	fmt.Fprintf(&sb, "intent_type: %s", p.IntentType)

	return sb.String()
}

// State is the single mutable object threaded through the node graph.
// Messages is append-only and Messages[0] always holds the original user
// question; nodes extend the slice and set the fields they own, nothing else.
type State struct {
	RunID           string           `json:"run_id"`
	Messages        []Message        `json:"messages"`
	UserDatabaseEnv string           `json:"user_database_env"`
	SearchedTables  retrieval.Result `json:"searched_tables,omitempty"`
	QuestionProfile *QuestionProfile `json:"question_profile,omitempty"`
	GeneratedQuery  string           `json:"generated_query,omitempty"`

	// Execution parameters passed through unchanged
	RetrieverName string `json:"retriever_name"`
	TopN          int    `json:"top_n"`
	Device        string `json:"device"`
}

// NewState seeds a run with the original question as Messages[0]
func NewState(question, databaseEnv, retrieverName string, topN int, device string) *State {
	return &State{
		RunID: uuid.New().String(),
		Messages: []Message{
			{Role: RoleUser, Content: question},
		},
		UserDatabaseEnv: databaseEnv,
		RetrieverName:   retrieverName,
		TopN:            topN,
		Device:          device,
	}
}

// Question returns the original user question
func (s *State) Question() string {
	if len(s.Messages) == 0 {
		return ""
	}

	return s.Messages[0].Content
}

// AppendAssistant records a node's output in the conversation history
func (s *State) AppendAssistant(content string) {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content})
}

// LastAssistant returns the most recent assistant message, if any
func (s *State) LastAssistant() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content, true
		}
	}

	return "", false
}
