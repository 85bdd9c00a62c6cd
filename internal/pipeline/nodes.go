package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/llm"
	"github.com/queryscout/queryscout/internal/logging"
	"github.com/queryscout/queryscout/internal/prompt"
	"github.com/queryscout/queryscout/internal/retrieval"
)

// Node names
const (
	NodeTableInfo         = "GET_TABLE_INFO"
	NodeProfileExtraction = "PROFILE_EXTRACTION"
	NodeQueryRefiner      = "QUERY_REFINER"
	NodeContextEnrichment = "CONTEXT_ENRICHMENT"
	NodeQueryMaker        = "QUERY_MAKER"
)

// questionSeparator joins the original question with the latest rewrite when
// both are handed to the SQL generator
const questionSeparator = "\n\n---\n\n"

// Node is one step in the graph. Run reads prior state fields, appends to the
// message history and/or sets the fields it owns, and returns the whole state.
type Node interface {
	Name() string
	Run(ctx context.Context, state *State) (*State, error)
}

// tableInfoNode retrieves candidate tables for the original question. It is
// the only node that degrades on failure: the retriever already maps search
// faults to an empty result, so an error here is a configuration fault and
// propagates.
type tableInfoNode struct {
	retriever *retrieval.Retriever
}

func (n *tableInfoNode) Name() string { return NodeTableInfo }

func (n *tableInfoNode) Run(ctx context.Context, state *State) (*State, error) {
	result, err := n.retriever.Search(ctx, state.Question(), state.RetrieverName, state.TopN, state.Device)
	if err != nil {
		return nil, err
	}

	state.SearchedTables = result

	if len(result) == 0 {
		logging.GetLogger().Warnw("no tables found for question",
			"run_id", state.RunID, "question", state.Question())
	}

	return state, nil
}

// profileNode classifies the question into a fixed-shape profile via
// JSON-constrained generation. No retries: a malformed response means the
// generation setup is broken, not that the question was hard.
type profileNode struct {
	generator llm.Service
	prompts   *prompt.Loader
}

func (n *profileNode) Name() string { return NodeProfileExtraction }

func (n *profileNode) Run(ctx context.Context, state *State) (*State, error) {
	rendered, err := n.prompts.Render(prompt.ProfileExtraction, map[string]string{
		"Question": state.Question(),
	})
	if err != nil {
		return nil, err
	}

	var profile QuestionProfile
	if err := n.generator.GenerateJSON(ctx, rendered, &profile); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "question profiling failed")
	}

	state.QuestionProfile = &profile

	return state, nil
}

// refinerNode rewrites the question into a precise, self-contained one using
// the retrieved table context. The profile is included when a prior node
// produced one.
type refinerNode struct {
	generator llm.Service
	prompts   *prompt.Loader
}

func (n *refinerNode) Name() string { return NodeQueryRefiner }

func (n *refinerNode) Run(ctx context.Context, state *State) (*State, error) {
	data := map[string]string{
		"Question":       state.Question(),
		"SearchedTables": formatTables(state.SearchedTables),
		"Profile":        "",
	}
	if state.QuestionProfile != nil {
		data["Profile"] = state.QuestionProfile.String()
	}

	rendered, err := n.prompts.Render(prompt.QueryRefiner, data)
	if err != nil {
		return nil, err
	}

	refined, err := n.generator.Generate(ctx, rendered)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "question refinement failed")
	}

	state.AppendAssistant(strings.TrimSpace(refined))

	return state, nil
}

// enrichmentNode sharpens the working question against the profile and the
// retrieved metadata. It reads the immediately preceding assistant message
// when one exists, otherwise the original question.
type enrichmentNode struct {
	generator llm.Service
	prompts   *prompt.Loader
}

func (n *enrichmentNode) Name() string { return NodeContextEnrichment }

func (n *enrichmentNode) Run(ctx context.Context, state *State) (*State, error) {
	question := state.Question()
	if last, ok := state.LastAssistant(); ok {
		question = last
	}

	profileText := "(no profile available)"
	if state.QuestionProfile != nil {
		profileText = state.QuestionProfile.String()
	}

	rendered, err := n.prompts.Render(prompt.ContextEnrichment, map[string]string{
		"Question":       question,
		"Profile":        profileText,
		"SearchedTables": formatTables(state.SearchedTables),
	})
	if err != nil {
		return nil, err
	}

	enriched, err := n.generator.Generate(ctx, rendered)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "question enrichment failed")
	}

	state.AppendAssistant(strings.TrimSpace(enriched))

	return state, nil
}

// queryMakerNode produces the final tagged SQL output. It always sees the
// original question; the latest rewrite, when present, rides along after a
// separator.
type queryMakerNode struct {
	generator llm.Service
	prompts   *prompt.Loader
}

func (n *queryMakerNode) Name() string { return NodeQueryMaker }

func (n *queryMakerNode) Run(ctx context.Context, state *State) (*State, error) {
	question := state.Question()
	if last, ok := state.LastAssistant(); ok {
		question = question + questionSeparator + last
	}

	rendered, err := n.prompts.Render(prompt.QueryMaker, map[string]string{
		"Question":       question,
		"DatabaseEnv":    state.UserDatabaseEnv,
		"SearchedTables": formatTables(state.SearchedTables),
	})
	if err != nil {
		return nil, err
	}

	output, err := n.generator.Generate(ctx, rendered)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "SQL generation failed")
	}

	state.GeneratedQuery = output
	state.AppendAssistant(output)

	return state, nil
}

// formatTables renders a retrieval result as structured prompt text, tables
// in rank order with their columns sorted by name
func formatTables(result retrieval.Result) string {
	if len(result) == 0 {
		return "(no tables found)"
	}

	var sb strings.Builder

	for i, name := range result.TableNames() {
		attrs := result[name]

		if i > 0 {
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, "%s: %s\n", name, attrs["table_description"])

		columns := make([]string, 0, len(attrs))
		for key := range attrs {
			if key == "table_description" || key == "score" || key == "rank" {
				continue
			}
			columns = append(columns, key)
		}
		sort.Strings(columns)

		for _, col := range columns {
			fmt.Fprintf(&sb, "  %s: %s\n", col, attrs[col])
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
