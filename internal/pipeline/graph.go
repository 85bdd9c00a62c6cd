package pipeline

import (
	"context"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/llm"
	"github.com/queryscout/queryscout/internal/logging"
	"github.com/queryscout/queryscout/internal/prompt"
	"github.com/queryscout/queryscout/internal/retrieval"
)

// Topology names
const (
	TopologyBasic      = "basic"
	TopologyEnriched   = "enriched"
	TopologySimplified = "simplified"
	TopologyCustom     = "custom"
)

// Deps holds the collaborators nodes are constructed with
type Deps struct {
	Retriever *retrieval.Retriever
	Generator llm.Service
	Prompts   *prompt.Loader
}

// Graph is a fixed, ordered node sequence. Entry is always table retrieval;
// the terminal node is SQL generation unless a custom graph omits it.
type Graph struct {
	topology string
	nodes    []Node
}

// NewGraph builds one of the named fixed topologies
func NewGraph(deps Deps, topology string) (*Graph, error) {
	tableInfo := &tableInfoNode{retriever: deps.Retriever}
	profile := &profileNode{generator: deps.Generator, prompts: deps.Prompts}
	refiner := &refinerNode{generator: deps.Generator, prompts: deps.Prompts}
	enrichment := &enrichmentNode{generator: deps.Generator, prompts: deps.Prompts}
	maker := &queryMakerNode{generator: deps.Generator, prompts: deps.Prompts}

	var nodes []Node

	switch topology {
	case TopologyBasic, "":
		nodes = []Node{tableInfo, refiner, maker}
	case TopologyEnriched:
		nodes = []Node{tableInfo, profile, refiner, enrichment, maker}
	case TopologySimplified:
		nodes = []Node{tableInfo, profile, enrichment, maker}
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unknown pipeline topology: %s", topology).
			WithSuggestion("Valid topologies are basic, enriched, and simplified")
	}

	return &Graph{topology: topology, nodes: nodes}, nil
}

// NewCustomGraph builds a graph from an ordered subset of the optional middle
// nodes. When generate is false the graph ends after retrieval and middle
// steps, returning only the searched tables.
func NewCustomGraph(deps Deps, middle []string, generate bool) (*Graph, error) {
	nodes := []Node{&tableInfoNode{retriever: deps.Retriever}}

	for _, name := range middle {
		switch name {
		case NodeProfileExtraction:
			nodes = append(nodes, &profileNode{generator: deps.Generator, prompts: deps.Prompts})
		case NodeContextEnrichment:
			nodes = append(nodes, &enrichmentNode{generator: deps.Generator, prompts: deps.Prompts})
		default:
			return nil, errors.Newf(errors.ErrTypeConfig,
				"node %s cannot be used in a custom pipeline", name).
				WithSuggestion("Custom pipelines accept PROFILE_EXTRACTION and CONTEXT_ENRICHMENT between retrieval and generation")
		}
	}

	if generate {
		nodes = append(nodes, &queryMakerNode{generator: deps.Generator, prompts: deps.Prompts})
	}

	return &Graph{topology: TopologyCustom, nodes: nodes}, nil
}

// Topology returns the graph's topology name
func (g *Graph) Topology() string {
	return g.topology
}

// Run executes the nodes strictly in order against one state. Node errors are
// not caught: a half-completed run is worse than an explicit abort.
func (g *Graph) Run(ctx context.Context, state *State) (*State, error) {
	logger := logging.GetLogger()

	logger.Infow("starting pipeline run",
		"run_id", state.RunID, "topology", g.topology, "nodes", len(g.nodes))

	for _, node := range g.nodes {
		logger.Debugw("executing node", "run_id", state.RunID, "node", node.Name())

		next, err := node.Run(ctx, state)
		if err != nil {
			logger.Errorw("pipeline node failed",
				"run_id", state.RunID, "node", node.Name(), "error", err)
			return nil, errors.Wrapf(err, errors.GetType(err), "node %s failed", node.Name())
		}

		state = next
	}

	logger.Infow("pipeline run complete",
		"run_id", state.RunID, "tables", len(state.SearchedTables),
		"generated", state.GeneratedQuery != "")

	return state, nil
}
