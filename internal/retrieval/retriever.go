// Package retrieval turns a question into a ranked set of candidate tables.
// Two strategies: plain vector similarity, or similarity followed by
// cross-encoder re-ranking.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/queryscout/queryscout/internal/embedding"
	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/logging"
	"github.com/queryscout/queryscout/internal/metadata"
	"github.com/queryscout/queryscout/internal/rerank"
	"github.com/queryscout/queryscout/internal/vectorstore"
)

// Strategy names. The Korean aliases are kept for compatibility with the
// selector values the original UI exposed.
const (
	StrategyBasic  = "basic"
	StrategyRerank = "rerank"

	aliasBasicKo    = "기본"
	aliasRerankName = "Reranker"
	aliasRerankKo   = "재순위"
)

// rerankOverfetch is how many times top_n candidates the basic search
// supplies to the cross-encoder
const rerankOverfetch = 3

// Result maps table name to a flat attribute dictionary. Keys other than
// "table_description", "score", and "rank" are column names; this flattening
// feeds directly into prompt-template mappings and must not change shape.
type Result map[string]map[string]string

// TableNames returns the result's table names in rank order
func (r Result) TableNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		ri, _ := strconv.Atoi(r[names[i]]["rank"])
		rj, _ := strconv.Atoi(r[names[j]]["rank"])

		return ri < rj
	})

	return names
}

// Retriever wraps the vector index with a pluggable search strategy
type Retriever struct {
	manager  *vectorstore.Manager
	embedder embedding.Provider
	scorer   rerank.Scorer
}

// NewRetriever creates a retriever. scorer may be nil when the rerank
// strategy is never requested.
func NewRetriever(manager *vectorstore.Manager, embedder embedding.Provider, scorer rerank.Scorer) *Retriever {
	return &Retriever{
		manager:  manager,
		embedder: embedder,
		scorer:   scorer,
	}
}

// normalizeStrategy maps aliases onto canonical strategy names and falls back
// to basic for anything unknown. This is a user-facing selector; it warns,
// never fails.
func normalizeStrategy(name string) string {
	switch name {
	case StrategyBasic, aliasBasicKo, "":
		return StrategyBasic
	case StrategyRerank, aliasRerankName, aliasRerankKo:
		return StrategyRerank
	default:
		logging.GetLogger().Warnw("unknown retrieval strategy, falling back to basic",
			"strategy", name)
		return StrategyBasic
	}
}

// Search retrieves the top_n tables most relevant to the query. Failures
// during the search degrade to an empty Result: "no tables found" is a valid
// state for downstream generation. The exception is a configuration-level
// fault (index unloadable and no source documents reachable), which is a
// real error the caller must see.
func (r *Retriever) Search(ctx context.Context, query, strategyName string, topN int, device string) (Result, error) {
	logger := logging.GetLogger()
	strategy := normalizeStrategy(strategyName)

	logger.Debugw("searching tables",
		"strategy", strategy, "top_n", topN, "device", device)

	scored, err := r.fetchCandidates(ctx, query, strategy, topN)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeConfig) {
			return nil, err
		}

		logger.Warnw("table search failed, returning empty result",
			"strategy", strategy, "query", query, "error", err)

		return Result{}, nil
	}

	result := Result{}
	rank := 0

	for _, hit := range scored {
		doc, parseErr := metadata.ParseDocument(hit.Content)
		if parseErr != nil {
			logger.Warnw("skipping unparseable document",
				"table", hit.TableName, "error", parseErr)
			continue
		}

		rank++

		attrs := map[string]string{
			"table_description": doc.TableDescription,
			"score":             fmt.Sprintf("%.4f", hit.Score),
			"rank":              fmt.Sprintf("%d", rank),
		}
		for _, col := range doc.Columns {
			attrs[col.Name] = col.Description
		}

		result[doc.TableName] = attrs
	}

	return result, nil
}

func (r *Retriever) fetchCandidates(ctx context.Context, query, strategy string, topN int) ([]vectorstore.ScoredDocument, error) {
	store, err := r.manager.Get(ctx)
	if err != nil {
		return nil, err
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeRetrieval, "failed to embed query")
	}

	if strategy == StrategyBasic {
		return store.SimilaritySearch(ctx, queryVector, topN)
	}

	return r.rerankCandidates(ctx, store, query, queryVector, topN)
}

// rerankCandidates over-fetches from the similarity index and re-scores the
// candidates with the cross-encoder. The surfaced score becomes the model's
// relevance, not the cosine similarity.
func (r *Retriever) rerankCandidates(ctx context.Context, store *vectorstore.Store, query string, queryVector []float32, topN int) ([]vectorstore.ScoredDocument, error) {
	if r.scorer == nil {
		return nil, errors.New(errors.ErrTypeConfig, "rerank strategy requested but no reranker is configured")
	}

	candidates, err := store.SimilaritySearch(ctx, queryVector, topN*rerankOverfetch)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = candidate.Content
	}

	scores, err := r.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, err
	}

	if len(scores) != len(candidates) {
		return nil, errors.Newf(errors.ErrTypeRetrieval,
			"reranker returned %d scores for %d candidates", len(scores), len(candidates))
	}

	for i := range candidates {
		candidates[i].Score = scores[i]
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	return candidates, nil
}
