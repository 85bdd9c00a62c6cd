// Package rerank scores (query, candidate) pairs with a cross-encoder model
// served over HTTP (text-embeddings-inference style /rerank endpoint). The
// client is initialized once per process and pair scores are cached, since
// cross-encoder calls are the expensive part of the rerank strategy.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/logging"
)

// Scorer scores candidates for relevance to a query. Scores are model-native
// relevance: higher is more relevant. The returned slice is index-aligned
// with candidates.
type Scorer interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// Config configures the cross-encoder client
type Config struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	CacheSize int
}

// CrossEncoder is a lazily-initialized HTTP cross-encoder client
type CrossEncoder struct {
	config Config

	initOnce sync.Once
	initErr  error

	httpClient *http.Client
	cache      *lru.Cache[string, float64]
}

// NewCrossEncoder creates a cross-encoder scorer. Initialization of the HTTP
// client and score cache is deferred to first use and happens exactly once,
// so concurrent first callers do not race duplicate setups.
func NewCrossEncoder(cfg Config) *CrossEncoder {
	return &CrossEncoder{config: cfg}
}

func (c *CrossEncoder) init() error {
	c.initOnce.Do(func() {
		if c.config.BaseURL == "" {
			c.initErr = errors.NewConfigError(
				"reranker base URL is required for the rerank strategy", "reranker.base_url")
			return
		}

		timeout := c.config.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}

		cacheSize := c.config.CacheSize
		if cacheSize <= 0 {
			cacheSize = 512
		}

		cache, err := lru.New[string, float64](cacheSize)
		if err != nil {
			c.initErr = err
			return
		}

		c.httpClient = &http.Client{Timeout: timeout}
		c.cache = cache

		logging.GetLogger().Debugw("cross-encoder initialized",
			"base_url", c.config.BaseURL, "model", c.config.Model)
	})

	return c.initErr
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
	Model string   `json:"model,omitempty"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score scores all candidates against the query, serving cached pairs from
// memory and batching the rest into one rerank call
func (c *CrossEncoder) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	scores := make([]float64, len(candidates))
	missing := make([]int, 0, len(candidates))
	missingTexts := make([]string, 0, len(candidates))

	for i, candidate := range candidates {
		if score, ok := c.cache.Get(pairKey(query, candidate)); ok {
			scores[i] = score
		} else {
			missing = append(missing, i)
			missingTexts = append(missingTexts, candidate)
		}
	}

	if len(missing) == 0 {
		return scores, nil
	}

	results, err := c.call(ctx, query, missingTexts)
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		if result.Index < 0 || result.Index >= len(missing) {
			return nil, errors.Newf(errors.ErrTypeRetrieval,
				"reranker returned out-of-range index %d", result.Index)
		}

		position := missing[result.Index]
		scores[position] = result.Score
		c.cache.Add(pairKey(query, candidates[position]), result.Score)
	}

	return scores, nil
}

func (c *CrossEncoder) call(ctx context.Context, query string, texts []string) ([]rerankResult, error) {
	reqBody, err := json.Marshal(rerankRequest{
		Query: query,
		Texts: texts,
		Model: c.config.Model,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeRetrieval, "failed to marshal rerank request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/rerank", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeRetrieval, "failed to create rerank request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeRetrieval, "rerank request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeRetrieval, "failed to read rerank response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeRetrieval,
			"rerank request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var results []rerankResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeRetrieval, "failed to parse rerank response")
	}

	return results, nil
}

func pairKey(query, candidate string) string {
	return fmt.Sprintf("%d:%s\x00%s", len(query), query, candidate)
}
