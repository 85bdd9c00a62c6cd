package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscout/queryscout/internal/errors"
)

// newRerankServer scores each text by its length, which gives tests a
// predictable, order-independent scoring function
func newRerankServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		require.Equal(t, "/rerank", r.URL.Path)

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		results := make([]rerankResult, len(req.Texts))
		for i, text := range req.Texts {
			results[i] = rerankResult{Index: i, Score: float64(len(text))}
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(results))
	}))
}

func TestScore(t *testing.T) {
	var calls atomic.Int32

	server := newRerankServer(t, &calls)
	defer server.Close()

	encoder := NewCrossEncoder(Config{BaseURL: server.URL})

	scores, err := encoder.Score(context.Background(), "question", []string{"aa", "bbbb", "c"})
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4, 1}, scores)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScoreUsesCache(t *testing.T) {
	var calls atomic.Int32

	server := newRerankServer(t, &calls)
	defer server.Close()

	encoder := NewCrossEncoder(Config{BaseURL: server.URL})

	first, err := encoder.Score(context.Background(), "question", []string{"aa", "bbbb"})
	require.NoError(t, err)

	second, err := encoder.Score(context.Background(), "question", []string{"aa", "bbbb"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScorePartialCacheHit(t *testing.T) {
	var calls atomic.Int32

	server := newRerankServer(t, &calls)
	defer server.Close()

	encoder := NewCrossEncoder(Config{BaseURL: server.URL})

	_, err := encoder.Score(context.Background(), "question", []string{"aa"})
	require.NoError(t, err)

	scores, err := encoder.Score(context.Background(), "question", []string{"aa", "bbbb"})
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4}, scores)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScoreDistinguishesQueries(t *testing.T) {
	var calls atomic.Int32

	server := newRerankServer(t, &calls)
	defer server.Close()

	encoder := NewCrossEncoder(Config{BaseURL: server.URL})

	_, err := encoder.Score(context.Background(), "first question", []string{"aa"})
	require.NoError(t, err)

	_, err = encoder.Score(context.Background(), "second question", []string{"aa"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestScoreMissingBaseURL(t *testing.T) {
	encoder := NewCrossEncoder(Config{})

	_, err := encoder.Score(context.Background(), "question", []string{"aa"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestScoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	encoder := NewCrossEncoder(Config{BaseURL: server.URL})

	_, err := encoder.Score(context.Background(), "question", []string{"aa"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeRetrieval))
}

func TestScoreOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"index": 7, "score": 0.5}]`)
	}))
	defer server.Close()

	encoder := NewCrossEncoder(Config{BaseURL: server.URL})

	_, err := encoder.Score(context.Background(), "question", []string{"aa"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeRetrieval))
}

func TestPairKeyUnambiguous(t *testing.T) {
	assert.NotEqual(t, pairKey("ab", "c"), pairKey("a", "bc"))
	assert.NotEqual(t, pairKey("a", "b"), pairKey("b", "a"))
}
