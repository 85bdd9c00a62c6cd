package retrieval_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/metadata"
	"github.com/queryscout/queryscout/internal/retrieval"
	"github.com/queryscout/queryscout/internal/testutil"
	"github.com/queryscout/queryscout/internal/vectorstore"
)

const testQuery = "how many orders were placed"

func fixtureDocs() []*metadata.Document {
	return []*metadata.Document{
		testutil.NewTestDocument("orders",
			testutil.WithDescription("Order records"),
			testutil.WithColumn("order_id", "unique id"),
			testutil.WithColumn("user_id", "customer id"),
		),
		testutil.NewTestDocument("users",
			testutil.WithDescription("Registered customers"),
			testutil.WithColumn("user_id", "unique id"),
		),
		testutil.NewTestDocument("shipments",
			testutil.WithDescription("Outbound shipments"),
			testutil.WithColumn("shipment_id", "unique id"),
		),
	}
}

// fixtureEmbedder pins vectors so the query is closest to orders, then users,
// then shipments
func fixtureEmbedder(docs []*metadata.Document) *testutil.FakeEmbedder {
	embedder := testutil.NewFakeEmbedder(2)
	embedder.Vectors = map[string][]float32{
		testQuery:           {1, 0},
		docs[0].Serialize(): {1, 0},
		docs[1].Serialize(): {0.8, 0.6},
		docs[2].Serialize(): {0, 1},
	}

	return embedder
}

func newTestRetriever(t *testing.T, scorer *testutil.FakeScorer) (*retrieval.Retriever, *testutil.FakeEmbedder) {
	t.Helper()

	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")

	docs := fixtureDocs()
	embedder := fixtureEmbedder(docs)

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), docs, embedder)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	manager := vectorstore.NewManager(location, embedder, func(context.Context) ([]*metadata.Document, error) {
		return docs, nil
	})
	t.Cleanup(func() { manager.Close() })

	if scorer == nil {
		return retrieval.NewRetriever(manager, embedder, nil), embedder
	}

	return retrieval.NewRetriever(manager, embedder, scorer), embedder
}

func TestSearchBasicTopOne(t *testing.T) {
	retriever, _ := newTestRetriever(t, nil)

	result, err := retriever.Search(context.Background(), testQuery, "basic", 1, "cpu")
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, map[string]string{
		"table_description": "Order records",
		"order_id":          "unique id",
		"user_id":           "customer id",
		"score":             "1.0000",
		"rank":              "1",
	}, result["orders"])
}

func TestSearchBasicRankOrder(t *testing.T) {
	retriever, _ := newTestRetriever(t, nil)

	result, err := retriever.Search(context.Background(), testQuery, "basic", 3, "cpu")
	require.NoError(t, err)

	require.Len(t, result, 3)
	assert.Equal(t, []string{"orders", "users", "shipments"}, result.TableNames())
	assert.Equal(t, "1", result["orders"]["rank"])
	assert.Equal(t, "2", result["users"]["rank"])
	assert.Equal(t, "3", result["shipments"]["rank"])
}

func TestSearchDeterministic(t *testing.T) {
	retriever, _ := newTestRetriever(t, nil)

	first, err := retriever.Search(context.Background(), testQuery, "basic", 3, "cpu")
	require.NoError(t, err)

	second, err := retriever.Search(context.Background(), testQuery, "basic", 3, "cpu")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSearchUnknownStrategyFallsBackToBasic(t *testing.T) {
	retriever, _ := newTestRetriever(t, nil)

	known, err := retriever.Search(context.Background(), testQuery, "basic", 2, "cpu")
	require.NoError(t, err)

	unknown, err := retriever.Search(context.Background(), testQuery, "does-not-exist", 2, "cpu")
	require.NoError(t, err)

	assert.Equal(t, known, unknown)
}

func TestSearchStrategyAliases(t *testing.T) {
	scorer := &testutil.FakeScorer{Scores: map[string]float64{}}
	retriever, _ := newTestRetriever(t, scorer)

	for _, alias := range []string{"rerank", "Reranker", "재순위"} {
		scorer.Calls = 0

		_, err := retriever.Search(context.Background(), testQuery, alias, 2, "cpu")
		require.NoError(t, err)
		assert.Equal(t, 1, scorer.Calls, "alias %q should hit the reranker", alias)
	}

	scorer.Calls = 0

	_, err := retriever.Search(context.Background(), testQuery, "기본", 2, "cpu")
	require.NoError(t, err)
	assert.Equal(t, 0, scorer.Calls)
}

func TestSearchRerankReordersCandidates(t *testing.T) {
	docs := fixtureDocs()
	scorer := &testutil.FakeScorer{Scores: map[string]float64{
		docs[0].Serialize(): 0.1,
		docs[1].Serialize(): 0.9,
		docs[2].Serialize(): 0.5,
	}}

	retriever, _ := newTestRetriever(t, scorer)

	result, err := retriever.Search(context.Background(), testQuery, "rerank", 2, "cpu")
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, []string{"users", "shipments"}, result.TableNames())
	assert.Equal(t, "0.9000", result["users"]["score"])
}

func TestSearchRerankWithoutScorer(t *testing.T) {
	retriever, _ := newTestRetriever(t, nil)

	_, err := retriever.Search(context.Background(), testQuery, "rerank", 2, "cpu")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestSearchEmbedFailureDegradesToEmpty(t *testing.T) {
	retriever, embedder := newTestRetriever(t, nil)

	// Open the index first so the failure hits only the query embedding
	warm, err := retriever.Search(context.Background(), testQuery, "basic", 1, "cpu")
	require.NoError(t, err)
	require.NotEmpty(t, warm)

	embedder.Err = errors.New(errors.ErrTypeRetrieval, "embedding provider down")

	result, err := retriever.Search(context.Background(), testQuery, "basic", 1, "cpu")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestSearchUnavailableIndexPropagatesConfigError(t *testing.T) {
	location := filepath.Join(t.TempDir(), "missing.db")
	embedder := testutil.NewFakeEmbedder(2)

	manager := vectorstore.NewManager(location, embedder, func(context.Context) ([]*metadata.Document, error) {
		return nil, errors.New(errors.ErrTypeCatalog, "catalog unreachable")
	})
	t.Cleanup(func() { manager.Close() })

	retriever := retrieval.NewRetriever(manager, embedder, nil)

	_, err := retriever.Search(context.Background(), testQuery, "basic", 1, "cpu")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestResultTableNamesNumericRankOrder(t *testing.T) {
	// Rank "10" must sort after "2", not between "1" and "2"
	result := retrieval.Result{
		"alpha": {"rank": "2"},
		"beta":  {"rank": "10"},
		"gamma": {"rank": "1"},
	}

	assert.Equal(t, []string{"gamma", "alpha", "beta"}, result.TableNames())
}
