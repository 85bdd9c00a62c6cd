package vectorstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/metadata"
	"github.com/queryscout/queryscout/internal/testutil"
	"github.com/queryscout/queryscout/internal/vectorstore"
)

func testDocs() []*metadata.Document {
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
		),
	}
}

func TestBuildAndOpen(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")
	embedder := testutil.NewFakeEmbedder(8)

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), testDocs(), embedder)
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.Close())

	reopened, err := vectorstore.Open(location, embedder.ModelID())
	require.NoError(t, err)

	defer reopened.Close()

	count, err = reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestOpenMissingIndex(t *testing.T) {
	location := filepath.Join(t.TempDir(), "missing.db")

	_, err := vectorstore.Open(location, "fake/embedder")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeIndex))
}

func TestOpenModelMismatch(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")
	embedder := testutil.NewFakeEmbedder(8)

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), testDocs(), embedder)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = vectorstore.Open(location, "other/model")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeIndex))
}

func TestBuildReplacesExistingIndex(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")
	embedder := testutil.NewFakeEmbedder(8)

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), testDocs(), embedder)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	rebuilt, err := vectorstore.Build(ctx, location, embedder.ModelID(),
		testDocs()[:1], embedder)
	require.NoError(t, err)

	defer rebuilt.Close()

	count, err := rebuilt.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSimilaritySearchOrdering(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")

	docs := testDocs()
	embedder := testutil.NewFakeEmbedder(2)
	embedder.Vectors = map[string][]float32{
		docs[0].Serialize(): {1, 0},
		docs[1].Serialize(): {0.7, 0.7},
		docs[2].Serialize(): {0, 1},
	}

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), docs, embedder)
	require.NoError(t, err)

	defer store.Close()

	hits, err := store.SimilaritySearch(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "orders", hits[0].TableName)
	assert.Equal(t, "users", hits[1].TableName)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSimilaritySearchEmptyIndex(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")
	embedder := testutil.NewFakeEmbedder(4)

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), nil, embedder)
	require.NoError(t, err)

	defer store.Close()

	hits, err := store.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSimilaritySearchZeroK(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")
	embedder := testutil.NewFakeEmbedder(4)

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), testDocs(), embedder)
	require.NoError(t, err)

	defer store.Close()

	hits, err := store.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestListTableNames(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "index.db")
	embedder := testutil.NewFakeEmbedder(4)

	store, err := vectorstore.Build(ctx, location, embedder.ModelID(), testDocs(), embedder)
	require.NoError(t, err)

	defer store.Close()

	names, err := store.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "shipments", "users"}, names)
}
