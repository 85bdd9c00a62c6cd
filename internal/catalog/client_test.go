package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscout/queryscout/internal/errors"
)

// newCatalogServer serves canned GraphQL responses keyed by a substring of
// the incoming query
func newCatalogServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/graphql", r.URL.Path)

		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		for key, data := range responses {
			if strings.Contains(req.Query, key) {
				fmt.Fprintf(w, `{"data": %s}`, data)
				return
			}
		}

		t.Fatalf("unexpected query: %s", req.Query)
	}))
}

func TestListIdentifiers(t *testing.T) {
	server := newCatalogServer(t, map[string]string{
		"search(input:": `{"search": {"total": 2, "searchResults": [
			{"entity": {"urn": "urn:orders"}},
			{"entity": {"urn": "urn:users"}}
		]}}`,
	})
	defer server.Close()

	client, err := NewClient(ClientConfig{ServerURL: server.URL})
	require.NoError(t, err)

	ids, err := client.ListIdentifiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:orders", "urn:users"}, ids)
}

func TestTableNamePrefersProperties(t *testing.T) {
	server := newCatalogServer(t, map[string]string{
		"dataset(urn:": `{"dataset": {
			"name": "raw_orders_v2",
			"properties": {"name": "orders", "description": "Order records"}
		}}`,
	})
	defer server.Close()

	client, err := NewClient(ClientConfig{ServerURL: server.URL})
	require.NoError(t, err)

	name, err := client.TableName(context.Background(), "urn:orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", name)
}

func TestTableDescriptionPrefersEditable(t *testing.T) {
	server := newCatalogServer(t, map[string]string{
		"dataset(urn:": `{"dataset": {
			"name": "orders",
			"properties": {"description": "ingested description"},
			"editableProperties": {"description": "curated description"}
		}}`,
	})
	defer server.Close()

	client, err := NewClient(ClientConfig{ServerURL: server.URL})
	require.NoError(t, err)

	desc, err := client.TableDescription(context.Background(), "urn:orders")
	require.NoError(t, err)
	assert.Equal(t, "curated description", desc)
}

func TestColumns(t *testing.T) {
	server := newCatalogServer(t, map[string]string{
		"dataset(urn:": `{"dataset": {
			"name": "orders",
			"schemaMetadata": {"fields": [
				{"fieldPath": "order_id", "description": "unique id"},
				{"fieldPath": "user_id", "description": "customer id"}
			]}
		}}`,
	})
	defer server.Close()

	client, err := NewClient(ClientConfig{ServerURL: server.URL})
	require.NoError(t, err)

	columns, err := client.Columns(context.Background(), "urn:orders")
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "order_id", Description: "unique id"},
		{Name: "user_id", Description: "customer id"},
	}, columns)
}

func TestExampleQueries(t *testing.T) {
	server := newCatalogServer(t, map[string]string{
		"listQueries(input:": `{"listQueries": {"queries": [
			{"properties": {"name": "daily orders", "description": "orders per day",
				"statement": {"value": "SELECT count(*) FROM orders"}}}
		]}}`,
	})
	defer server.Close()

	client, err := NewClient(ClientConfig{ServerURL: server.URL})
	require.NoError(t, err)

	queries, err := client.ExampleQueries(context.Background(), "urn:orders")
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "SELECT count(*) FROM orders", queries[0].Statement)
}

func TestGlossaryTerms(t *testing.T) {
	server := newCatalogServer(t, map[string]string{
		"glossaryTerms": `{"dataset": {"glossaryTerms": {"terms": [
			{"term": {"properties": {"name": "GMV", "description": "gross merchandise value",
				"definition": "total order value before refunds"}}}
		]}}}`,
	})
	defer server.Close()

	client, err := NewClient(ClientConfig{ServerURL: server.URL})
	require.NoError(t, err)

	terms, err := client.GlossaryTerms(context.Background(), "urn:orders")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "GMV", terms[0].Name)
}

func TestGraphQLErrorSurfacesAsCatalogError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"errors": [{"message": "dataset not found"}]}`)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{ServerURL: server.URL})
	require.NoError(t, err)

	_, err = client.TableName(context.Background(), "urn:missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCatalog))
}

func TestNewClientRequiresServerURL(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}
