// Package catalog talks to the external metadata catalog that holds table,
// column, query, and glossary records. The catalog is treated as a remote,
// possibly slow, possibly unreliable service.
package catalog

import "context"

// Column is a column name/description pair as reported by the catalog
type Column struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExampleQuery is a curated query attached to a table in the catalog
type ExampleQuery struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Statement   string `json:"statement"`
}

// GlossaryTerm is a business-glossary term attached to a table
type GlossaryTerm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Definition  string `json:"definition"`
}

// Source exposes the catalog read operations the document builder needs.
// ExampleQueries and GlossaryTerms are optional enrichment: implementations
// may return empty slices, and callers must tolerate errors from them.
type Source interface {
	ListIdentifiers(ctx context.Context) ([]string, error)
	TableName(ctx context.Context, id string) (string, error)
	TableDescription(ctx context.Context, id string) (string, error)
	Columns(ctx context.Context, id string) ([]Column, error)
	ExampleQueries(ctx context.Context, id string) ([]ExampleQuery, error)
	GlossaryTerms(ctx context.Context, id string) ([]GlossaryTerm, error)
}
