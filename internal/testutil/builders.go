package testutil

import (
	"github.com/queryscout/queryscout/internal/catalog"
	"github.com/queryscout/queryscout/internal/metadata"
)

// DocumentOption is a functional option for configuring test documents
type DocumentOption func(*metadata.Document)

// WithDescription sets the table description
func WithDescription(desc string) DocumentOption {
	return func(d *metadata.Document) {
		d.TableDescription = desc
	}
}

// WithColumn appends a column
func WithColumn(name, desc string) DocumentOption {
	return func(d *metadata.Document) {
		d.Columns = append(d.Columns, catalog.Column{Name: name, Description: desc})
	}
}

// WithExampleQuery appends an example query
func WithExampleQuery(name, desc, statement string) DocumentOption {
	return func(d *metadata.Document) {
		d.ExampleQueries = append(d.ExampleQueries, catalog.ExampleQuery{
			Name:        name,
			Description: desc,
			Statement:   statement,
		})
	}
}

// WithGlossaryTerm appends a glossary term
func WithGlossaryTerm(name, desc, definition string) DocumentOption {
	return func(d *metadata.Document) {
		d.GlossaryTerms = append(d.GlossaryTerms, catalog.GlossaryTerm{
			Name:        name,
			Description: desc,
			Definition:  definition,
		})
	}
}

// NewTestDocument creates a metadata document with sensible defaults
func NewTestDocument(tableName string, opts ...DocumentOption) *metadata.Document {
	doc := &metadata.Document{
		TableName:        tableName,
		TableDescription: "Test table " + tableName,
	}

	for _, opt := range opts {
		opt(doc)
	}

	return doc
}

// OrdersFixture is a ready-made catalog fixture resembling a small commerce
// schema, handy for retrieval and pipeline tests.
func OrdersFixture() TableFixture {
	return TableFixture{
		Name:        "orders",
		Description: "Order records",
		Columns: []catalog.Column{
			{Name: "order_id", Description: "unique id"},
			{Name: "user_id", Description: "customer id"},
		},
	}
}

// UsersFixture is a companion fixture to OrdersFixture
func UsersFixture() TableFixture {
	return TableFixture{
		Name:        "users",
		Description: "Registered customers",
		Columns: []catalog.Column{
			{Name: "user_id", Description: "unique id"},
			{Name: "email", Description: "contact address"},
		},
	}
}
