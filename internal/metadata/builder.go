package metadata

import (
	"context"
	"sort"

	"github.com/queryscout/queryscout/internal/catalog"
	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/logging"
)

// Builder produces one Document per usable catalog identifier
type Builder struct {
	source  catalog.Source
	pool    *catalog.FetchPool
	workers int
}

// NewBuilder creates a document builder over the given catalog source.
// workers bounds the fan-out of per-table fetches.
func NewBuilder(source catalog.Source, workers int) *Builder {
	if workers <= 0 {
		workers = 8
	}

	return &Builder{
		source:  source,
		pool:    catalog.NewFetchPool(workers),
		workers: workers,
	}
}

// BuildDocuments fetches metadata for every catalog identifier and assembles
// documents. Identifiers missing a name or description are dropped: incomplete
// catalog entries are not useful retrieval targets. Example queries and
// glossary terms are best-effort enrichment; their failure degrades to the
// section sentinel rather than dropping the table.
func (b *Builder) BuildDocuments(ctx context.Context) ([]*Document, error) {
	logger := logging.GetLogger()

	identifiers, err := b.source.ListIdentifiers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeCatalog, "failed to list catalog identifiers")
	}

	if len(identifiers) == 0 {
		return []*Document{}, nil
	}

	tasks := make([]catalog.Task, 0, len(identifiers))
	for _, id := range identifiers {
		tasks = append(tasks, catalog.Task{
			ID: id,
			Func: func(ctx context.Context) (interface{}, error) {
				return b.buildOne(ctx, id)
			},
		})
	}

	results := b.pool.Execute(ctx, tasks)

	documents := make([]*Document, 0, len(results))

	for _, result := range results {
		if result.Error != nil {
			logger.Warnw("skipping table: metadata fetch failed",
				"identifier", result.ID, "error", result.Error)
			continue
		}

		doc, ok := result.Data.(*Document)
		if !ok || doc == nil {
			continue
		}

		documents = append(documents, doc)
	}

	// Pool completion order is nondeterministic; normalize by table name
	sort.Slice(documents, func(i, j int) bool {
		return documents[i].TableName < documents[j].TableName
	})

	logger.Infow("built metadata documents",
		"identifiers", len(identifiers), "documents", len(documents))

	return documents, nil
}

// buildOne assembles the document for a single identifier. Either the whole
// required part (name, description, columns) succeeds or the table is not
// emitted; a nil document with nil error means the entry was dropped.
func (b *Builder) buildOne(ctx context.Context, id string) (*Document, error) {
	name, err := b.source.TableName(ctx, id)
	if err != nil {
		return nil, err
	}

	description, err := b.source.TableDescription(ctx, id)
	if err != nil {
		return nil, err
	}

	if name == "" || description == "" {
		return nil, nil
	}

	columns, err := b.source.Columns(ctx, id)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		TableName:        name,
		TableDescription: description,
		Columns:          columns,
	}

	logger := logging.GetLogger()

	if queries, err := b.source.ExampleQueries(ctx, id); err != nil {
		logger.Debugw("example queries unavailable", "identifier", id, "error", err)
	} else {
		if len(queries) > MaxExampleQueries {
			queries = queries[:MaxExampleQueries]
		}

		doc.ExampleQueries = queries
	}

	if terms, err := b.source.GlossaryTerms(ctx, id); err != nil {
		logger.Debugw("glossary terms unavailable", "identifier", id, "error", err)
	} else {
		doc.GlossaryTerms = terms
	}

	return doc, nil
}
