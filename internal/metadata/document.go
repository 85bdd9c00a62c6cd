// Package metadata builds and parses the flat text documents that describe
// catalog tables. One document per table; the serialized form is the exact
// text that gets embedded into the vector index, so Serialize and
// ParseDocument must stay inverse operations.
package metadata

import (
	"strings"

	"github.com/queryscout/queryscout/internal/catalog"
	"github.com/queryscout/queryscout/internal/errors"
)

const (
	sectionColumns = "Columns:"
	sectionQueries = "Queries:"
	sectionTerms   = "Terms:"

	noQueriesSentinel = "No queries"
	noTermsSentinel   = "No terms"

	queryDelimiter = "---"

	// MaxExampleQueries caps how many curated queries a document retains
	MaxExampleQueries = 3
)

// Document is the flat per-table metadata record
type Document struct {
	TableName        string
	TableDescription string
	Columns          []catalog.Column
	ExampleQueries   []catalog.ExampleQuery
	GlossaryTerms    []catalog.GlossaryTerm
}

// ColumnMap returns the columns as a name -> description map
func (d *Document) ColumnMap() map[string]string {
	columns := make(map[string]string, len(d.Columns))
	for _, col := range d.Columns {
		columns[col.Name] = col.Description
	}

	return columns
}

// Serialize renders the document into its canonical text form. The first line
// is always "{table_name}: {table_description}"; embedded newlines in any
// field are collapsed so the line-oriented format round-trips.
func (d *Document) Serialize() string {
	var sb strings.Builder

	sb.WriteString(singleLine(d.TableName))
	sb.WriteString(": ")
	sb.WriteString(singleLine(d.TableDescription))
	sb.WriteString("\n")
	sb.WriteString(sectionColumns)
	sb.WriteString("\n")

	for _, col := range d.Columns {
		sb.WriteString(" ")
		sb.WriteString(col.Name)
		sb.WriteString(": ")
		sb.WriteString(singleLine(col.Description))
		sb.WriteString("\n")
	}

	sb.WriteString(sectionQueries)
	sb.WriteString("\n")

	queries := d.ExampleQueries
	if len(queries) > MaxExampleQueries {
		queries = queries[:MaxExampleQueries]
	}

	if len(queries) == 0 {
		sb.WriteString(noQueriesSentinel)
		sb.WriteString("\n")
	} else {
		for i, q := range queries {
			if i > 0 {
				sb.WriteString(queryDelimiter)
				sb.WriteString("\n")
			}

			sb.WriteString("Name: ")
			sb.WriteString(singleLine(q.Name))
			sb.WriteString("\n")
			sb.WriteString("Description: ")
			sb.WriteString(singleLine(q.Description))
			sb.WriteString("\n")
			sb.WriteString("Query: ")
			sb.WriteString(singleLine(q.Statement))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(sectionTerms)
	sb.WriteString("\n")

	if len(d.GlossaryTerms) == 0 {
		sb.WriteString(noTermsSentinel)
		sb.WriteString("\n")
	} else {
		for _, t := range d.GlossaryTerms {
			sb.WriteString("Term: ")
			sb.WriteString(singleLine(t.Name))
			sb.WriteString("\n")
			sb.WriteString("Description: ")
			sb.WriteString(singleLine(t.Description))
			sb.WriteString("\n")
			sb.WriteString("Definition: ")
			sb.WriteString(singleLine(t.Definition))
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// ParseDocument parses serialized document text back into a Document.
// A malformed first line (no "name: description" shape) is an error; the
// section bodies degrade gracefully.
func ParseDocument(text string) (*Document, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return nil, errors.New(errors.ErrTypeValidation, "empty document")
	}

	name, description, found := strings.Cut(lines[0], ": ")
	if !found || strings.TrimSpace(name) == "" {
		return nil, errors.Newf(errors.ErrTypeValidation,
			"malformed document first line: %q", lines[0])
	}

	doc := &Document{
		TableName:        strings.TrimSpace(name),
		TableDescription: strings.TrimSpace(description),
	}

	section := ""

	var currentQuery *catalog.ExampleQuery

	var currentTerm *catalog.GlossaryTerm

	flushQuery := func() {
		if currentQuery != nil {
			doc.ExampleQueries = append(doc.ExampleQueries, *currentQuery)
			currentQuery = nil
		}
	}

	flushTerm := func() {
		if currentTerm != nil {
			doc.GlossaryTerms = append(doc.GlossaryTerms, *currentTerm)
			currentTerm = nil
		}
	}

	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)

		switch line {
		case sectionColumns:
			section = "columns"
			continue
		case sectionQueries:
			flushQuery()

			section = "queries"

			continue
		case sectionTerms:
			flushQuery()
			flushTerm()

			section = "terms"

			continue
		}

		switch section {
		case "columns":
			if colName, colDesc, ok := strings.Cut(line, ": "); ok {
				doc.Columns = append(doc.Columns, catalog.Column{
					Name:        strings.TrimSpace(colName),
					Description: strings.TrimSpace(colDesc),
				})
			}
		case "queries":
			if line == "" || line == noQueriesSentinel {
				continue
			}

			switch {
			case line == queryDelimiter:
				flushQuery()
			case strings.HasPrefix(line, "Name: "):
				flushQuery()

				currentQuery = &catalog.ExampleQuery{Name: strings.TrimPrefix(line, "Name: ")}
			case strings.HasPrefix(line, "Description: "):
				if currentQuery != nil {
					currentQuery.Description = strings.TrimPrefix(line, "Description: ")
				}
			case strings.HasPrefix(line, "Query: "):
				if currentQuery != nil {
					currentQuery.Statement = strings.TrimPrefix(line, "Query: ")
				}
			}
		case "terms":
			if line == "" || line == noTermsSentinel {
				continue
			}

			switch {
			case strings.HasPrefix(line, "Term: "):
				flushTerm()

				currentTerm = &catalog.GlossaryTerm{Name: strings.TrimPrefix(line, "Term: ")}
			case strings.HasPrefix(line, "Description: "):
				if currentTerm != nil {
					currentTerm.Description = strings.TrimPrefix(line, "Description: ")
				}
			case strings.HasPrefix(line, "Definition: "):
				if currentTerm != nil {
					currentTerm.Definition = strings.TrimPrefix(line, "Definition: ")
				}
			}
		}
	}

	flushQuery()
	flushTerm()

	return doc, nil
}

// singleLine collapses embedded newlines so the line-oriented format survives
func singleLine(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}
