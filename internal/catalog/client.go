package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/queryscout/queryscout/internal/errors"
)

// Client is an HTTP implementation of Source against a catalog service that
// exposes a GraphQL endpoint (DataHub-style GMS server).
type Client struct {
	serverURL  string
	token      string
	httpClient *http.Client
}

// ClientConfig configures the catalog client
type ClientConfig struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
}

// NewClient creates a catalog client. The server URL is required.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, errors.NewConfigError("catalog server URL is required", "catalog.server_url")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		serverURL: cfg.ServerURL,
		token:     cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

func (c *Client) execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCatalog, "failed to marshal catalog request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/graphql", bytes.NewBuffer(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCatalog, "failed to create catalog request")
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCatalog, "catalog request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCatalog, "failed to read catalog response")
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrTypeCatalog,
			"catalog request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return errors.Wrap(err, errors.ErrTypeCatalog, "failed to parse catalog response")
	}

	if len(gqlResp.Errors) > 0 {
		return errors.Newf(errors.ErrTypeCatalog, "catalog error: %s", gqlResp.Errors[0].Message)
	}

	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return errors.Wrap(err, errors.ErrTypeCatalog, "failed to decode catalog data")
	}

	return nil
}

const listIdentifiersQuery = `
query listDatasets($start: Int!, $count: Int!) {
  search(input: {type: DATASET, query: "*", start: $start, count: $count}) {
    total
    searchResults { entity { urn } }
  }
}`

// ListIdentifiers pages through all dataset identifiers in the catalog
func (c *Client) ListIdentifiers(ctx context.Context) ([]string, error) {
	const pageSize = 100

	var identifiers []string

	for start := 0; ; start += pageSize {
		var data struct {
			Search struct {
				Total         int `json:"total"`
				SearchResults []struct {
					Entity struct {
						URN string `json:"urn"`
					} `json:"entity"`
				} `json:"searchResults"`
			} `json:"search"`
		}

		err := c.execute(ctx, listIdentifiersQuery, map[string]interface{}{
			"start": start,
			"count": pageSize,
		}, &data)
		if err != nil {
			return nil, err
		}

		for _, result := range data.Search.SearchResults {
			identifiers = append(identifiers, result.Entity.URN)
		}

		if start+pageSize >= data.Search.Total {
			break
		}
	}

	return identifiers, nil
}

const datasetQuery = `
query dataset($urn: String!) {
  dataset(urn: $urn) {
    name
    properties { name description }
    editableProperties { description }
    schemaMetadata {
      fields { fieldPath description }
    }
  }
}`

type datasetPayload struct {
	Dataset struct {
		Name       string `json:"name"`
		Properties struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"properties"`
		EditableProperties struct {
			Description string `json:"description"`
		} `json:"editableProperties"`
		SchemaMetadata struct {
			Fields []struct {
				FieldPath   string `json:"fieldPath"`
				Description string `json:"description"`
			} `json:"fields"`
		} `json:"schemaMetadata"`
	} `json:"dataset"`
}

func (c *Client) fetchDataset(ctx context.Context, id string) (*datasetPayload, error) {
	var data datasetPayload

	err := c.execute(ctx, datasetQuery, map[string]interface{}{"urn": id}, &data)
	if err != nil {
		return nil, err
	}

	return &data, nil
}

// TableName returns the display name for a dataset identifier
func (c *Client) TableName(ctx context.Context, id string) (string, error) {
	data, err := c.fetchDataset(ctx, id)
	if err != nil {
		return "", err
	}

	if data.Dataset.Properties.Name != "" {
		return data.Dataset.Properties.Name, nil
	}

	return data.Dataset.Name, nil
}

// TableDescription returns the description for a dataset identifier,
// preferring the editable (curated) description over the ingested one
func (c *Client) TableDescription(ctx context.Context, id string) (string, error) {
	data, err := c.fetchDataset(ctx, id)
	if err != nil {
		return "", err
	}

	if data.Dataset.EditableProperties.Description != "" {
		return data.Dataset.EditableProperties.Description, nil
	}

	return data.Dataset.Properties.Description, nil
}

// Columns returns the column names and descriptions for a dataset identifier
func (c *Client) Columns(ctx context.Context, id string) ([]Column, error) {
	data, err := c.fetchDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := make([]Column, 0, len(data.Dataset.SchemaMetadata.Fields))
	for _, field := range data.Dataset.SchemaMetadata.Fields {
		columns = append(columns, Column{
			Name:        field.FieldPath,
			Description: field.Description,
		})
	}

	return columns, nil
}

const exampleQueriesQuery = `
query listQueries($urn: String!) {
  listQueries(input: {datasetUrn: $urn, start: 0, count: 10}) {
    queries {
      properties {
        name
        description
        statement { value }
      }
    }
  }
}`

// ExampleQueries returns curated queries attached to a dataset identifier
func (c *Client) ExampleQueries(ctx context.Context, id string) ([]ExampleQuery, error) {
	var data struct {
		ListQueries struct {
			Queries []struct {
				Properties struct {
					Name        string `json:"name"`
					Description string `json:"description"`
					Statement   struct {
						Value string `json:"value"`
					} `json:"statement"`
				} `json:"properties"`
			} `json:"queries"`
		} `json:"listQueries"`
	}

	err := c.execute(ctx, exampleQueriesQuery, map[string]interface{}{"urn": id}, &data)
	if err != nil {
		return nil, err
	}

	queries := make([]ExampleQuery, 0, len(data.ListQueries.Queries))
	for _, q := range data.ListQueries.Queries {
		queries = append(queries, ExampleQuery{
			Name:        q.Properties.Name,
			Description: q.Properties.Description,
			Statement:   q.Properties.Statement.Value,
		})
	}

	return queries, nil
}

const glossaryTermsQuery = `
query dataset($urn: String!) {
  dataset(urn: $urn) {
    glossaryTerms {
      terms {
        term {
          properties { name description definition }
        }
      }
    }
  }
}`

// GlossaryTerms returns glossary terms attached to a dataset identifier
func (c *Client) GlossaryTerms(ctx context.Context, id string) ([]GlossaryTerm, error) {
	var data struct {
		Dataset struct {
			GlossaryTerms struct {
				Terms []struct {
					Term struct {
						Properties struct {
							Name        string `json:"name"`
							Description string `json:"description"`
							Definition  string `json:"definition"`
						} `json:"properties"`
					} `json:"term"`
				} `json:"terms"`
			} `json:"glossaryTerms"`
		} `json:"dataset"`
	}

	err := c.execute(ctx, glossaryTermsQuery, map[string]interface{}{"urn": id}, &data)
	if err != nil {
		return nil, err
	}

	terms := make([]GlossaryTerm, 0, len(data.Dataset.GlossaryTerms.Terms))
	for _, t := range data.Dataset.GlossaryTerms.Terms {
		terms = append(terms, GlossaryTerm{
			Name:        t.Term.Properties.Name,
			Description: t.Term.Properties.Description,
			Definition:  t.Term.Properties.Definition,
		})
	}

	return terms, nil
}

var _ Source = (*Client)(nil)

// String implements fmt.Stringer for logging
func (c *Client) String() string {
	return fmt.Sprintf("catalog(%s)", c.serverURL)
}
