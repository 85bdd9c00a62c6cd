// Package vectorstore persists metadata documents and their embedding vectors
// in a DuckDB file and serves similarity searches over them. The index is
// read-mostly: concurrent searches against an open store are safe, and the
// only mutating path is the build.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/queryscout/queryscout/internal/embedding"
	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/logging"
	"github.com/queryscout/queryscout/internal/metadata"
)

const schemaVersion = "1"

// ScoredDocument is one similarity-search hit. Score is cosine similarity
// against the query vector; higher is closer.
type ScoredDocument struct {
	TableName string
	Content   string
	Score     float64
}

// Store is an open vector index backed by a DuckDB file
type Store struct {
	db       *sql.DB
	location string
	modelID  string
}

// Open opens an existing index at location and validates that it was built
// with the expected embedding model. Validation failures come back as
// ErrTypeIndex so callers can distinguish "rebuildable" from real faults.
func Open(location, modelID string) (*Store, error) {
	if location == "" {
		return nil, errors.NewConfigError("index location is required", "index.location")
	}

	if _, err := os.Stat(location); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeIndex, "index not found at %s", location)
	}

	db, err := openDB(location)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, location: location, modelID: modelID}

	if err := store.validate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Build creates a fresh index at location from the given documents, replacing
// any previous index. An empty document list yields a valid empty index.
func Build(ctx context.Context, location, modelID string, docs []*metadata.Document, embedder embedding.Provider) (*Store, error) {
	if location == "" {
		return nil, errors.NewConfigError("index location is required", "index.location")
	}

	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to create index directory")
	}

	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to replace existing index")
	}

	db, err := openDB(location)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, location: location, modelID: modelID}

	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	for _, doc := range docs {
		content := doc.Serialize()

		vector, err := embedder.Embed(ctx, content)
		if err != nil {
			db.Close()
			return nil, errors.Wrapf(err, errors.ErrTypeIndex,
				"failed to embed document for table %s", doc.TableName)
		}

		if err := store.insert(ctx, doc.TableName, content, vector); err != nil {
			db.Close()
			return nil, err
		}
	}

	logging.GetLogger().Infow("built vector index",
		"location", location, "documents", len(docs), "model", modelID)

	return store, nil
}

func openDB(location string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", location)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to open index database")
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to ping index database")
	}

	return db, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_meta (
		key VARCHAR PRIMARY KEY,
		value VARCHAR NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id VARCHAR PRIMARY KEY,
		table_name VARCHAR NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT current_timestamp
	);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, errors.ErrTypeIndex, "failed to create index schema")
	}

	for key, value := range map[string]string{
		"schema_version":  schemaVersion,
		"embedding_model": s.modelID,
	} {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return errors.Wrap(err, errors.ErrTypeIndex, "failed to write index metadata")
		}
	}

	return nil
}

// validate checks schema version and embedding model tag. Mixing vectors from
// different models silently produces meaningless similarity, so a model-tag
// mismatch invalidates the whole index.
func (s *Store) validate() error {
	version, err := s.metaValue("schema_version")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeIndex, "index schema is missing or unreadable")
	}

	if version != schemaVersion {
		return errors.Newf(errors.ErrTypeIndex,
			"index schema version mismatch: have %s, want %s", version, schemaVersion)
	}

	model, err := s.metaValue("embedding_model")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeIndex, "index embedding model tag is missing")
	}

	if model != s.modelID {
		return errors.Newf(errors.ErrTypeIndex,
			"index was built with embedding model %s, configured model is %s", model, s.modelID)
	}

	return nil
}

func (s *Store) metaValue(key string) (string, error) {
	var value string

	err := s.db.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", err
	}

	return value, nil
}

func (s *Store) insert(ctx context.Context, tableName, content string, vector []float32) error {
	embeddingJSON, err := json.Marshal(vector)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeIndex, "failed to marshal embedding")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, table_name, content, embedding) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), tableName, content, string(embeddingJSON))
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeIndex,
			"failed to store document for table %s", tableName)
	}

	return nil
}

// SimilaritySearch returns up to k documents ordered by cosine similarity to
// the query vector, best match first
func (s *Store) SimilaritySearch(ctx context.Context, queryVector []float32, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		return []ScoredDocument{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT table_name, content, embedding FROM documents`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to read index documents")
	}
	defer rows.Close()

	var scored []ScoredDocument

	for rows.Next() {
		var tableName, content, embeddingJSON string
		if err := rows.Scan(&tableName, &content, &embeddingJSON); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to scan index row")
		}

		var vector []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &vector); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeIndex,
				"corrupt embedding for table %s", tableName)
		}

		scored = append(scored, ScoredDocument{
			TableName: tableName,
			Content:   content,
			Score:     cosineSimilarity(queryVector, vector),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to iterate index rows")
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	return scored, nil
}

// Count returns the number of indexed documents
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeIndex, "failed to count index documents")
	}

	return count, nil
}

// ListTableNames returns the indexed table names in insertion-independent
// sorted order
func (s *Store) ListTableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name FROM documents ORDER BY table_name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to list index tables")
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeIndex, "failed to scan table name")
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Location returns the index location string
func (s *Store) Location() string {
	return s.location
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
