package vectorstore

import (
	"context"
	"sync"

	"github.com/queryscout/queryscout/internal/embedding"
	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/logging"
	"github.com/queryscout/queryscout/internal/metadata"
)

// DocumentSource supplies the documents a rebuild embeds. In production this
// is metadata.Builder.BuildDocuments.
type DocumentSource func(ctx context.Context) ([]*metadata.Document, error)

// Manager owns the load-or-build lifecycle of one index. The mutex makes
// concurrent first access from multiple callers resolve to a single
// rebuild-and-persist instead of racing duplicates.
type Manager struct {
	location string
	embedder embedding.Provider
	source   DocumentSource

	mu    sync.Mutex
	store *Store
}

// NewManager creates a manager for the index at location
func NewManager(location string, embedder embedding.Provider, source DocumentSource) *Manager {
	return &Manager{
		location: location,
		embedder: embedder,
		source:   source,
	}
}

// Get returns the open index, loading it on first use and rebuilding it from
// source documents when the load fails for an index-shaped reason (missing
// file, schema mismatch, model-tag mismatch). Other load errors propagate
// untouched so unrelated faults are not mistaken for "index missing".
func (m *Manager) Get(ctx context.Context) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return m.store, nil
	}

	store, err := Open(m.location, m.embedder.ModelID())
	if err == nil {
		m.store = store
		return store, nil
	}

	if !errors.IsType(err, errors.ErrTypeIndex) {
		return nil, err
	}

	logging.GetLogger().Infow("vector index unavailable, rebuilding",
		"location", m.location, "reason", err)

	docs, sourceErr := m.source(ctx)
	if sourceErr != nil {
		return nil, errors.Wrap(sourceErr, errors.ErrTypeConfig,
			"index load failed and source documents are unavailable").
			WithSuggestion("Check the catalog server URL and credentials").
			WithSuggestion("Run the index command to build the index explicitly")
	}

	store, err = Build(ctx, m.location, m.embedder.ModelID(), docs, m.embedder)
	if err != nil {
		return nil, err
	}

	m.store = store

	return store, nil
}

// Rebuild forces a fresh build regardless of the current index state
func (m *Manager) Rebuild(ctx context.Context) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		m.store.Close()
		m.store = nil
	}

	docs, err := m.source(ctx)
	if err != nil {
		return nil, err
	}

	store, err := Build(ctx, m.location, m.embedder.ModelID(), docs, m.embedder)
	if err != nil {
		return nil, err
	}

	m.store = store

	return store, nil
}

// Close releases the open index, if any
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil
	}

	err := m.store.Close()
	m.store = nil

	return err
}
