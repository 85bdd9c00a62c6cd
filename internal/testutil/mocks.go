// Package testutil provides shared mocks and builders for tests.
package testutil

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"

	"github.com/queryscout/queryscout/internal/catalog"
)

// TableFixture is the full catalog record for one test table
type TableFixture struct {
	Name           string
	Description    string
	Columns        []catalog.Column
	ExampleQueries []catalog.ExampleQuery
	GlossaryTerms  []catalog.GlossaryTerm
}

// MockSource implements catalog.Source for testing with error injection
type MockSource struct {
	mu sync.RWMutex

	identifiers []string
	tables      map[string]TableFixture
	errors      map[string]error
	callCounts  map[string]int
}

// SourceOption is a functional option for configuring MockSource
type SourceOption func(*MockSource)

// WithTable registers a table fixture under its identifier
func WithTable(id string, fixture TableFixture) SourceOption {
	return func(m *MockSource) {
		m.identifiers = append(m.identifiers, id)
		m.tables[id] = fixture
	}
}

// WithSourceError sets an error for a specific operation key. Keys are
// "list", "name:<id>", "description:<id>", "columns:<id>", "queries:<id>",
// and "terms:<id>".
func WithSourceError(key string, err error) SourceOption {
	return func(m *MockSource) {
		m.errors[key] = err
	}
}

// NewMockSource creates a mock catalog source with the given options
func NewMockSource(opts ...SourceOption) *MockSource {
	mock := &MockSource{
		tables:     make(map[string]TableFixture),
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

func (m *MockSource) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts[op]++

	return m.errors[op]
}

// CallCount returns how many times the given operation key was invoked
func (m *MockSource) CallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[op]
}

func (m *MockSource) ListIdentifiers(_ context.Context) ([]string, error) {
	if err := m.record("list"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string{}, m.identifiers...), nil
}

func (m *MockSource) TableName(_ context.Context, id string) (string, error) {
	if err := m.record("name:" + id); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tables[id].Name, nil
}

func (m *MockSource) TableDescription(_ context.Context, id string) (string, error) {
	if err := m.record("description:" + id); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tables[id].Description, nil
}

func (m *MockSource) Columns(_ context.Context, id string) ([]catalog.Column, error) {
	if err := m.record("columns:" + id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tables[id].Columns, nil
}

func (m *MockSource) ExampleQueries(_ context.Context, id string) ([]catalog.ExampleQuery, error) {
	if err := m.record("queries:" + id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tables[id].ExampleQueries, nil
}

func (m *MockSource) GlossaryTerms(_ context.Context, id string) ([]catalog.GlossaryTerm, error) {
	if err := m.record("terms:" + id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tables[id].GlossaryTerms, nil
}

// MockGenerator implements llm.Service for testing. Responses are returned
// in order for Generate; JSONResponse feeds GenerateJSON.
type MockGenerator struct {
	mu sync.Mutex

	responses    []string
	jsonResponse func(prompt string, out interface{}) error
	err          error

	Prompts []string
}

// GeneratorOption is a functional option for configuring MockGenerator
type GeneratorOption func(*MockGenerator)

// WithResponses queues text responses returned by Generate in order. The
// last response repeats once the queue is exhausted.
func WithResponses(responses ...string) GeneratorOption {
	return func(m *MockGenerator) {
		m.responses = responses
	}
}

// WithJSONResponse sets the handler GenerateJSON delegates to
func WithJSONResponse(fn func(prompt string, out interface{}) error) GeneratorOption {
	return func(m *MockGenerator) {
		m.jsonResponse = fn
	}
}

// WithGeneratorError makes every call fail with err
func WithGeneratorError(err error) GeneratorOption {
	return func(m *MockGenerator) {
		m.err = err
	}
}

// NewMockGenerator creates a mock generation service with the given options
func NewMockGenerator(opts ...GeneratorOption) *MockGenerator {
	mock := &MockGenerator{}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)

	if m.err != nil {
		return "", m.err
	}

	if len(m.responses) == 0 {
		return "", nil
	}

	response := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}

	return response, nil
}

func (m *MockGenerator) GenerateJSON(_ context.Context, prompt string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)

	if m.err != nil {
		return m.err
	}

	if m.jsonResponse == nil {
		return nil
	}

	return m.jsonResponse(prompt, out)
}

// FakeEmbedder implements embedding.Provider with deterministic vectors
// derived from the input text. Identical texts embed identically; distinct
// texts almost never collide, so similarity ordering is stable across runs.
type FakeEmbedder struct {
	Dim   int
	Model string
	Err   error

	// Vectors pins exact vectors for specific texts, overriding the hashed
	// default. Useful when a test needs controlled similarity ordering.
	Vectors map[string][]float32
}

// NewFakeEmbedder creates a deterministic embedder with the given dimension
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dim: dim, Model: "fake/embedder"}
}

func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	if vector, ok := f.Vectors[text]; ok {
		return vector, nil
	}

	vector := make([]float32, f.Dim)

	for i := range vector {
		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		_ = binary.Write(h, binary.LittleEndian, int64(i))
		vector[i] = float32(h.Sum64()%2000)/1000 - 1
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector, nil
}

func (f *FakeEmbedder) ModelID() string {
	return f.Model
}

// FakeScorer implements rerank.Scorer with fixed per-candidate scores
type FakeScorer struct {
	Scores map[string]float64
	Err    error

	mu    sync.Mutex
	Calls int
}

func (f *FakeScorer) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	scores := make([]float64, len(candidates))
	for i, candidate := range candidates {
		scores[i] = f.Scores[candidate]
	}

	return scores, nil
}
