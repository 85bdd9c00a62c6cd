package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedProvider wraps a Provider with an LRU cache keyed by input text.
// Query texts repeat across pipeline runs; document texts do not, so the
// cache is sized for queries.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// NewCachedProvider wraps the given provider with a cache of the given size
func NewCachedProvider(inner Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = 256
	}

	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}

	return &CachedProvider{
		inner: inner,
		cache: cache,
	}, nil
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := p.cache.Get(text); ok {
		return vector, nil
	}

	vector, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	p.cache.Add(text, vector)

	return vector, nil
}

func (p *CachedProvider) ModelID() string {
	return p.inner.ModelID()
}
