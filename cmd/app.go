package cmd

import (
	"context"
	"time"

	"github.com/queryscout/queryscout/internal/catalog"
	"github.com/queryscout/queryscout/internal/config"
	"github.com/queryscout/queryscout/internal/embedding"
	"github.com/queryscout/queryscout/internal/llm"
	"github.com/queryscout/queryscout/internal/metadata"
	"github.com/queryscout/queryscout/internal/pipeline"
	"github.com/queryscout/queryscout/internal/prompt"
	"github.com/queryscout/queryscout/internal/rerank"
	"github.com/queryscout/queryscout/internal/retrieval"
	"github.com/queryscout/queryscout/internal/vectorstore"
)

const embedCacheSize = 1024

// app holds the wired collaborators shared by the commands
type app struct {
	cfg       *config.Config
	manager   *vectorstore.Manager
	retriever *retrieval.Retriever
	generator llm.Service
	prompts   *prompt.Loader
}

// newApp wires the component graph from configuration. The catalog client is
// constructed lazily inside the document source so commands that only read an
// existing index work without catalog credentials.
func newApp(cfg *config.Config) (*app, error) {
	embedder, err := embedding.NewProvider(embedding.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		Timeout:  parseDuration(cfg.Embedding.Timeout),
	})
	if err != nil {
		return nil, err
	}

	cached, err := embedding.NewCachedProvider(embedder, embedCacheSize)
	if err != nil {
		return nil, err
	}

	manager := vectorstore.NewManager(cfg.Index.Location, cached, documentSource(cfg))

	scorer := rerank.NewCrossEncoder(rerank.Config{
		BaseURL:   cfg.Reranker.BaseURL,
		Model:     cfg.Reranker.Model,
		Timeout:   parseDuration(cfg.Reranker.Timeout),
		CacheSize: cfg.Reranker.CacheSize,
	})

	generator, err := llm.NewClient(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  parseDuration(cfg.LLM.Timeout),
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		manager:   manager,
		retriever: retrieval.NewRetriever(manager, cached, scorer),
		generator: generator,
		prompts:   prompt.NewLoader(cfg.Prompt.TemplateDir),
	}, nil
}

func (a *app) pipelineDeps() pipeline.Deps {
	return pipeline.Deps{
		Retriever: a.retriever,
		Generator: a.generator,
		Prompts:   a.prompts,
	}
}

func (a *app) Close() error {
	return a.manager.Close()
}

// documentSource defers catalog client construction until a build actually
// needs the catalog
func documentSource(cfg *config.Config) vectorstore.DocumentSource {
	return func(ctx context.Context) ([]*metadata.Document, error) {
		client, err := catalog.NewClient(catalog.ClientConfig{
			ServerURL: cfg.Catalog.ServerURL,
			Token:     cfg.Catalog.Token,
			Timeout:   parseDuration(cfg.Catalog.Timeout),
		})
		if err != nil {
			return nil, err
		}

		builder := metadata.NewBuilder(client, cfg.Catalog.FetchWorkers)

		return builder.BuildDocuments(ctx)
	}
}

// parseDuration trusts config validation and falls back to zero, letting each
// component apply its own default
func parseDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}

	return d
}
