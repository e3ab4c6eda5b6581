// Package cmd provides the CLI commands for the barberly search
// engine.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barberly/search/internal/config"
	"github.com/barberly/search/internal/docsource"
	"github.com/barberly/search/internal/lexical"
	"github.com/barberly/search/internal/logging"
	"github.com/barberly/search/internal/search"
	"github.com/barberly/search/internal/semantic"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configDir string
	debugMode bool
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barberly",
		Short: "Hybrid search over barbers and services",
		Long: `Barberly search combines a lexical relevance index with semantic
embedding retrieval, domain synonym expansion, contextual boosting,
and optional reranking into a single ranked list.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("barberly version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing barberly.yaml")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSuggestCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if debugMode {
		level = "debug"
	}
	logging.Setup(logging.Config{Level: level})
	return cfg, nil
}

// buildEngine wires the document source, freshness manager, semantic
// retriever, and rerank model from config. The returned cleanup
// releases the catalog database handle when one was opened.
func buildEngine(ctx context.Context, cfg *config.Config) (*search.Engine, func(), error) {
	cleanup := func() {}

	var source lexical.DocumentSource
	if cfg.Catalog.DSN != "" {
		src, closeDB, err := docsource.OpenSQLite(cfg.Catalog.DSN)
		if err != nil {
			return nil, nil, err
		}
		source = src
		cleanup = func() { _ = closeDB() }
	} else {
		src, err := docsource.NewFileSource(cfg.Catalog.Path)
		if err != nil {
			return nil, nil, err
		}
		source = src
	}

	fileSrc, _ := source.(*docsource.FileSource)

	mgr, err := lexical.NewManager(source,
		lexical.WithTTL(cfg.Lexical.TTL),
		lexical.WithParams(lexical.Params{
			K1:           cfg.Lexical.K1,
			B:            cfg.Lexical.B,
			IDFFloor:     cfg.Lexical.IDFFloor,
			VariantDecay: cfg.Lexical.VariantDecay,
		}))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// Catalog edits trigger a rebuild ahead of the TTL.
	if cfg.Catalog.Watch && fileSrc != nil {
		if err := fileSrc.Watch(ctx, func() { _ = mgr.Refresh(ctx) }); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	engineCfg := search.EngineConfig{
		Weights: search.FusionWeights{
			Lexical:  cfg.Search.LexicalWeight,
			Semantic: cfg.Search.SemanticWeight,
		},
		RerankWeight:     cfg.Search.RerankWeight,
		RerankWindow:     cfg.Search.RerankWindow,
		MaxExpansions:    cfg.Search.MaxExpansions,
		LocationBoost:    cfg.Search.LocationBoost,
		RoleBoost:        cfg.Search.RoleBoost,
		VariantDecay:     cfg.Lexical.VariantDecay,
		RetrievalTimeout: cfg.Search.RetrievalTimeout,
		RerankTimeout:    cfg.Search.RerankTimeout,
	}

	var opts []search.EngineOption
	if strings.EqualFold(cfg.Embeddings.Provider, "openai") {
		retriever, err := buildRetriever(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, search.WithSemanticRetriever(retriever))
	}
	if cfg.Reranker.Endpoint != "" {
		opts = append(opts, search.WithRerankModel(search.NewHTTPRerankModel(search.HTTPRerankModelConfig{
			Endpoint: cfg.Reranker.Endpoint,
			Model:    cfg.Reranker.Model,
			Timeout:  cfg.Search.RerankTimeout,
		})))
	}

	eng, err := search.NewEngine(mgr, engineCfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

// buildRetriever embeds the current catalog into the vector index.
func buildRetriever(ctx context.Context, cfg *config.Config) (search.SemanticRetriever, error) {
	embedder, err := semantic.NewCachedEmbedder(semantic.NewOpenAIEmbedder(semantic.OpenAIEmbedderConfig{
		APIKey:     cfg.Embeddings.APIKey,
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
	}), cfg.Embeddings.CacheSize)
	if err != nil {
		return nil, err
	}

	retriever, err := semantic.NewVectorRetriever(embedder, semantic.VectorRetrieverConfig{
		Workers: cfg.Embeddings.Workers,
	})
	if err != nil {
		return nil, err
	}

	var source lexical.DocumentSource
	if cfg.Catalog.DSN != "" {
		src, closeDB, err := docsource.OpenSQLite(cfg.Catalog.DSN)
		if err != nil {
			return nil, err
		}
		defer closeDB()
		source = src
	} else {
		src, err := docsource.NewFileSource(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		source = src
	}

	docs, err := source.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog for embedding: %w", err)
	}
	if err := retriever.IndexDocuments(ctx, docs); err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	return retriever, nil
}
