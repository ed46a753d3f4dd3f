package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"docrag/config"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/llm"
	"docrag/internal/adapter/loader"
	"docrag/internal/adapter/memstore"
	"docrag/internal/adapter/metrics"
	"docrag/internal/adapter/retriever"
	"docrag/internal/adapter/store"
	"docrag/internal/adapter/upstream"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// services holds everything a command needs, built once per process.
type services struct {
	log      zerolog.Logger
	metrics  *metrics.Metrics
	embedder *embedding.Client
	store    port.VectorStore
	catalog  port.DocumentCatalog
	ingest   *usecase.IngestUseCase
	retrieve *usecase.RetrieveUseCase
	answer   *usecase.AnswerUseCase
}

func (s *services) Close() error {
	return s.store.Close()
}

// buildServices wires the configured providers, store and use cases.
// Relative paths in cfg are resolved against root.
func buildServices(ctx context.Context, cfg *config.Config, root string) (*services, error) {
	log, err := logger.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	opts := upstream.Options{Observer: m, Logger: log}

	emb, err := embedding.FromConfig(ctx, cfg.Embedding, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	gen, err := llm.FromConfig(ctx, cfg.Generation, usecase.FallbackAnswer, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	info := store.NewCollectionInfo(cfg.Store.Collection, emb.Provider(), emb.ModelName(), emb.Dimension(), domain.Metric(cfg.Store.Metric))
	vs, catalog, err := openStore(cfg.Store, config.ResolvePath(root, cfg.Store.Path), info, log)
	if err != nil {
		return nil, err
	}
	m.WatchStore(vs)

	splitter, err := chunker.NewRecursiveSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		vs.Close()
		return nil, err
	}

	ingest := usecase.NewIngestUseCase(loader.NewRegistry(), splitter, emb, vs, catalog, usecase.IngestOptions{
		ArchiveDir:       config.ResolvePath(root, cfg.Ingest.ArchiveDir),
		MaxDocumentBytes: cfg.Ingest.MaxDocumentBytes,
		Observer:         m,
		Logger:           log,
	})

	var ret port.Retriever = retriever.NewSemanticRetriever(vs, emb)
	if cfg.Retrieve.CacheSize > 0 {
		ret = cache.NewCachedRetriever(ret, vs, cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL))
	}
	retrieve := usecase.NewRetrieveUseCase(ret, vs, usecase.RetrieveOptions{
		DefaultTopK:      cfg.Retrieve.DefaultTopK,
		MaxTopK:          cfg.Retrieve.MaxTopK,
		MaxQuestionChars: cfg.Embedding.MaxInputChars,
		MinScore:         cfg.Retrieve.MinScore,
	})
	answer := usecase.NewAnswerUseCase(retrieve, gen, usecase.AnswerOptions{
		MaxContextChars: cfg.Generation.MaxContextChars,
		PreviewChars:    cfg.Retrieve.PreviewChars,
		Observer:        m,
		Logger:          log,
	})

	log.Debug().
		Str("embedding", emb.Provider()+"/"+emb.ModelName()).
		Str("generation", gen.ModelName()).
		Str("store", cfg.Store.Backend).
		Str("collection", vs.Info().Name).
		Msg("services ready")

	return &services{
		log:      log,
		metrics:  m,
		embedder: emb,
		store:    vs,
		catalog:  catalog,
		ingest:   ingest,
		retrieve: retrieve,
		answer:   answer,
	}, nil
}

func openStore(sc config.StoreConfig, path string, info domain.CollectionInfo, log zerolog.Logger) (port.VectorStore, port.DocumentCatalog, error) {
	log = logger.Component(log, "store")
	switch sc.Backend {
	case "bolt":
		s, err := store.OpenBoltVectorStore(path, info, log)
		if err != nil {
			return nil, nil, storeError(err, path)
		}
		return s, s, nil
	case "chromem":
		dir := filepath.Join(filepath.Dir(path), "chromem")
		s, err := store.OpenChromemStore(dir, info, log)
		if err != nil {
			return nil, nil, storeError(err, dir)
		}
		return s, s, nil
	case "memory":
		s := memstore.NewMemoryStore(info)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

func storeError(err error, path string) error {
	if errors.Is(err, domain.ErrStoreLocked) {
		return fmt.Errorf("%w (is another docrag process using %s?)", err, path)
	}
	return fmt.Errorf("failed to open vector store: %w", err)
}
