package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// IngestUseCase turns uploaded files into stored vector records.
type IngestUseCase struct {
	loader      port.Loader
	splitter    port.Splitter
	embedder    port.Embedder
	store       port.VectorStore
	catalog     port.DocumentCatalog
	archiveDir  string
	maxDocBytes int64
	observer    Observer
	log         zerolog.Logger

	// writeMu keeps the records, catalog and archive writes of one ingest
	// from interleaving with Clear.
	writeMu sync.Mutex
}

type IngestOptions struct {
	ArchiveDir       string // empty disables archiving
	MaxDocumentBytes int64  // 0 disables the limit
	Observer         Observer
	Logger           zerolog.Logger
}

// NewIngestUseCase creates a new ingest use case. catalog may be nil.
func NewIngestUseCase(
	loader port.Loader,
	splitter port.Splitter,
	embedder port.Embedder,
	store port.VectorStore,
	catalog port.DocumentCatalog,
	opts IngestOptions,
) *IngestUseCase {
	return &IngestUseCase{
		loader:      loader,
		splitter:    splitter,
		embedder:    embedder,
		store:       store,
		catalog:     catalog,
		archiveDir:  opts.ArchiveDir,
		maxDocBytes: opts.MaxDocumentBytes,
		observer:    observerOrNop(opts.Observer),
		log:         opts.Logger.With().Str("component", "ingest").Logger(),
	}
}

type pendingDoc struct {
	upload domain.Upload
	doc    domain.Document
	chunks []domain.Chunk
}

// Ingest loads, splits, embeds and stores every upload. Any invalid upload
// rejects the whole request before the store is touched, and the store is
// written with a single Add.
func (u *IngestUseCase) Ingest(ctx context.Context, uploads []domain.Upload) (*domain.IngestResult, error) {
	if err := u.validate(uploads); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{Files: make([]domain.FileResult, 0, len(uploads))}
	now := time.Now().UTC()

	var pending []pendingDoc
	for _, up := range uploads {
		doc, err := u.loader.Load(up.Filename, up.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", up.Filename, err)
		}
		doc.ID = uuid.NewString()
		doc.IngestedAt = now

		chunks, err := u.splitter.Split(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", up.Filename, err)
		}
		if len(chunks) == 0 {
			u.log.Warn().Str("file", doc.Filename).Msg("no text extracted, skipping")
			result.Files = append(result.Files, domain.FileResult{Filename: doc.Filename, Skipped: true, Reason: "empty"})
			continue
		}
		pending = append(pending, pendingDoc{upload: up, doc: doc, chunks: chunks})
	}

	if len(pending) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted from the uploaded files", domain.ErrEmptyDocument)
	}

	var texts []string
	for _, p := range pending {
		for _, c := range p.chunks {
			texts = append(texts, c.Text)
		}
	}

	vectors, err := u.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	records := make([]domain.VectorRecord, 0, len(texts))
	summaries := make([]domain.DocumentSummary, 0, len(pending))
	for _, p := range pending {
		for _, c := range p.chunks {
			records = append(records, domain.VectorRecord{
				ID:          uuid.NewString(),
				DocID:       p.doc.ID,
				Filename:    p.doc.Filename,
				ChunkIndex:  c.Index,
				TotalChunks: len(p.chunks),
				Text:        c.Text,
				Vector:      vectors[len(records)],
				CreatedAt:   now,
			})
		}
		summaries = append(summaries, domain.DocumentSummary{
			DocID:      p.doc.ID,
			Filename:   p.doc.Filename,
			FileType:   p.doc.FileType,
			Chunks:     len(p.chunks),
			Checksum:   p.doc.Checksum,
			IngestedAt: now,
		})
		result.Files = append(result.Files, domain.FileResult{Filename: p.doc.Filename, DocID: p.doc.ID, Chunks: len(p.chunks)})
		result.FilesProcessed++
		result.ChunksCreated += len(p.chunks)
	}

	u.writeMu.Lock()
	if err := u.store.Add(ctx, records); err != nil {
		u.writeMu.Unlock()
		return nil, fmt.Errorf("failed to store records: %w", err)
	}
	if u.catalog != nil {
		if err := u.catalog.PutDocuments(context.WithoutCancel(ctx), summaries); err != nil {
			u.log.Error().Err(err).Msg("failed to record document catalog")
		}
	}
	for _, p := range pending {
		u.archive(p.upload)
	}
	u.writeMu.Unlock()

	u.observer.ObserveIngest(result.FilesProcessed, result.ChunksCreated)
	u.log.Info().
		Int("files", result.FilesProcessed).
		Int("chunks", result.ChunksCreated).
		Int("skipped", len(uploads)-result.FilesProcessed).
		Msg("ingest complete")

	return result, nil
}

func (u *IngestUseCase) validate(uploads []domain.Upload) error {
	if len(uploads) == 0 {
		return fmt.Errorf("%w: no files uploaded", domain.ErrInvalidInput)
	}
	for _, up := range uploads {
		if strings.TrimSpace(up.Filename) == "" {
			return fmt.Errorf("%w: upload without a filename", domain.ErrInvalidInput)
		}
		if !u.loader.Supports(up.Filename) {
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, up.Filename)
		}
		if u.maxDocBytes > 0 && int64(len(up.Data)) > u.maxDocBytes {
			return fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrInputTooLarge, up.Filename, len(up.Data), u.maxDocBytes)
		}
	}
	return nil
}

// archive keeps a copy of an ingested original. Failures are logged only.
func (u *IngestUseCase) archive(up domain.Upload) {
	if u.archiveDir == "" {
		return
	}
	if err := os.MkdirAll(u.archiveDir, 0755); err != nil {
		u.log.Warn().Err(err).Str("dir", u.archiveDir).Msg("failed to create archive directory")
		return
	}
	name := uuid.NewString() + "-" + filepath.Base(up.Filename)
	if err := os.WriteFile(filepath.Join(u.archiveDir, name), up.Data, 0644); err != nil {
		u.log.Warn().Err(err).Str("file", up.Filename).Msg("failed to archive original")
	}
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	RecordsRemoved int `json:"records_removed"`
	FilesRemoved   int `json:"files_removed"`
}

// Clear empties the collection and deletes archived originals.
func (u *IngestUseCase) Clear(ctx context.Context) (*ClearResult, error) {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	n, err := u.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.store.Reset(ctx); err != nil {
		return nil, err
	}

	res := &ClearResult{RecordsRemoved: n}
	removed, err := u.clearArchive()
	res.FilesRemoved = removed
	if err != nil {
		u.log.Warn().Err(err).Msg("failed to clear archive")
	}

	u.log.Info().Int("records", n).Int("files", removed).Msg("collection cleared")
	return res, nil
}

// clearArchive removes files this use case archived, recognised by their
// uuid prefix. Anything else in the directory is left alone.
func (u *IngestUseCase) clearArchive() (int, error) {
	if u.archiveDir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(u.archiveDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var removed int
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !isArchiveName(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(u.archiveDir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func isArchiveName(name string) bool {
	const idLen = 36
	if len(name) <= idLen || name[idLen] != '-' {
		return false
	}
	_, err := uuid.Parse(name[:idLen])
	return err == nil
}
