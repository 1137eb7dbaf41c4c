package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/telemetry"
)

// MinDocumentChars is the smallest trimmed document worth indexing. Shorter
// text almost always means the extraction failed.
const MinDocumentChars = 100

// IngestionConfig tunes the ingestion pipeline.
type IngestionConfig struct {
	Mode         RetrievalMode
	Chunk        ChunkConfig
	EmbedTimeout time.Duration
	// EmbedConcurrency bounds parallel embedding calls; 1 embeds sequentially.
	EmbedConcurrency int
}

// DefaultIngestionConfig returns a lexical pipeline with the default window.
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		Mode:             ModeLexical,
		Chunk:            DefaultChunkConfig(),
		EmbedTimeout:     DefaultEmbedTimeout,
		EmbedConcurrency: 1,
	}
}

// IngestionService turns extracted document text into the stored index.
// Ingestions in one process are serialized.
type IngestionService struct {
	index  *IndexRepository
	client EmbeddingClient
	cfg    IngestionConfig
	mu     sync.Mutex
}

// NewIngestionService creates an ingestion pipeline. client may be nil in
// lexical mode.
func NewIngestionService(index *IndexRepository, client EmbeddingClient, cfg IngestionConfig) (*IngestionService, error) {
	if err := cfg.Chunk.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeLexical
	}
	if cfg.Mode == ModeSemantic && client == nil {
		return nil, domain.NewDomainError(domain.ErrCodeNotConfigured, "semantic ingestion requires an embedding client")
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 1
	}
	return &IngestionService{index: index, client: client, cfg: cfg}, nil
}

// Mode reports the retrieval strategy this pipeline indexes for.
func (s *IngestionService) Mode() RetrievalMode {
	return s.cfg.Mode
}

// Ingest chunks rawText and replaces the stored index with the result.
// Nothing is written unless every step succeeds.
func (s *IngestionService) Ingest(ctx context.Context, rawText string) (*domain.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingest(ctx, rawText)
}

// IngestIfEmpty ingests rawText only while no index is stored. It returns a
// nil result when an index already exists, including one written by an
// Ingest that raced with the caller's earlier status check.
func (s *IngestionService) IngestIfEmpty(ctx context.Context, rawText string) (*domain.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	if status.Indexed {
		return nil, nil
	}
	return s.ingest(ctx, rawText)
}

func (s *IngestionService) ingest(ctx context.Context, rawText string) (*domain.IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		Mode:      string(s.cfg.Mode),
		Operation: "ingest",
	})
	defer span.End()

	if err := validateDocumentText(rawText); err != nil {
		return nil, err
	}

	texts, err := ChunkText(rawText, s.cfg.Chunk)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.NewChunk(i, text)
	}
	if len(chunks) == 0 {
		span.SetError(domain.ErrNoChunks)
		return nil, domain.ErrNoChunks
	}
	span.SetData("chunks", len(chunks))

	switch s.cfg.Mode {
	case ModeSemantic:
		embeddings, err := s.embedChunks(ctx, chunks)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		if err := s.index.ReplaceIndex(ctx, chunks, embeddings); err != nil {
			span.SetError(err)
			return nil, err
		}
	default:
		if err := s.index.ReplaceChunks(ctx, chunks); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	result := &domain.IngestResult{
		Chunks: len(chunks),
		Tokens: EstimateTokens(rawText),
	}
	log.Printf("ingest: indexed %d chunks (~%d tokens, mode %s)", result.Chunks, result.Tokens, s.cfg.Mode)
	return result, nil
}

// Status describes the index currently held by the store.
func (s *IngestionService) Status(ctx context.Context) (*domain.IndexStatus, error) {
	chunks, err := s.index.LoadChunks(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.IndexStatus{
		Mode:    string(s.cfg.Mode),
		Indexed: len(chunks) > 0,
		Chunks:  len(chunks),
	}, nil
}

// embedChunks embeds every chunk and returns the vectors in chunk order.
// The first failure cancels the outstanding calls.
func (s *IngestionService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Embedding, error) {
	embeddings := make([]domain.Embedding, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := embedOne(gctx, s.client, chunks[i].Text, s.cfg.EmbedTimeout)
			if err != nil {
				return err
			}
			embeddings[i] = domain.Embedding{ID: chunks[i].ID, Embedding: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkDimensions(embeddings); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// EstimateTokens approximates the token count as one token per four
// characters, rounded up.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

func validateDocumentText(text string) error {
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return domain.ErrMalformedText
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinDocumentChars {
		return domain.ErrDocumentTooShort
	}
	return nil
}
