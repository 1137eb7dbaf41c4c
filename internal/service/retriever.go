package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/telemetry"
)

// RetrievalMode selects the ranking strategy used for the document index.
type RetrievalMode string

const (
	ModeLexical  RetrievalMode = "lexical"
	ModeSemantic RetrievalMode = "semantic"
)

// DefaultTopK is the number of chunks returned when the caller does not ask
// for a specific count.
const DefaultTopK = 5

// Retriever ranks the stored chunks against a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.Chunk, error)
	Mode() RetrievalMode
}

// NewRetriever returns the retriever for mode. Semantic mode requires an
// embedding client.
func NewRetriever(mode RetrievalMode, index *IndexRepository, client EmbeddingClient, embedTimeout time.Duration) (Retriever, error) {
	switch mode {
	case ModeLexical:
		return NewLexicalRetriever(index), nil
	case ModeSemantic:
		if client == nil {
			return nil, domain.NewDomainError(domain.ErrCodeNotConfigured, "semantic retrieval requires an embedding client")
		}
		return NewSemanticRetriever(index, client, embedTimeout), nil
	default:
		return nil, fmt.Errorf("unknown retrieval mode %q", mode)
	}
}

// LexicalRetriever ranks chunks with BM25 over tokenized text. It needs no
// external service.
type LexicalRetriever struct {
	index *IndexRepository
}

func NewLexicalRetriever(index *IndexRepository) *LexicalRetriever {
	return &LexicalRetriever{index: index}
}

func (r *LexicalRetriever) Mode() RetrievalMode {
	return ModeLexical
}

// Retrieve returns up to topK chunks by descending BM25 score. A query with
// no index terms returns the first topK chunks in document order.
func (r *LexicalRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "LexicalRetriever.Retrieve", telemetry.SpanAttributes{
		Mode:      string(ModeLexical),
		Operation: "retrieve",
		TopK:      topK,
	})
	defer span.End()

	chunks, err := r.index.LoadChunks(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(chunks) == 0 {
		return []domain.Chunk{}, nil
	}
	span.SetData("chunks", len(chunks))

	k := clampTopK(topK, len(chunks))
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return leadingChunks(chunks, k), nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	stats := newCorpusStats(texts)

	scores := make([]float64, len(chunks))
	for i := range chunks {
		scores[i] = stats.score(queryTokens, i)
	}

	return rankChunks(chunks, scores, k), nil
}

// SemanticRetriever ranks chunks by cosine similarity between the query
// embedding and each stored chunk embedding.
type SemanticRetriever struct {
	index   *IndexRepository
	client  EmbeddingClient
	timeout time.Duration
}

func NewSemanticRetriever(index *IndexRepository, client EmbeddingClient, embedTimeout time.Duration) *SemanticRetriever {
	return &SemanticRetriever{index: index, client: client, timeout: embedTimeout}
}

func (r *SemanticRetriever) Mode() RetrievalMode {
	return ModeSemantic
}

// Retrieve embeds the query and returns up to topK chunks by descending
// similarity. Embedding failures are returned, never replaced by a local
// score.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "SemanticRetriever.Retrieve", telemetry.SpanAttributes{
		Mode:      string(ModeSemantic),
		Operation: "retrieve",
		TopK:      topK,
	})
	defer span.End()

	chunks, err := r.index.LoadChunks(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(chunks) == 0 {
		return []domain.Chunk{}, nil
	}

	embeddings, found, err := r.index.LoadEmbeddings(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !found || !alignedWith(chunks, embeddings) {
		span.SetError(domain.ErrIndexInconsistent)
		return nil, domain.ErrIndexInconsistent
	}

	k := clampTopK(topK, len(chunks))
	if k == 0 {
		return []domain.Chunk{}, nil
	}
	if strings.TrimSpace(query) == "" {
		return leadingChunks(chunks, k), nil
	}

	queryVec, err := embedOne(ctx, r.client, query, r.timeout)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	scores := make([]float64, len(chunks))
	for i, e := range embeddings {
		if len(e.Embedding) != len(queryVec) {
			err := fmt.Errorf("query has %d dimensions, %s has %d: %w", len(queryVec), e.ID, len(e.Embedding), domain.ErrEmbeddingDimensionMix)
			span.SetError(err)
			return nil, err
		}
		scores[i] = CosineSimilarity(queryVec, e.Embedding)
	}

	return rankChunks(chunks, scores, k), nil
}

func alignedWith(chunks []domain.Chunk, embeddings []domain.Embedding) bool {
	if len(chunks) != len(embeddings) {
		return false
	}
	for i := range chunks {
		if chunks[i].ID != embeddings[i].ID {
			return false
		}
	}
	return true
}

func clampTopK(topK, n int) int {
	if topK < 0 {
		return 0
	}
	if topK > n {
		return n
	}
	return topK
}

func leadingChunks(chunks []domain.Chunk, k int) []domain.Chunk {
	out := make([]domain.Chunk, k)
	copy(out, chunks[:k])
	return out
}

// rankChunks orders chunks by descending score, keeping document order for
// equal scores, and returns the first k.
func rankChunks(chunks []domain.Chunk, scores []float64, k int) []domain.Chunk {
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]domain.Chunk, 0, k)
	for _, i := range order[:k] {
		out = append(out, chunks[i])
	}
	return out
}
