package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jlcilliers/cvchat/internal/domain"
)

// Fixed logical keys of the single document index.
const (
	ChunksKey     = "cv:chunks"
	EmbeddingsKey = "cv:embeddings"
)

// IndexStore is the key-value collaborator holding the document index.
// Get distinguishes an absent key (found == false) from a failed read.
// SetAll writes every entry or none of them.
type IndexStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	SetAll(ctx context.Context, entries map[string][]byte) error
}

// clearedValue marks a key emptied by a later ingestion. The store has no
// delete, and every backend accepts a JSON null.
var clearedValue = []byte("null")

// IndexRepository encodes the document index onto an IndexStore.
type IndexRepository struct {
	store IndexStore
}

func NewIndexRepository(store IndexStore) *IndexRepository {
	return &IndexRepository{store: store}
}

// LoadChunks returns the stored chunks, or nil when nothing was ingested yet.
func (r *IndexRepository) LoadChunks(ctx context.Context) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	found, err := r.load(ctx, ChunksKey, &chunks)
	if err != nil || !found {
		return nil, err
	}
	return chunks, nil
}

// LoadEmbeddings returns the stored embeddings and whether the key exists.
func (r *IndexRepository) LoadEmbeddings(ctx context.Context) ([]domain.Embedding, bool, error) {
	var embeddings []domain.Embedding
	found, err := r.load(ctx, EmbeddingsKey, &embeddings)
	if err != nil || !found {
		return nil, found, err
	}
	return embeddings, true, nil
}

// ReplaceChunks overwrites the chunk collection and clears any embeddings
// left by an earlier semantic ingestion, in one SetAll.
func (r *IndexRepository) ReplaceChunks(ctx context.Context, chunks []domain.Chunk) error {
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	entries := map[string][]byte{
		ChunksKey:     data,
		EmbeddingsKey: clearedValue,
	}
	if err := r.store.SetAll(ctx, entries); err != nil {
		return domain.NewStoreError("failed to write index", err)
	}
	return nil
}

// ReplaceIndex overwrites chunks and embeddings together.
func (r *IndexRepository) ReplaceIndex(ctx context.Context, chunks []domain.Chunk, embeddings []domain.Embedding) error {
	chunkData, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	embeddingData, err := json.Marshal(embeddings)
	if err != nil {
		return fmt.Errorf("failed to encode embeddings: %w", err)
	}

	entries := map[string][]byte{
		ChunksKey:     chunkData,
		EmbeddingsKey: embeddingData,
	}
	if err := r.store.SetAll(ctx, entries); err != nil {
		return domain.NewStoreError("failed to write index", err)
	}
	return nil
}

func (r *IndexRepository) load(ctx context.Context, key string, dst any) (bool, error) {
	data, found, err := r.store.Get(ctx, key)
	if err != nil {
		return false, domain.NewStoreError(fmt.Sprintf("failed to read %s", key), err)
	}
	if !found || len(data) == 0 || bytes.Equal(data, clearedValue) {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s (%v): %w", key, err, domain.ErrIndexCorrupt)
	}
	return true, nil
}
