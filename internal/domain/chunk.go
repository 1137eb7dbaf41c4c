package domain

import "strconv"

// ChunkIDPrefix prefixes the zero-based position of a chunk in its batch.
const ChunkIDPrefix = "chunk-"

// MetaIndex is the Chunk.Meta key holding the originating chunk position.
const MetaIndex = "index"

// Chunk is a bounded, overlapping window of the indexed document and the
// unit of retrieval. Chunks are replaced wholesale by every ingestion.
type Chunk struct {
	ID   string            `json:"id"`
	Text string            `json:"text"`
	Meta map[string]string `json:"meta"`
}

// NewChunk builds the chunk at position i of an ingestion batch.
func NewChunk(i int, text string) Chunk {
	pos := strconv.Itoa(i)
	return Chunk{
		ID:   ChunkIDPrefix + pos,
		Text: text,
		Meta: map[string]string{MetaIndex: pos},
	}
}

// Embedding is the dense vector of the chunk with the same ID.
type Embedding struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
}

// IngestResult reports the outcome of one ingestion run.
type IngestResult struct {
	Chunks int `json:"chunks"`
	Tokens int `json:"tokens"`
}

// IndexStatus describes the currently stored document index.
type IndexStatus struct {
	Mode    string `json:"mode"`
	Indexed bool   `json:"indexed"`
	Chunks  int    `json:"chunks"`
}
