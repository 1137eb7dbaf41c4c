package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidChunkConfig is returned when a chunk window would never advance.
var ErrInvalidChunkConfig = errors.New("invalid chunk config")

// ChunkConfig controls the sliding window used to split a document.
type ChunkConfig struct {
	Size     int
	Overlap  int
	MinChars int
}

// DefaultChunkConfig provides the window used for every ingestion.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:     800,
		Overlap:  100,
		MinChars: 50,
	}
}

// Validate rejects windows that are empty or do not advance.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunkConfig, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidChunkConfig, c.Size, c.Overlap)
	}
	return nil
}

// ChunkText splits text into windows of cfg.Size characters, each starting
// cfg.Size-cfg.Overlap characters after the previous one. Windows are
// trimmed and kept only when longer than cfg.MinChars.
func ChunkText(text string, cfg ChunkConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	step := cfg.Size - cfg.Overlap

	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(chunk) > cfg.MinChars {
			chunks = append(chunks, chunk)
		}
	}

	return chunks, nil
}
