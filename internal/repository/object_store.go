package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jlcilliers/cvchat/internal/storage"
)

// IndexObjectKey is the object holding every index entry.
const IndexObjectKey = "index/index.json"

// objectClient is the subset of storage.S3Client the index needs.
type objectClient interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ObjectIndexStore keeps all index entries in a single JSON object, so one
// PUT replaces chunks and embeddings together.
type ObjectIndexStore struct {
	objects objectClient
	mu      sync.Mutex
}

func NewObjectIndexStore(objects objectClient) *ObjectIndexStore {
	return &ObjectIndexStore{objects: objects}
}

func (s *ObjectIndexStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	bundle, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	value, ok := bundle[key]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *ObjectIndexStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetAll(ctx, map[string][]byte{key: value})
}

// SetAll merges entries into the bundle and writes it back in one PUT.
// Writers in this process are serialized; the object store offers no
// cross-process compare-and-swap.
func (s *ObjectIndexStore) SetAll(ctx context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, err := s.load(ctx)
	if err != nil {
		return err
	}
	for k, v := range entries {
		if !json.Valid(v) {
			return fmt.Errorf("value for %s is not JSON", k)
		}
		bundle[k] = v
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode index bundle: %w", err)
	}
	return s.objects.PutObject(ctx, IndexObjectKey, data, "application/json")
}

func (s *ObjectIndexStore) load(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := s.objects.GetObject(ctx, IndexObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, err
	}

	bundle := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode index bundle: %w", err)
	}
	return bundle, nil
}
