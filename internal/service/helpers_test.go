package service

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// keywordEmbedder embeds text as the count of each keyword, plus a constant
// component so no vector is all zeros.
type keywordEmbedder struct {
	keywords []string
}

func (e keywordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.keywords)+1)
	for i, k := range e.keywords {
		vec[i] = float32(strings.Count(lower, k))
	}
	vec[len(e.keywords)] = 0.01
	return vec, nil
}

// memoryStore is an in-process IndexStore that can be told to fail.
type memoryStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	writes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.writes++
	s.data[key] = value
	return nil
}

func (s *memoryStore) SetAll(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.writes++
	for k, v := range entries {
		s.data[k] = v
	}
	return nil
}

// fill repeats phrase until exactly n characters are produced.
func fill(phrase string, n int) string {
	return strings.Repeat(phrase, n/len(phrase)+1)[:n]
}

// threeSectionCV is a 2,400 character document whose middle third talks
// about kubernetes.
func threeSectionCV() string {
	return fill("alpha bravo charlie delta echo ", 800) +
		fill("kubernetes cluster operations lead ", 800) +
		fill("zulu yankee xray whiskey victor ", 800)
}
