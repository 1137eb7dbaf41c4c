package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jlcilliers/cvchat/internal/domain"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Reply(ctx context.Context, messages []domain.Message) (*domain.ChatReply, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatReply), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Retrieve(ctx context.Context, query string, topK int) ([]domain.Chunk, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) IngestDocument(ctx context.Context, filename string, data []byte) (*domain.IngestResult, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestResult), args.Error(1)
}

func (m *MockUploadService) DownloadURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockIndexStatusService struct {
	mock.Mock
}

func (m *MockIndexStatusService) Status(ctx context.Context) (*domain.IndexStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexStatus), args.Error(1)
}
