package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlcilliers/cvchat/internal/domain"
)

func TestInit_WithoutDSNIsNoop(t *testing.T) {
	flush, err := Init(Config{})
	require.NoError(t, err)
	assert.NotPanics(t, flush)
}

func TestDropCallerErrors(t *testing.T) {
	event := &sentry.Event{Message: "boom"}

	tests := []struct {
		name    string
		err     error
		dropped bool
	}{
		{"validation", fmt.Errorf("upload: %w", domain.ErrUnsupportedFileType), true},
		{"unauthorized", domain.ErrInvalidAdminToken, true},
		{"not found", domain.ErrNoArchivedCV, true},
		{"store", domain.NewStoreError("failed to read index", errors.New("io")), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dropCallerErrors(event, &sentry.EventHint{OriginalException: tt.err})
			if tt.dropped {
				assert.Nil(t, got)
			} else {
				assert.Same(t, event, got)
			}
		})
	}

	assert.Same(t, event, dropCallerErrors(event, nil))
}

func TestCodeOrInternal(t *testing.T) {
	assert.Equal(t, domain.ErrCodeEmbedding, codeOrInternal(domain.NewEmbeddingError("embed", errors.New("timeout"))))
	assert.Equal(t, domain.ErrCodeInternalError, codeOrInternal(errors.New("boom")))
}

func TestSpan_NilSafe(t *testing.T) {
	span := &Span{}
	assert.NotPanics(t, func() {
		span.SetData("chunks", 3)
		span.SetError(errors.New("boom"))
		span.End()
	})
}

func TestStartSpan_RecordsAttributes(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "LexicalRetriever.Retrieve", SpanAttributes{Mode: "lexical", TopK: 3})
	defer span.End()

	require.NotNil(t, ctx)
	assert.Equal(t, "lexical", span.inner.Tags["retrieval_mode"])
	assert.Equal(t, "3", span.inner.Tags["top_k"])
}

func TestSpan_SetErrorCallerError(t *testing.T) {
	_, span := StartSpan(context.Background(), "IngestionService.Ingest", SpanAttributes{})
	defer span.End()

	span.SetError(domain.ErrDocumentTooShort)
	assert.Equal(t, sentry.SpanStatusInvalidArgument, span.inner.Status)
}
