package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/telemetry"
)

// MaxUploadBytes is the largest CV accepted for ingestion.
const MaxUploadBytes = 10 * 1024 * 1024

// TextExtractor turns an uploaded binary document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Ingester indexes extracted document text.
type Ingester interface {
	Ingest(ctx context.Context, rawText string) (*domain.IngestResult, error)
}

// ArchivedDocument is the most recently ingested source document.
type ArchivedDocument struct {
	Filename string
	PDF      []byte
	Text     string
}

// DocumentArchive keeps a copy of the last ingested document so the index
// can be rebuilt and the original downloaded.
type DocumentArchive interface {
	Save(ctx context.Context, doc ArchivedDocument) error
	LoadText(ctx context.Context) (string, bool, error)
	DownloadURL(ctx context.Context) (string, error)
}

// UploadService validates an uploaded CV, extracts its text and ingests it.
type UploadService struct {
	extractor TextExtractor
	ingester  Ingester
	archive   DocumentArchive
}

// NewUploadService creates an UploadService. archive may be nil.
func NewUploadService(extractor TextExtractor, ingester Ingester, archive DocumentArchive) *UploadService {
	return &UploadService{
		extractor: extractor,
		ingester:  ingester,
		archive:   archive,
	}
}

// IngestDocument replaces the index with the content of the uploaded PDF.
func (s *UploadService) IngestDocument(ctx context.Context, filename string, data []byte) (*domain.IngestResult, error) {
	if len(data) == 0 {
		return nil, domain.ErrMissingFile
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, domain.ErrUnsupportedFileType
	}
	if len(data) > MaxUploadBytes {
		return nil, domain.ErrFileTooLarge
	}

	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		if domain.CodeOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %w", err, domain.ErrUnreadableDocument)
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinDocumentChars {
		return nil, domain.ErrInsufficientText
	}

	result, err := s.ingester.Ingest(ctx, text)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		doc := ArchivedDocument{Filename: filepath.Base(filename), PDF: data, Text: text}
		if err := s.archive.Save(ctx, doc); err != nil {
			log.Printf("upload: failed to archive %s (index already updated): %v", doc.Filename, err)
			telemetry.CaptureError(ctx, err)
		} else {
			telemetry.AddBreadcrumb(ctx, "upload", "archived "+doc.Filename)
		}
	}

	return result, nil
}

// DownloadURL returns a link to the archived original document.
func (s *UploadService) DownloadURL(ctx context.Context) (string, error) {
	if s.archive == nil {
		return "", domain.ErrArchiveNotEnabled
	}
	return s.archive.DownloadURL(ctx)
}
