package storage

import (
	"context"
	"errors"

	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/service"
)

// Fixed object keys of the archived CV.
const (
	ArchivePDFKey  = "cv/latest.pdf"
	ArchiveTextKey = "cv/latest.txt"
)

// ObjectStore is the subset of S3Client used by the archive.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// DocumentArchive keeps the last uploaded CV and its extracted text in object
// storage.
type DocumentArchive struct {
	objects ObjectStore
}

func NewDocumentArchive(objects ObjectStore) *DocumentArchive {
	return &DocumentArchive{objects: objects}
}

// Save writes the PDF first so a readable text object always has a matching
// original.
func (a *DocumentArchive) Save(ctx context.Context, doc service.ArchivedDocument) error {
	if err := a.objects.PutObject(ctx, ArchivePDFKey, doc.PDF, "application/pdf"); err != nil {
		return err
	}
	return a.objects.PutObject(ctx, ArchiveTextKey, []byte(doc.Text), "text/plain; charset=utf-8")
}

// LoadText returns the archived extracted text, if any.
func (a *DocumentArchive) LoadText(ctx context.Context) (string, bool, error) {
	data, err := a.objects.GetObject(ctx, ArchiveTextKey)
	if errors.Is(err, ErrObjectNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// DownloadURL presigns a link to the archived PDF.
func (a *DocumentArchive) DownloadURL(ctx context.Context) (string, error) {
	exists, err := a.objects.ObjectExists(ctx, ArchivePDFKey)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", domain.ErrNoArchivedCV
	}
	return a.objects.GenerateDownloadURL(ctx, ArchivePDFKey)
}
