package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/telemetry"
)

// IndexIngester reports on and rebuilds the document index. IngestIfEmpty
// returns a nil result when an index appeared since the last Status.
type IndexIngester interface {
	Status(ctx context.Context) (*domain.IndexStatus, error)
	IngestIfEmpty(ctx context.Context, rawText string) (*domain.IngestResult, error)
}

// ArchivedText supplies the text of the last uploaded CV.
type ArchivedText interface {
	LoadText(ctx context.Context) (string, bool, error)
}

// IndexRestorer rebuilds an empty index from the archived CV text, e.g. after
// a restart with the in-memory store.
type IndexRestorer struct {
	ingester IndexIngester
	archive  ArchivedText
}

func NewIndexRestorer(ingester IndexIngester, archive ArchivedText) *IndexRestorer {
	return &IndexRestorer{ingester: ingester, archive: archive}
}

// RunOnce restores the index when it is empty and an archived text exists.
// It does nothing otherwise.
func (r *IndexRestorer) RunOnce(ctx context.Context) error {
	status, err := r.ingester.Status(ctx)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if status.Indexed {
		return nil
	}

	text, found, err := r.archive.LoadText(ctx)
	if err != nil {
		return fmt.Errorf("load archived text: %w", err)
	}
	if !found {
		return nil
	}

	result, err := r.ingester.IngestIfEmpty(ctx, text)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		return fmt.Errorf("restore index: %w", err)
	}
	if result == nil {
		log.Printf("restore: skipped, a CV was indexed while restoring")
		return nil
	}
	log.Printf("restore: rebuilt index from archived CV (%d chunks)", result.Chunks)
	return nil
}
