package driving

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// IngestProgress reports per-page progress of an ingestion run.
type IngestProgress func(docPath string, page, pages int)

// IngestionService turns PDF files into indexed documents.
type IngestionService interface {
	// Ingest extracts, chunks and indexes one PDF.
	Ingest(ctx context.Context, path string) (*domain.Document, error)

	// IngestAll ingests several PDFs in parallel. The returned slice is in
	// input order; failed documents carry status failed.
	IngestAll(ctx context.Context, paths []string) ([]domain.Document, error)

	// Reindex rebuilds the indices of an ingested document from its
	// stored chunks and figures.
	Reindex(ctx context.Context, docID string) error

	// DetectFigures runs vector-figure detection without persisting.
	// An empty pages slice means every page.
	DetectFigures(ctx context.Context, path string, pages []int) ([]domain.FigureRegion, error)
}
