package driving

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// DocumentService manages ingested documents.
type DocumentService interface {
	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Figures returns the figure-metadata rows of a document.
	Figures(ctx context.Context, documentID string) ([]domain.FigureRecord, error)

	// Delete removes a document with its blobs and indices.
	Delete(ctx context.Context, documentID string) error
}

// UploadService makes figure images available to a remote vision model.
type UploadService interface {
	// PrepareImages returns remote file ids for the given figure ids,
	// reusing unexpired uploads.
	PrepareImages(ctx context.Context, documentID string, imageIDs []string) ([]domain.PreparedImage, error)
}
