package driven

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// DocumentStore persists document metadata.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document with its chunks, figures and uploads.
	DeleteDocument(ctx context.Context, id string) error
}

// ChunkStore persists chunk text.
type ChunkStore interface {
	// SaveChunks replaces the chunks of a document.
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetChunks returns the requested chunks in request order.
	// Unknown ids are skipped.
	GetChunks(ctx context.Context, documentID string, ids []string) ([]domain.Chunk, error)

	// ListChunks returns all chunks of a document in index order.
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// FigureStore persists the figure-metadata table.
type FigureStore interface {
	// SaveFigures replaces the figures of a document.
	SaveFigures(ctx context.Context, documentID string, figures []domain.FigureRecord) error

	// ListFigures returns the figures of a document ordered by page then image index.
	ListFigures(ctx context.Context, documentID string) ([]domain.FigureRecord, error)

	// GetFigure returns one figure or domain.ErrNotFound.
	GetFigure(ctx context.Context, documentID, figureID string) (*domain.FigureRecord, error)
}

// UploadCacheStore persists remote file ids for figure images.
type UploadCacheStore interface {
	// GetUpload returns the cached entry or domain.ErrNotFound.
	GetUpload(ctx context.Context, documentID, imageID string) (*domain.CachedUpload, error)

	// PutUpload stores or replaces an entry.
	PutUpload(ctx context.Context, documentID string, upload domain.CachedUpload) error

	// ListUploads returns every entry of a document.
	ListUploads(ctx context.Context, documentID string) ([]domain.CachedUpload, error)

	// DeleteUploads removes entries by image id.
	DeleteUploads(ctx context.Context, documentID string, imageIDs []string) error
}

// FileUploader sends bytes to a remote file API.
type FileUploader interface {
	// Upload stores data remotely and returns the remote file id.
	Upload(ctx context.Context, name string, data []byte, mediaType string) (string, error)
}
