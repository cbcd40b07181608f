package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages ingested documents.
type DocumentService struct {
	docStore driven.DocumentStore
	figures  driven.FigureStore
	blobs    driven.BlobStore
	indexer  *IndexBuilder
	registry *Registry
	onReset  func() error
}

// DocumentOption configures a DocumentService.
type DocumentOption func(*DocumentService)

// WithActiveReset runs fn when deleting the active document unsets it,
// e.g. to clear the persisted session.
func WithActiveReset(fn func() error) DocumentOption {
	return func(s *DocumentService) {
		s.onReset = fn
	}
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docStore driven.DocumentStore,
	figures driven.FigureStore,
	blobs driven.BlobStore,
	indexer *IndexBuilder,
	registry *Registry,
	opts ...DocumentOption,
) *DocumentService {
	s := &DocumentService{
		docStore: docStore,
		figures:  figures,
		blobs:    blobs,
		indexer:  indexer,
		registry: registry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	return s.docStore.GetDocument(ctx, documentID)
}

// Figures returns the figure-metadata rows of a document.
func (s *DocumentService) Figures(ctx context.Context, documentID string) ([]domain.FigureRecord, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.figures.ListFigures(ctx, documentID)
}

// Delete removes a document's indices, blobs and rows, in that order, so
// a failure part way leaves the row behind for a retry.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.Get(ctx, documentID); err != nil {
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.Drop(ctx, documentID); err != nil {
			return fmt.Errorf("delete %s: %w", documentID, err)
		}
	}
	if s.blobs != nil {
		if err := s.blobs.DeletePrefix(ctx, documentID+"/"); err != nil {
			return fmt.Errorf("delete blobs of %s: %w", documentID, err)
		}
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete %s: %w", documentID, err)
	}

	if s.registry != nil {
		s.registry.Invalidate(documentID)
		if active, ok := s.registry.Active(); ok && active == documentID {
			s.registry.SetActive("")
			if s.onReset != nil {
				if err := s.onReset(); err != nil {
					logger.Warn("failed to clear active document: %v", err)
				}
			}
		}
	}

	logger.Info("Deleted document %s", documentID)
	return nil
}
