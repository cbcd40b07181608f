package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.ChunkStore    = (*DocumentStore)(nil)
	_ driven.FigureStore   = (*DocumentStore)(nil)
)

// DocumentStore is an in-memory implementation of the document, chunk
// and figure stores. Services tests use it in place of SQLite.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	figures   map[string][]domain.FigureRecord
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		figures:   make(map[string][]domain.FigureRecord),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteDocument removes a document with its chunks and figures.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	delete(s.figures, id)
	return nil
}

// SaveChunks replaces the chunks of a document.
func (s *DocumentStore) SaveChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[documentID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// GetChunks returns the requested chunks in request order, skipping unknown ids.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string, ids []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := make(map[string]domain.Chunk, len(s.chunks[documentID]))
	for _, c := range s.chunks[documentID] {
		byID[c.ID] = c
	}
	result := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// ListChunks returns all chunks of a document in index order.
func (s *DocumentStore) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := append([]domain.Chunk(nil), s.chunks[documentID]...)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

// SaveFigures replaces the figures of a document.
func (s *DocumentStore) SaveFigures(_ context.Context, documentID string, figures []domain.FigureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.figures[documentID] = append([]domain.FigureRecord(nil), figures...)
	return nil
}

// ListFigures returns the figures of a document ordered by page then image index.
func (s *DocumentStore) ListFigures(_ context.Context, documentID string) ([]domain.FigureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := append([]domain.FigureRecord(nil), s.figures[documentID]...)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].PageIndex != result[j].PageIndex {
			return result[i].PageIndex < result[j].PageIndex
		}
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].ImageIndex < result[j].ImageIndex
	})
	return result, nil
}

// GetFigure returns one figure or domain.ErrNotFound.
func (s *DocumentStore) GetFigure(_ context.Context, documentID, figureID string) (*domain.FigureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.figures[documentID] {
		if f.ID == figureID {
			return &f, nil
		}
	}
	return nil, fmt.Errorf("figure %s: %w", figureID, domain.ErrNotFound)
}
