package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	mu sync.Mutex

	active string
	hits   []domain.SearchHit
	hybrid []domain.HybridHit
	chunks []domain.Chunk
	err    error

	// Last call arguments.
	docID string
	query string
	typ   domain.HitType
	limit int
	opts  domain.HybridOptions
	ids   []string
	calls []string
}

func (m *mockRetrievalService) record(name, docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	m.docID = docID
}

func (m *mockRetrievalService) SetActiveDocument(_ context.Context, docID string) error {
	m.record("set_active", docID)
	if m.err != nil {
		return m.err
	}
	m.active = docID
	return nil
}

func (m *mockRetrievalService) ActiveDocument() (string, bool) {
	return m.active, m.active != ""
}

func (m *mockRetrievalService) SearchLexical(
	_ context.Context, docID, query string, typ domain.HitType, limit int,
) ([]domain.SearchHit, error) {
	m.record("lexical", docID)
	m.query, m.typ, m.limit = query, typ, limit
	return m.hits, m.err
}

func (m *mockRetrievalService) SearchVector(_ context.Context, docID, query string, k int) ([]domain.SearchHit, error) {
	m.record("vector", docID)
	m.query, m.limit = query, k
	return m.hits, m.err
}

func (m *mockRetrievalService) SearchCaptions(_ context.Context, docID, query string, k int) ([]domain.SearchHit, error) {
	m.record("captions", docID)
	m.query, m.limit = query, k
	return m.hits, m.err
}

func (m *mockRetrievalService) SearchHybrid(
	_ context.Context, docID, query string, opts domain.HybridOptions,
) ([]domain.HybridHit, error) {
	m.record("hybrid", docID)
	m.query, m.opts = query, opts
	return m.hybrid, m.err
}

func (m *mockRetrievalService) GetChunks(_ context.Context, docID string, ids []string) ([]domain.Chunk, error) {
	m.record("chunks", docID)
	m.ids = ids
	return m.chunks, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	figures   []domain.FigureRecord
	err       error

	figuresFor string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.document == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.document, m.err
}

func (m *mockDocumentService) Figures(_ context.Context, documentID string) ([]domain.FigureRecord, error) {
	m.figuresFor = documentID
	return m.figures, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

// mockUploadService is a mock implementation of driving.UploadService.
type mockUploadService struct {
	prepared []domain.PreparedImage
	err      error

	documentID string
	imageIDs   []string
}

func (m *mockUploadService) PrepareImages(_ context.Context, documentID string, imageIDs []string) ([]domain.PreparedImage, error) {
	m.documentID, m.imageIDs = documentID, imageIDs
	return m.prepared, m.err
}
