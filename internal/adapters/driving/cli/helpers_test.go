package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
)

var (
	_ driving.IngestionService = (*fakeIngestion)(nil)
	_ driving.DocumentService  = (*fakeDocuments)(nil)
	_ driving.RetrievalService = (*fakeRetrieval)(nil)
	_ driving.SettingsService  = (*fakeSettings)(nil)
)

const testDocID = "6f1c2a9e-7d4b-4c1a-9e2f-0a1b2c3d4e5f"

type fakeIngestion struct {
	mu        sync.Mutex
	ingested  []string
	reindexed []string

	detectPath  string
	detectPages []int
	regions     []domain.FigureRegion
	err         error
}

func (f *fakeIngestion) Ingest(_ context.Context, path string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, path)
	if strings.Contains(path, "broken") {
		return nil, fmt.Errorf("%w: not a pdf", domain.ErrInvalidInput)
	}
	return &domain.Document{
		ID:          fmt.Sprintf("doc-%d", len(f.ingested)),
		Path:        path,
		Title:       "Title of " + path,
		PageCount:   3,
		ChunkCount:  5,
		FigureCount: 2,
		Status:      domain.DocumentStatusReady,
	}, nil
}

func (f *fakeIngestion) IngestAll(ctx context.Context, paths []string) ([]domain.Document, error) {
	docs := make([]domain.Document, len(paths))
	var errs []error
	for i, p := range paths {
		doc, err := f.Ingest(ctx, p)
		if err != nil {
			docs[i] = domain.Document{Path: p, Status: domain.DocumentStatusFailed, Error: err.Error()}
			errs = append(errs, err)
			continue
		}
		docs[i] = *doc
	}
	return docs, errors.Join(errs...)
}

func (f *fakeIngestion) Reindex(_ context.Context, docID string) error {
	if f.err != nil {
		return f.err
	}
	f.reindexed = append(f.reindexed, docID)
	return nil
}

func (f *fakeIngestion) DetectFigures(_ context.Context, path string, pages []int) ([]domain.FigureRegion, error) {
	f.detectPath, f.detectPages = path, pages
	return f.regions, f.err
}

func (f *fakeIngestion) ingestedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ingested...)
}

type fakeDocuments struct {
	mu      sync.Mutex
	docs    []domain.Document
	figures map[string][]domain.FigureRecord
	deleted []string
	err     error
}

func (f *fakeDocuments) List(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Document(nil), f.docs...), f.err
}

func (f *fakeDocuments) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDocuments) Figures(_ context.Context, id string) ([]domain.FigureRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.figures[id], nil
}

func (f *fakeDocuments) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRetrieval struct {
	active string
	setErr error

	hits   []domain.SearchHit
	hybrid []domain.HybridHit
	chunks []domain.Chunk
	err    error

	calls []string
	docID string
	query string
	typ   domain.HitType
	limit int
	opts  domain.HybridOptions
	ids   []string
}

func (f *fakeRetrieval) SetActiveDocument(_ context.Context, docID string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.active = docID
	return nil
}

func (f *fakeRetrieval) ActiveDocument() (string, bool) {
	return f.active, f.active != ""
}

func (f *fakeRetrieval) SearchLexical(_ context.Context, docID, query string, typ domain.HitType, limit int) ([]domain.SearchHit, error) {
	f.calls = append(f.calls, "lexical")
	f.docID, f.query, f.typ, f.limit = docID, query, typ, limit
	return f.hits, f.err
}

func (f *fakeRetrieval) SearchVector(_ context.Context, docID, query string, k int) ([]domain.SearchHit, error) {
	f.calls = append(f.calls, "vector")
	f.docID, f.query, f.limit = docID, query, k
	return f.hits, f.err
}

func (f *fakeRetrieval) SearchCaptions(_ context.Context, docID, query string, k int) ([]domain.SearchHit, error) {
	f.calls = append(f.calls, "captions")
	f.docID, f.query, f.limit = docID, query, k
	return f.hits, f.err
}

func (f *fakeRetrieval) SearchHybrid(_ context.Context, docID, query string, opts domain.HybridOptions) ([]domain.HybridHit, error) {
	f.calls = append(f.calls, "hybrid")
	f.docID, f.query, f.opts = docID, query, opts
	return f.hybrid, f.err
}

func (f *fakeRetrieval) GetChunks(_ context.Context, docID string, ids []string) ([]domain.Chunk, error) {
	f.calls = append(f.calls, "chunks")
	f.docID, f.ids = docID, ids
	return f.chunks, f.err
}

type fakeSettings struct {
	settings    domain.Settings
	validateErr error
	pingErr     error

	provider domain.AIProvider
	model    string
	apiKey   string
}

func (f *fakeSettings) Get() (*domain.Settings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettings) Save(s *domain.Settings) error {
	f.settings = *s
	return nil
}

func (f *fakeSettings) SetActiveDocument(docID string) error {
	f.settings.ActiveDocument = docID
	return nil
}

func (f *fakeSettings) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	f.provider, f.model, f.apiKey = provider, model, apiKey
	return nil
}

func (f *fakeSettings) ValidateEmbeddingConfig() error {
	return f.pingErr
}

func (f *fakeSettings) Validate() error {
	return f.validateErr
}

func (f *fakeSettings) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

type testServices struct {
	ingestion *fakeIngestion
	documents *fakeDocuments
	retrieval *fakeRetrieval
	settings  *fakeSettings
}

// setupTestServices injects fakes and restores the package state when
// the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		ingestion: &fakeIngestion{},
		documents: &fakeDocuments{
			docs: []domain.Document{
				{
					ID:          testDocID,
					Path:        "/papers/wiring.pdf",
					Title:       "Wiring Guide",
					PageCount:   12,
					ChunkCount:  30,
					FigureCount: 4,
					Status:      domain.DocumentStatusReady,
					CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
					UpdatedAt:   time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
				},
				{
					ID:     "doc-2",
					Path:   "/papers/other.pdf",
					Title:  "Other",
					Status: domain.DocumentStatusFailed,
					Error:  "no pages",
				},
			},
			figures: map[string][]domain.FigureRecord{},
		},
		retrieval: &fakeRetrieval{},
		settings:  &fakeSettings{settings: domain.DefaultSettings()},
	}
	SetServices(Services{
		Ingestion: ts.ingestion,
		Documents: ts.documents,
		Retrieval: ts.retrieval,
		Settings:  ts.settings,
	})
	t.Cleanup(func() {
		SetServices(Services{})
		resetFlags()
	})
	return ts
}

func resetFlags() {
	searchDoc, searchType, searchWeights = "", "", ""
	searchLimit = 10
	searchTarget = "chunks"
	chunksDoc = ""
	detectPages = ""
	watchDebounce = 2 * time.Second
	mcpPort, mcpHost = 0, "localhost"
	jsonOutput = false
	verbose = false
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, nil, args...)
}

func executeWithInput(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
