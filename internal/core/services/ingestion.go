package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-pdf/internal/figures"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService extracts text and figures from PDFs, chunks the
// text and builds the per-document indices.
type IngestionService struct {
	toolkit   driven.PDFToolkit
	docStore  driven.DocumentStore
	chunks    driven.ChunkStore
	figures   driven.FigureStore
	blobs     driven.BlobStore
	extractor *figures.Extractor
	pipeline  driven.PostProcessorPipeline
	indexer   *IndexBuilder

	workers  int
	progress driving.IngestProgress
	embedder driven.EmbeddingService

	now   func() time.Time
	newID func() string
}

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithWorkers sets how many documents IngestAll processes at once.
func WithWorkers(n int) IngestionOption {
	return func(s *IngestionService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProgress reports each extracted page.
func WithProgress(fn driving.IngestProgress) IngestionOption {
	return func(s *IngestionService) {
		s.progress = fn
	}
}

// WithEmbeddingCheck pings the embedder before extracting, so an
// unreachable model fails the run before any page is processed.
func WithEmbeddingCheck(embedder driven.EmbeddingService) IngestionOption {
	return func(s *IngestionService) {
		s.embedder = embedder
	}
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(
	toolkit driven.PDFToolkit,
	docStore driven.DocumentStore,
	chunks driven.ChunkStore,
	figureStore driven.FigureStore,
	blobs driven.BlobStore,
	extractor *figures.Extractor,
	pipeline driven.PostProcessorPipeline,
	indexer *IndexBuilder,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		toolkit:   toolkit,
		docStore:  docStore,
		chunks:    chunks,
		figures:   figureStore,
		blobs:     blobs,
		extractor: extractor,
		pipeline:  pipeline,
		indexer:   indexer,
		workers:   1,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest extracts, chunks and indexes one PDF. On failure after the
// document row was created, the row is kept with status failed and
// returned alongside the error.
func (s *IngestionService) Ingest(ctx context.Context, path string) (*domain.Document, error) {
	abs, err := checkPDFPath(path)
	if err != nil {
		return nil, err
	}
	if s.embedder != nil {
		if err := s.embedder.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
	}

	now := s.now()
	doc := &domain.Document{
		ID:        s.newID(),
		Path:      abs,
		Title:     strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		Status:    domain.DocumentStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	logger.Info("Ingesting %s as %s", abs, doc.ID)

	if err := s.process(ctx, doc); err != nil {
		doc.Status = domain.DocumentStatusFailed
		doc.Error = err.Error()
		doc.UpdatedAt = s.now()
		// The caller's context may be the reason for the failure.
		if saveErr := s.docStore.SaveDocument(context.WithoutCancel(ctx), doc); saveErr != nil {
			logger.Warn("failed to record failure of %s: %v", doc.ID, saveErr)
		}
		logger.Error("Ingest of %s failed: %v", abs, err)
		return doc, err
	}

	doc.Status = domain.DocumentStatusReady
	doc.UpdatedAt = s.now()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return doc, fmt.Errorf("save document: %w", err)
	}
	logger.Info("Ingested %s: %d pages, %d chunks, %d figures",
		doc.Title, doc.PageCount, doc.ChunkCount, doc.FigureCount)
	return doc, nil
}

// IngestAll ingests paths with bounded parallelism. Every path gets an
// entry in the result; the error joins the individual failures.
func (s *IngestionService) IngestAll(ctx context.Context, paths []string) ([]domain.Document, error) {
	docs := make([]domain.Document, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, p := range paths {
		g.Go(func() error {
			doc, err := s.Ingest(ctx, p)
			switch {
			case doc != nil:
				docs[i] = *doc
			case err != nil:
				docs[i] = domain.Document{Path: p, Status: domain.DocumentStatusFailed, Error: err.Error()}
			}
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return docs, errors.Join(errs...)
}

// Reindex rebuilds the indices of an ingested document from its stored
// chunks and figures.
func (s *IngestionService) Reindex(ctx context.Context, docID string) error {
	if err := ValidateDocumentID(docID); err != nil {
		return err
	}
	doc, err := s.docStore.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	chunks, err := s.chunks.ListChunks(ctx, docID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	figs, err := s.figures.ListFigures(ctx, docID)
	if err != nil {
		return fmt.Errorf("load figures: %w", err)
	}
	if err := s.indexer.Build(ctx, docID, chunks, figs); err != nil {
		return err
	}

	doc.ChunkCount = len(chunks)
	doc.FigureCount = len(figs)
	doc.Status = domain.DocumentStatusReady
	doc.Error = ""
	doc.UpdatedAt = s.now()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	logger.Info("Reindexed %s", docID)
	return nil
}

// DetectFigures runs vector-figure detection on the given pages of a
// PDF without storing anything.
func (s *IngestionService) DetectFigures(ctx context.Context, path string, pages []int) ([]domain.FigureRegion, error) {
	abs, err := checkPDFPath(path)
	if err != nil {
		return nil, err
	}
	pdf, err := s.toolkit.Open(ctx, abs)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer pdf.Close()

	n := pdf.PageCount()
	if len(pages) == 0 {
		pages = make([]int, n)
		for i := range pages {
			pages[i] = i
		}
	}

	regions := []domain.FigureRegion{}
	for _, i := range pages {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: page %d out of range [0, %d)", domain.ErrInvalidInput, i, n)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := pdf.Page(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		layout, err := LoadPageLayout(page)
		if err != nil {
			return nil, err
		}
		for _, r := range s.extractor.ExtractFigures(layout) {
			r.DocumentPath = abs
			regions = append(regions, r)
		}
	}
	figures.SortRegions(regions)
	return regions, nil
}

// LoadPageLayout snapshots the geometry and text of a page.
func LoadPageLayout(page driven.PDFPage) (domain.PageLayout, error) {
	w, h := page.Size()
	text, err := page.Text()
	if err != nil {
		return domain.PageLayout{}, fmt.Errorf("page %d text: %w", page.Index(), err)
	}
	drawings, err := page.DrawingGroups()
	if err != nil {
		return domain.PageLayout{}, fmt.Errorf("page %d drawings: %w", page.Index(), err)
	}
	words, err := page.WordBoxes()
	if err != nil {
		return domain.PageLayout{}, fmt.Errorf("page %d words: %w", page.Index(), err)
	}
	return domain.PageLayout{
		Index:    page.Index(),
		Width:    w,
		Height:   h,
		Text:     text,
		Drawings: drawings,
		Words:    words,
	}, nil
}

func (s *IngestionService) process(ctx context.Context, doc *domain.Document) error {
	text, figs, err := s.extract(ctx, doc)
	if err != nil {
		return err
	}
	if err := s.figures.SaveFigures(ctx, doc.ID, figs); err != nil {
		return fmt.Errorf("save figures: %w", err)
	}

	chunks, err := s.pipeline.Process(ctx, &domain.DocumentText{DocumentID: doc.ID, Text: text})
	if err != nil {
		return fmt.Errorf("chunk text: %w", err)
	}
	if err := s.chunks.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	if err := s.indexer.Build(ctx, doc.ID, chunks, figs); err != nil {
		return err
	}
	doc.ChunkCount = len(chunks)
	doc.FigureCount = len(figs)
	return nil
}

// extract walks every page. Pages are joined with form feeds.
func (s *IngestionService) extract(ctx context.Context, doc *domain.Document) (string, []domain.FigureRecord, error) {
	pdf, err := s.toolkit.Open(ctx, doc.Path)
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", doc.Path, err)
	}
	defer pdf.Close()

	n := pdf.PageCount()
	doc.PageCount = n

	var text strings.Builder
	var records []domain.FigureRecord
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		page, err := pdf.Page(i)
		if err != nil {
			return "", nil, fmt.Errorf("page %d: %w", i, err)
		}
		layout, err := LoadPageLayout(page)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			text.WriteString("\f")
		}
		text.WriteString(layout.Text)

		bitmaps, err := s.bitmapFigures(ctx, doc.ID, page, layout)
		if err != nil {
			return "", nil, err
		}
		vectors, err := s.vectorFigures(ctx, doc.ID, page, layout)
		if err != nil {
			return "", nil, err
		}
		records = append(records, bitmaps...)
		records = append(records, vectors...)

		if s.progress != nil {
			s.progress(doc.Path, i+1, n)
		}
	}
	return text.String(), records, nil
}

func (s *IngestionService) bitmapFigures(
	ctx context.Context, docID string, page driven.PDFPage, layout domain.PageLayout,
) ([]domain.FigureRecord, error) {
	images, err := page.Images()
	if err != nil {
		logger.Warn("page %d: skipping images: %v", layout.Index, err)
		return nil, nil
	}

	records := make([]domain.FigureRecord, 0, len(images))
	for _, img := range images {
		hint := fmt.Sprintf("%s/images/page_%d_image_%d.png", docID, layout.Index, img.Index)
		uri, err := s.blobs.Put(ctx, img.PNG, hint)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		rec := domain.FigureRecord{
			ID:         domain.FigureID(domain.FigureKindBitmap, layout.Index, img.Index),
			DocumentID: docID,
			Kind:       domain.FigureKindBitmap,
			PageIndex:  layout.Index,
			ImageIndex: img.Index,
			ImagePath:  uri,
			Width:      img.Width,
			Height:     img.Height,
		}
		if img.Placed {
			rec.HasCaption, rec.Caption = s.extractor.Linker().Link(img.Rect, layout.Words)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *IngestionService) vectorFigures(
	ctx context.Context, docID string, page driven.PDFPage, layout domain.PageLayout,
) ([]domain.FigureRecord, error) {
	regions := s.extractor.ExtractFigures(layout)
	if len(regions) == 0 {
		return nil, nil
	}
	settings := s.extractor.Settings()
	scale := float64(settings.DPI) / 72

	records := make([]domain.FigureRecord, 0, len(regions))
	for j, r := range regions {
		rect := r.Rect.Pad(settings.PadPx).Clip(layout.Bounds())
		if rect.IsEmpty() {
			continue
		}
		png, err := page.Render(rect, settings.DPI)
		if err != nil {
			logger.Warn("page %d: failed to render figure %d: %v", layout.Index, j, err)
			continue
		}
		hint := fmt.Sprintf("%s/vector_graphics/p%04d_y%d_x%d.png", docID, layout.Index, int(rect.Y0), int(rect.X0))
		uri, err := s.blobs.Put(ctx, png, hint)
		if err != nil {
			return nil, fmt.Errorf("store figure: %w", err)
		}
		records = append(records, domain.FigureRecord{
			ID:         domain.FigureID(domain.FigureKindVector, layout.Index, j),
			DocumentID: docID,
			Kind:       domain.FigureKindVector,
			PageIndex:  layout.Index,
			ImageIndex: j,
			ImagePath:  uri,
			HasCaption: r.HasCaption,
			Caption:    r.Caption,
			Width:      int(math.Round(rect.Width() * scale)),
			Height:     int(math.Round(rect.Height() * scale)),
		})
	}
	return records, nil
}

func checkPDFPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return "", err
	}
	if info.IsDir() || !strings.EqualFold(filepath.Ext(abs), ".pdf") {
		return "", fmt.Errorf("%w: %s is not a PDF file", domain.ErrInvalidInput, path)
	}
	return abs, nil
}
