package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// previewRunes caps the chunk text attached to search hits.
const previewRunes = 300

// Metadata keys written on similarity records.
const (
	metaIndex      = "index"
	metaPageIndex  = "page_index"
	metaImageIndex = "image_index"
	metaImagePath  = "image_path"
	metaHasCaption = "has_caption"
)

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithActivePersistence stores the active document whenever it changes.
func WithActivePersistence(persist func(docID string) error) RetrievalOption {
	return func(s *RetrievalService) {
		s.persistActive = persist
	}
}

// RetrievalService answers per-document search and chunk lookups.
type RetrievalService struct {
	registry  *Registry
	documents driven.DocumentStore
	figures   driven.FigureStore
	settings  domain.RetrievalSettings

	persistActive func(docID string) error
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	registry *Registry,
	documents driven.DocumentStore,
	figures driven.FigureStore,
	settings domain.RetrievalSettings,
	opts ...RetrievalOption,
) *RetrievalService {
	if settings.DefaultLimit <= 0 {
		settings.DefaultLimit = 10
	}
	s := &RetrievalService{
		registry:  registry,
		documents: documents,
		figures:   figures,
		settings:  settings,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateDocumentID checks that id is a UUID.
func ValidateDocumentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDocumentID, id)
	}
	return nil
}

// SetActiveDocument validates and loads docID and makes it active.
func (s *RetrievalService) SetActiveDocument(ctx context.Context, docID string) error {
	if err := ValidateDocumentID(docID); err != nil {
		return err
	}
	if s.documents != nil {
		if _, err := s.documents.GetDocument(ctx, docID); err != nil {
			return fmt.Errorf("document %s: %w", docID, err)
		}
	}
	if _, err := s.registry.Ensure(ctx, docID); err != nil {
		return err
	}
	s.registry.SetActive(docID)
	logger.Info("Active document set to %s", docID)

	if s.persistActive != nil {
		if err := s.persistActive(docID); err != nil {
			logger.Warn("failed to persist active document: %v", err)
		}
	}
	return nil
}

// ActiveDocument returns the active document id, if any.
func (s *RetrievalService) ActiveDocument() (string, bool) {
	return s.registry.Active()
}

// SearchLexical runs a keyword query filtered by hit type.
func (s *RetrievalService) SearchLexical(
	ctx context.Context, docID, query string, typ domain.HitType, limit int,
) ([]domain.SearchHit, error) {
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: unknown hit type %q", domain.ErrInvalidInput, typ)
	}
	id, err := s.resolve(docID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchHit{}, nil
	}

	b, release, err := s.registry.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	hits, err := s.lexicalOn(ctx, b, query, typ, s.limit(limit))
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, b.Store, id, hits), nil
}

// SearchVector runs a similarity query over chunks.
func (s *RetrievalService) SearchVector(ctx context.Context, docID, query string, k int) ([]domain.SearchHit, error) {
	return s.searchSimilarity(ctx, docID, query, domain.SearchTargetChunks, k)
}

// SearchCaptions runs a similarity query over figure captions.
func (s *RetrievalService) SearchCaptions(ctx context.Context, docID, query string, k int) ([]domain.SearchHit, error) {
	return s.searchSimilarity(ctx, docID, query, domain.SearchTargetCaptions, k)
}

// SearchHybrid fuses lexical and similarity results for the target.
func (s *RetrievalService) SearchHybrid(
	ctx context.Context, docID, query string, opts domain.HybridOptions,
) ([]domain.HybridHit, error) {
	target := opts.Target
	if target == "" {
		target = domain.SearchTargetChunks
	}
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: unknown search target %q", domain.ErrInvalidInput, target)
	}

	weights := s.settings.ChunkWeights
	if target == domain.SearchTargetCaptions {
		weights = s.settings.CaptionWeights
	}
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	id, err := s.resolve(docID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.HybridHit{}, nil
	}
	k := s.limit(opts.K)

	b, release, err := s.registry.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	logger.Debug("Hybrid search on %s (%s): weights=%.2f/%.2f k=%d", id, target, weights.Lexical, weights.Vector, k)

	var (
		wg              sync.WaitGroup
		lexical, vector []domain.SearchHit
		lexErr, vecErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexical, lexErr = s.lexicalOn(ctx, b, query, target.HitType(), k)
	}()
	go func() {
		defer wg.Done()
		vector, vecErr = s.similarityOn(ctx, b, query, target, k)
	}()
	wg.Wait()

	if err := errors.Join(lexErr, vecErr); err != nil {
		return nil, err
	}

	logger.Debug("Hybrid legs: lexical=%d vector=%d", len(lexical), len(vector))
	fused := Fuse(lexical, vector, weights, k)

	// Hydrate through the embedded hits so lexical-only entries get text.
	base := make([]domain.SearchHit, len(fused))
	for i := range fused {
		base[i] = fused[i].SearchHit
	}
	base = s.hydrate(ctx, b.Store, id, base)
	for i := range fused {
		fused[i].SearchHit = base[i]
	}
	return fused, nil
}

// GetChunks returns chunks by id in request order, skipping unknown and
// duplicate ids.
func (s *RetrievalService) GetChunks(ctx context.Context, docID string, ids []string) ([]domain.Chunk, error) {
	id, err := s.resolve(docID)
	if err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		cid, ok := NormalizeChunkID(raw)
		if !ok {
			logger.Debug("Skipping malformed chunk id %q", raw)
			continue
		}
		if seen[cid] {
			continue
		}
		seen[cid] = true
		normalized = append(normalized, cid)
	}
	if len(normalized) == 0 {
		return []domain.Chunk{}, nil
	}

	b, release, err := s.registry.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	chunks, err := b.Store.GetChunks(ctx, id, normalized)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	return chunks, nil
}

// NormalizeChunkID accepts "1", "0001", "chunk_0001" and "chunk_0001.txt"
// and returns the canonical id.
func NormalizeChunkID(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".txt")
	s = strings.TrimPrefix(s, "chunk")
	s = strings.TrimLeft(s, "_-")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return "", false
	}
	return domain.ChunkID(n), true
}

func (s *RetrievalService) searchSimilarity(
	ctx context.Context, docID, query string, target domain.SearchTarget, k int,
) ([]domain.SearchHit, error) {
	id, err := s.resolve(docID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchHit{}, nil
	}

	b, release, err := s.registry.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	hits, err := s.similarityOn(ctx, b, query, target, s.limit(k))
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, b.Store, id, hits), nil
}

// lexicalOn queries a read-locked bundle. An unloaded index yields no hits.
func (s *RetrievalService) lexicalOn(
	ctx context.Context, b *Bundle, query string, typ domain.HitType, limit int,
) ([]domain.SearchHit, error) {
	if !b.Lexical.Loaded {
		logger.Warn("lexical index for %s is not loaded; returning no results", b.DocumentID)
		return []domain.SearchHit{}, nil
	}
	raw, err := b.Lexical.Index.Query(ctx, query, typ, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	hits := make([]domain.SearchHit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, domain.SearchHit{
			ID:        h.ID,
			Type:      h.Type,
			Order:     h.Order,
			PageIndex: h.PageIndex,
			Path:      h.Path,
			Score:     h.Score,
		})
	}
	return hits, nil
}

// similarityOn queries a read-locked bundle. An unloaded index yields no hits.
func (s *RetrievalService) similarityOn(
	ctx context.Context, b *Bundle, query string, target domain.SearchTarget, k int,
) ([]domain.SearchHit, error) {
	handle := b.Chunks
	if target == domain.SearchTargetCaptions {
		handle = b.Captions
	}
	if !handle.Loaded {
		logger.Warn("%s similarity index for %s is not loaded; returning no results", target, b.DocumentID)
		return []domain.SearchHit{}, nil
	}
	raw, err := handle.Index.QueryText(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(raw))
	for _, h := range raw {
		hit := domain.SearchHit{ID: h.ID, Score: h.Score, Text: h.Text}
		if target == domain.SearchTargetCaptions {
			hit.Type = domain.HitTypeImageCaption
			hit.Order = metaInt(h.Metadata, metaImageIndex, 0)
			hit.PageIndex = metaInt(h.Metadata, metaPageIndex, -1)
			hit.Path = h.Metadata[metaImagePath]
		} else {
			hit.Type = domain.HitTypeChunk
			hit.Order = metaInt(h.Metadata, metaIndex, 0)
			hit.PageIndex = -1
			hit.Text = preview(h.Text)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// hydrate fills missing text from the chunk and figure stores.
// Lookup failures are logged and leave the hits as they are.
func (s *RetrievalService) hydrate(
	ctx context.Context, store driven.ChunkStore, docID string, hits []domain.SearchHit,
) []domain.SearchHit {
	var chunkIDs []string
	needFigures := false
	for _, h := range hits {
		if h.Text != "" {
			continue
		}
		switch h.Type {
		case domain.HitTypeChunk:
			chunkIDs = append(chunkIDs, h.ID)
		case domain.HitTypeImageCaption:
			needFigures = true
		}
	}

	texts := make(map[string]string)
	if len(chunkIDs) > 0 && store != nil {
		chunks, err := store.GetChunks(ctx, docID, chunkIDs)
		if err != nil {
			logger.Warn("hydrate chunks for %s: %v", docID, err)
		}
		for _, c := range chunks {
			texts[c.ID] = preview(c.Content)
		}
	}
	if needFigures && s.figures != nil {
		figures, err := s.figures.ListFigures(ctx, docID)
		if err != nil {
			logger.Warn("hydrate figures for %s: %v", docID, err)
		}
		for _, f := range figures {
			texts[f.ID] = f.Caption
		}
	}

	for i := range hits {
		if hits[i].Text == "" {
			hits[i].Text = texts[hits[i].ID]
		}
	}
	return hits
}

// resolve maps an empty id to the active document and validates the result.
func (s *RetrievalService) resolve(docID string) (string, error) {
	if docID == "" {
		return s.registry.RequireActive()
	}
	if err := ValidateDocumentID(docID); err != nil {
		return "", err
	}
	return docID, nil
}

func (s *RetrievalService) limit(n int) int {
	if n <= 0 {
		return s.settings.DefaultLimit
	}
	return n
}

func metaInt(meta map[string]string, key string, fallback int) int {
	v, ok := meta[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "…"
}
