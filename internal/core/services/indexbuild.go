package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// IndexBuilder writes the lexical and similarity indices of a document.
type IndexBuilder struct {
	lexical    driven.LexicalEngine
	similarity driven.SimilarityEngine
	registry   *Registry
}

// NewIndexBuilder creates an index builder.
func NewIndexBuilder(lexical driven.LexicalEngine, similarity driven.SimilarityEngine, registry *Registry) *IndexBuilder {
	return &IndexBuilder{lexical: lexical, similarity: similarity, registry: registry}
}

// Build replaces every index of docID. It holds exclusive access to the
// document for the duration, so in-flight searches finish first and
// later searches see the new indices.
func (b *IndexBuilder) Build(ctx context.Context, docID string, chunks []domain.Chunk, figures []domain.FigureRecord) error {
	lexRecords := LexicalRecords(chunks, figures)
	chunkRecords := ChunkSimilarityRecords(chunks)
	captionRecords := CaptionSimilarityRecords(figures)

	logger.Debug("Building indices for %s: lexical=%d chunks=%d captions=%d",
		docID, len(lexRecords), len(chunkRecords), len(captionRecords))

	return b.registry.WithExclusive(ctx, docID, func(ctx context.Context) error {
		if err := b.lexical.Build(ctx, docID, lexRecords); err != nil {
			return fmt.Errorf("build lexical index: %w", err)
		}
		if err := b.similarity.Build(ctx, docID, driven.CollectionChunks, chunkRecords); err != nil {
			return fmt.Errorf("build chunk similarity index: %w", err)
		}
		if err := b.similarity.Build(ctx, docID, driven.CollectionCaptions, captionRecords); err != nil {
			return fmt.Errorf("build caption similarity index: %w", err)
		}
		return nil
	})
}

// Drop deletes every index of docID under exclusive access.
func (b *IndexBuilder) Drop(ctx context.Context, docID string) error {
	return b.registry.WithExclusive(ctx, docID, func(ctx context.Context) error {
		if err := b.lexical.Drop(ctx, docID); err != nil {
			return fmt.Errorf("drop lexical index: %w", err)
		}
		if err := b.similarity.Drop(ctx, docID); err != nil {
			return fmt.Errorf("drop similarity indices: %w", err)
		}
		return nil
	})
}

// LexicalRecords converts chunks and confirmed captions into lexical records.
// Figures without a confirmed caption are left out.
func LexicalRecords(chunks []domain.Chunk, figures []domain.FigureRecord) []driven.LexicalRecord {
	records := make([]driven.LexicalRecord, 0, len(chunks)+len(figures))
	for _, c := range chunks {
		records = append(records, driven.LexicalRecord{
			ID:        c.ID,
			Type:      domain.HitTypeChunk,
			Order:     c.Index,
			PageIndex: -1,
			Content:   c.Content,
		})
	}
	for _, f := range figures {
		if !f.HasCaption || f.Caption == "" {
			continue
		}
		records = append(records, driven.LexicalRecord{
			ID:        f.ID,
			Type:      domain.HitTypeImageCaption,
			Order:     f.ImageIndex,
			PageIndex: f.PageIndex,
			Path:      f.ImagePath,
			Content:   f.Caption,
		})
	}
	return records
}

// ChunkSimilarityRecords converts every chunk into a similarity record.
func ChunkSimilarityRecords(chunks []domain.Chunk) []driven.SimilarityRecord {
	records := make([]driven.SimilarityRecord, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, driven.SimilarityRecord{
			ID:       c.ID,
			Text:     c.Content,
			Metadata: map[string]string{metaIndex: strconv.Itoa(c.Index)},
		})
	}
	return records
}

// CaptionSimilarityRecords converts figures with any caption text,
// best-effort labels included, into similarity records.
func CaptionSimilarityRecords(figures []domain.FigureRecord) []driven.SimilarityRecord {
	records := make([]driven.SimilarityRecord, 0, len(figures))
	for _, f := range figures {
		if f.Caption == "" {
			continue
		}
		records = append(records, driven.SimilarityRecord{
			ID:   f.ID,
			Text: f.Caption,
			Metadata: map[string]string{
				metaPageIndex:  strconv.Itoa(f.PageIndex),
				metaImageIndex: strconv.Itoa(f.ImageIndex),
				metaImagePath:  f.ImagePath,
				metaHasCaption: strconv.FormatBool(f.HasCaption),
			},
		})
	}
	return records
}
