package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

func sampleChunks(docID string) []domain.Chunk {
	return []domain.Chunk{
		{ID: "0001", DocumentID: docID, Index: 1, Content: "The pump curve shows flow against head."},
		{ID: "0002", DocumentID: docID, Index: 2, Content: "Maintenance intervals for the impeller."},
	}
}

func sampleFigures(docID string) []domain.FigureRecord {
	return []domain.FigureRecord{
		{ID: "p0000_v00", DocumentID: docID, Kind: domain.FigureKindVector, PageIndex: 0, ImageIndex: 0,
			ImagePath: "blob://a.png", HasCaption: true, Caption: "Figure 1: pump curve"},
		{ID: "p0001_i00", DocumentID: docID, Kind: domain.FigureKindBitmap, PageIndex: 1, ImageIndex: 0,
			ImagePath: "blob://b.png", HasCaption: false, Caption: "exploded view of impeller"},
		{ID: "p0002_i00", DocumentID: docID, Kind: domain.FigureKindBitmap, PageIndex: 2, ImageIndex: 0,
			ImagePath: "blob://c.png"},
	}
}

func TestLexicalRecords(t *testing.T) {
	records := LexicalRecords(sampleChunks("d"), sampleFigures("d"))

	require.Len(t, records, 3)
	assert.Equal(t, driven.LexicalRecord{
		ID: "0001", Type: domain.HitTypeChunk, Order: 1, PageIndex: -1,
		Content: "The pump curve shows flow against head.",
	}, records[0])
	assert.Equal(t, driven.LexicalRecord{
		ID: "p0000_v00", Type: domain.HitTypeImageCaption, Order: 0, PageIndex: 0,
		Path: "blob://a.png", Content: "Figure 1: pump curve",
	}, records[2])
}

func TestChunkSimilarityRecords(t *testing.T) {
	records := ChunkSimilarityRecords(sampleChunks("d"))

	require.Len(t, records, 2)
	assert.Equal(t, "0002", records[1].ID)
	assert.Equal(t, "2", records[1].Metadata["index"])
}

func TestCaptionSimilarityRecords_IncludesBestEffortLabels(t *testing.T) {
	records := CaptionSimilarityRecords(sampleFigures("d"))

	require.Len(t, records, 2)
	assert.Equal(t, "p0000_v00", records[0].ID)
	assert.Equal(t, "true", records[0].Metadata["has_caption"])
	assert.Equal(t, "p0001_i00", records[1].ID)
	assert.Equal(t, "false", records[1].Metadata["has_caption"])
	assert.Equal(t, "1", records[1].Metadata["page_index"])
	assert.Equal(t, "blob://b.png", records[1].Metadata["image_path"])
}

func TestIndexBuilder_BuildInvalidatesCachedBundle(t *testing.T) {
	f := newRegistryFixture(t, 3, "d1")
	ctx := context.Background()
	builder := NewIndexBuilder(f.lexical, f.similarity, f.registry)

	stale, err := f.registry.Ensure(ctx, "d1")
	require.NoError(t, err)

	require.NoError(t, builder.Build(ctx, "d1", sampleChunks("d1"), sampleFigures("d1")))

	assert.False(t, f.registry.Contains("d1"))
	assert.True(t, stale.Closed())
	assert.Len(t, f.similarity.built("d1", driven.CollectionChunks), 2)
	assert.Len(t, f.similarity.built("d1", driven.CollectionCaptions), 2)

	fresh, err := f.registry.Ensure(ctx, "d1")
	require.NoError(t, err)
	hits, err := fresh.Lexical.Index.Query(ctx, "pump", domain.HitTypeAny, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestIndexBuilder_Drop(t *testing.T) {
	f := newRegistryFixture(t, 3, "d1")
	ctx := context.Background()
	builder := NewIndexBuilder(f.lexical, f.similarity, f.registry)

	require.NoError(t, builder.Drop(ctx, "d1"))

	assert.Equal(t, []string{"d1"}, f.lexical.dropped)
	assert.Equal(t, []string{"d1"}, f.similarity.dropped)

	b, err := f.registry.Ensure(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, b.Lexical.Loaded)
}
