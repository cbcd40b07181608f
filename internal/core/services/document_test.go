package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

func newDocumentFixture(t *testing.T) (*retrievalFixture, *fakeBlobStore, *DocumentService, *bool) {
	t.Helper()
	f := newRetrievalFixture(t)
	blobs := newFakeBlobStore()
	ctx := context.Background()
	_, err := blobs.Put(ctx, []byte("png"), docA+"/images/page_0_image_0.png")
	require.NoError(t, err)
	_, err = blobs.Put(ctx, []byte("png"), docB+"/images/page_0_image_0.png")
	require.NoError(t, err)

	reset := false
	svc := NewDocumentService(f.store, f.store, blobs,
		NewIndexBuilder(f.lexical, f.similarity, f.registry), f.registry,
		WithActiveReset(func() error {
			reset = true
			return nil
		}))
	return f, blobs, svc, &reset
}

func TestDocumentService_ListAndGet(t *testing.T) {
	f, _, svc, _ := newDocumentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveDocument(ctx, &domain.Document{ID: docB}))

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	doc, err := svc.Get(ctx, docA)
	require.NoError(t, err)
	assert.Equal(t, "pumps", doc.Title)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentID)

	_, err = svc.Get(ctx, "00000000-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Figures(t *testing.T) {
	_, _, svc, _ := newDocumentFixture(t)

	figures, err := svc.Figures(context.Background(), docA)

	require.NoError(t, err)
	require.Len(t, figures, 3)
	assert.Equal(t, "p0000_v00", figures[0].ID)
}

func TestDocumentService_Delete(t *testing.T) {
	f, blobs, svc, reset := newDocumentFixture(t)
	ctx := context.Background()
	_, err := f.registry.Ensure(ctx, docA)
	require.NoError(t, err)
	f.registry.SetActive(docA)

	require.NoError(t, svc.Delete(ctx, docA))

	_, err = f.store.GetDocument(ctx, docA)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{"blob://" + docB + "/images/page_0_image_0.png"}, blobs.keys())
	assert.Contains(t, f.lexical.dropped, docA)
	assert.Empty(t, f.similarity.built(docA, driven.CollectionChunks))
	assert.False(t, f.registry.Contains(docA))

	_, ok := f.registry.Active()
	assert.False(t, ok)
	assert.True(t, *reset)
}

func TestDocumentService_Delete_KeepsOtherActiveDocument(t *testing.T) {
	f, _, svc, reset := newDocumentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveDocument(ctx, &domain.Document{ID: docB}))
	f.registry.SetActive(docB)

	require.NoError(t, svc.Delete(ctx, docA))

	active, ok := f.registry.Active()
	assert.True(t, ok)
	assert.Equal(t, docB, active)
	assert.False(t, *reset)
}

func TestDocumentService_Delete_Unknown(t *testing.T) {
	_, _, svc, _ := newDocumentFixture(t)

	err := svc.Delete(context.Background(), docB)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
