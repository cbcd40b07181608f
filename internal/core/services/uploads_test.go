package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

type uploadFixture struct {
	service  *UploadService
	cache    *memory.UploadCache
	uploader *fakeUploader
	clock    time.Time
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewDocumentStore()
	blobs := newFakeBlobStore()

	figures := sampleFigures(docA)
	for i, fig := range figures {
		uri, err := blobs.Put(ctx, []byte("png-bytes"), fig.ID+".png")
		require.NoError(t, err)
		figures[i].ImagePath = uri
	}
	require.NoError(t, store.SaveFigures(ctx, docA, figures))

	f := &uploadFixture{
		cache:    memory.NewUploadCache(),
		uploader: &fakeUploader{},
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewUploadService(f.cache, f.uploader, store, blobs, time.Hour)
	f.service.now = func() time.Time { return f.clock }
	return f
}

func TestUploadService_UploadsAndReuses(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	first, err := f.service.PrepareImages(ctx, docA, []string{"p0000_v00", "p0001_i00", "p0000_v00"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, domain.PreparedImage{ImageID: "p0000_v00", FileID: "file_001"}, first[0])
	assert.Equal(t, domain.PreparedImage{ImageID: "p0001_i00", FileID: "file_002"}, first[1])
	assert.Equal(t, []string{"p0000_v00.png", "p0001_i00.png"}, f.uploader.uploads)

	f.clock = f.clock.Add(30 * time.Minute)
	second, err := f.service.PrepareImages(ctx, docA, []string{"p0001_i00"})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].Cached)
	assert.Equal(t, "file_002", second[0].FileID)
	assert.Equal(t, 2, f.uploader.count())
}

func TestUploadService_ExpiredEntriesAreSweptAndReuploaded(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	_, err := f.service.PrepareImages(ctx, docA, []string{"p0000_v00", "p0001_i00"})
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	prepared, err := f.service.PrepareImages(ctx, docA, []string{"p0000_v00"})
	require.NoError(t, err)

	require.Len(t, prepared, 1)
	assert.False(t, prepared[0].Cached)
	assert.Equal(t, "file_003", prepared[0].FileID)

	// The other expired entry is gone, not resurrected.
	_, err = f.cache.GetUpload(ctx, docA, "p0001_i00")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadService_Sweep(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()
	now := f.clock
	require.NoError(t, f.cache.PutUpload(ctx, docA, domain.CachedUpload{ImageID: "a", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, f.cache.PutUpload(ctx, docA, domain.CachedUpload{ImageID: "b", ExpiresAt: now}))
	require.NoError(t, f.cache.PutUpload(ctx, docA, domain.CachedUpload{ImageID: "c", ExpiresAt: now.Add(time.Second)}))

	n, err := f.service.Sweep(ctx, docA, now)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	left, err := f.cache.ListUploads(ctx, docA)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "c", left[0].ImageID)
}

func TestUploadService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no uploader", func(t *testing.T) {
		svc := NewUploadService(memory.NewUploadCache(), nil, memory.NewDocumentStore(), newFakeBlobStore(), 0)
		_, err := svc.PrepareImages(ctx, docA, []string{"x"})
		assert.ErrorIs(t, err, domain.ErrUploaderUnavailable)
	})

	t.Run("bad document id", func(t *testing.T) {
		f := newUploadFixture(t)
		_, err := f.service.PrepareImages(ctx, "doc", []string{"x"})
		assert.ErrorIs(t, err, domain.ErrInvalidDocumentID)
	})

	t.Run("unknown image", func(t *testing.T) {
		f := newUploadFixture(t)
		_, err := f.service.PrepareImages(ctx, docA, []string{"p0099_i00"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("upload failure is not cached", func(t *testing.T) {
		f := newUploadFixture(t)
		boom := errors.New("429 rate limited")
		f.uploader.err = boom

		_, err := f.service.PrepareImages(ctx, docA, []string{"p0000_v00"})
		assert.ErrorIs(t, err, boom)

		entries, err := f.cache.ListUploads(ctx, docA)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestNewUploadService_DefaultTTL(t *testing.T) {
	svc := NewUploadService(memory.NewUploadCache(), &fakeUploader{}, memory.NewDocumentStore(), newFakeBlobStore(), 0)
	assert.Equal(t, DefaultUploadTTL, svc.ttl)
}
