package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Ensure UploadService implements the interface.
var _ driving.UploadService = (*UploadService)(nil)

// DefaultUploadTTL is how long a remote file id is reused.
const DefaultUploadTTL = 12 * time.Hour

// UploadService uploads figure images to a remote file API and caches
// the returned file ids per document.
type UploadService struct {
	cache    driven.UploadCacheStore
	uploader driven.FileUploader
	figures  driven.FigureStore
	blobs    driven.BlobStore
	ttl      time.Duration
	now      func() time.Time
}

// NewUploadService creates an upload service. A nil uploader makes
// PrepareImages return ErrUploaderUnavailable.
func NewUploadService(
	cache driven.UploadCacheStore,
	uploader driven.FileUploader,
	figures driven.FigureStore,
	blobs driven.BlobStore,
	ttl time.Duration,
) *UploadService {
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}
	return &UploadService{
		cache:    cache,
		uploader: uploader,
		figures:  figures,
		blobs:    blobs,
		ttl:      ttl,
		now:      time.Now,
	}
}

// PrepareImages returns remote file ids for imageIDs in request order.
// Unexpired cache entries are reused; everything else is uploaded.
// Expired entries of the document are swept first.
func (s *UploadService) PrepareImages(ctx context.Context, documentID string, imageIDs []string) ([]domain.PreparedImage, error) {
	if s.uploader == nil {
		return nil, domain.ErrUploaderUnavailable
	}
	if err := ValidateDocumentID(documentID); err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.Sweep(ctx, documentID, now); err != nil {
		return nil, err
	}

	prepared := make([]domain.PreparedImage, 0, len(imageIDs))
	seen := make(map[string]bool, len(imageIDs))
	for _, imageID := range imageIDs {
		if seen[imageID] {
			continue
		}
		seen[imageID] = true

		cached, err := s.cache.GetUpload(ctx, documentID, imageID)
		switch {
		case err == nil && !cached.Expired(now):
			prepared = append(prepared, domain.PreparedImage{ImageID: imageID, FileID: cached.FileID, Cached: true})
			continue
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("read upload cache: %w", err)
		}

		fileID, imagePath, err := s.upload(ctx, documentID, imageID)
		if err != nil {
			return nil, err
		}
		entry := domain.CachedUpload{
			ImageID:    imageID,
			FileID:     fileID,
			ImagePath:  imagePath,
			UploadedAt: now,
			ExpiresAt:  now.Add(s.ttl),
		}
		if err := s.cache.PutUpload(ctx, documentID, entry); err != nil {
			return nil, fmt.Errorf("write upload cache: %w", err)
		}
		prepared = append(prepared, domain.PreparedImage{ImageID: imageID, FileID: fileID})
	}
	return prepared, nil
}

// Sweep deletes every entry of the document that expired at now and
// returns how many were removed.
func (s *UploadService) Sweep(ctx context.Context, documentID string, now time.Time) (int, error) {
	entries, err := s.cache.ListUploads(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("list upload cache: %w", err)
	}
	var expired []string
	for _, e := range entries {
		if e.Expired(now) {
			expired = append(expired, e.ImageID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.cache.DeleteUploads(ctx, documentID, expired); err != nil {
		return 0, fmt.Errorf("sweep upload cache: %w", err)
	}
	logger.Debug("Swept %d expired uploads for %s", len(expired), documentID)
	return len(expired), nil
}

func (s *UploadService) upload(ctx context.Context, documentID, imageID string) (string, string, error) {
	fig, err := s.figures.GetFigure(ctx, documentID, imageID)
	if err != nil {
		return "", "", fmt.Errorf("image %s: %w", imageID, err)
	}
	data, err := s.blobs.Get(ctx, fig.ImagePath)
	if err != nil {
		return "", "", fmt.Errorf("read image %s: %w", imageID, err)
	}
	fileID, err := s.uploader.Upload(ctx, imageID+path.Ext(fig.ImagePath), data, "image/png")
	if err != nil {
		return "", "", fmt.Errorf("upload image %s: %w", imageID, err)
	}
	logger.Debug("Uploaded %s as %s", imageID, fileID)
	return fileID, fig.ImagePath, nil
}
