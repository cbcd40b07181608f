package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
)

// Ensure UploadCache implements the interface.
var _ driven.UploadCacheStore = (*UploadCache)(nil)

// UploadCache is an in-memory implementation of driven.UploadCacheStore.
type UploadCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]domain.CachedUpload
}

// NewUploadCache creates an empty upload cache.
func NewUploadCache() *UploadCache {
	return &UploadCache{entries: make(map[string]map[string]domain.CachedUpload)}
}

// GetUpload returns the cached entry or domain.ErrNotFound.
func (c *UploadCache) GetUpload(_ context.Context, documentID, imageID string) (*domain.CachedUpload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.entries[documentID][imageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// PutUpload stores or replaces an entry.
func (c *UploadCache) PutUpload(_ context.Context, documentID string, upload domain.CachedUpload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.entries[documentID]
	if !ok {
		doc = make(map[string]domain.CachedUpload)
		c.entries[documentID] = doc
	}
	doc[upload.ImageID] = upload
	return nil
}

// ListUploads returns every entry of a document ordered by image id.
func (c *UploadCache) ListUploads(_ context.Context, documentID string) ([]domain.CachedUpload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]domain.CachedUpload, 0, len(c.entries[documentID]))
	for _, u := range c.entries[documentID] {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ImageID < result[j].ImageID })
	return result, nil
}

// DeleteUploads removes entries by image id.
func (c *UploadCache) DeleteUploads(_ context.Context, documentID string, imageIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc := c.entries[documentID]
	for _, id := range imageIDs {
		delete(doc, id)
	}
	if len(doc) == 0 {
		delete(c.entries, documentID)
	}
	return nil
}
