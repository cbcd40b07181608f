package driven

import "context"

// BlobStore stores opaque bytes such as figure images.
type BlobStore interface {
	// Put stores data under a key derived from hint and returns its URI.
	// Writing the same hint twice overwrites.
	Put(ctx context.Context, data []byte, hint string) (string, error)

	// Get returns the bytes at uri, or domain.ErrNotFound.
	Get(ctx context.Context, uri string) ([]byte, error)

	// Delete removes the object. Missing objects are not an error.
	Delete(ctx context.Context, uri string) error

	// DeletePrefix removes every object whose hint starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists reports whether uri is present.
	Exists(ctx context.Context, uri string) (bool, error)
}
