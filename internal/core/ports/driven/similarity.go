package driven

import "context"

// Collection names a per-document similarity index.
type Collection string

// Collections.
const (
	CollectionChunks   Collection = "chunks"
	CollectionCaptions Collection = "captions"
)

// SimilarityRecord is one entry fed to a similarity index.
type SimilarityRecord struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// SimilarityHit is a similarity query result. Score is higher-is-better.
type SimilarityHit struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float64
}

// SimilarityEngine builds and loads per-document vector indices.
// Implementations embed record text with the EmbeddingService they
// were constructed with.
type SimilarityEngine interface {
	// Build replaces the collection's index with the given records.
	Build(ctx context.Context, docID string, coll Collection, records []SimilarityRecord) error

	// Load returns a handle to an existing index.
	// Returns domain.ErrMissingResource if it was never built and
	// domain.ErrCorruptResource if it cannot be read.
	Load(ctx context.Context, docID string, coll Collection) (SimilarityIndex, error)

	// Drop deletes every collection of the document.
	Drop(ctx context.Context, docID string) error
}

// SimilarityIndex is a loaded vector index. Safe for concurrent queries.
type SimilarityIndex interface {
	// QueryText embeds text and returns the k nearest records.
	QueryText(ctx context.Context, text string, k int) ([]SimilarityHit, error)

	// QueryVector returns the k nearest records to vec.
	QueryVector(ctx context.Context, vec []float32, k int) ([]SimilarityHit, error)

	// Close releases the handle.
	Close() error
}
