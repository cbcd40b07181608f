package driven

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// LexicalRecord is one entry fed to a lexical index.
type LexicalRecord struct {
	ID        string
	Type      domain.HitType
	Order     int
	PageIndex int
	Path      string
	Content   string
}

// LexicalHit is a lexical query result. Score is higher-is-better.
type LexicalHit struct {
	ID        string
	Type      domain.HitType
	Order     int
	PageIndex int
	Path      string
	Score     float64
}

// LexicalEngine builds and opens per-document keyword indices.
// The tokenizer and ranking function belong to the implementation.
type LexicalEngine interface {
	// Build replaces the document's index with the given records.
	Build(ctx context.Context, docID string, records []LexicalRecord) error

	// Open returns a handle to an existing index.
	// Returns domain.ErrMissingResource if the index was never built and
	// domain.ErrCorruptResource if it exists but cannot be read.
	Open(ctx context.Context, docID string) (LexicalIndex, error)

	// Drop deletes the document's index. Missing indices are not an error.
	Drop(ctx context.Context, docID string) error
}

// LexicalIndex is an open keyword index. Safe for concurrent queries.
type LexicalIndex interface {
	// Query returns up to limit hits for text, filtered by type unless
	// typ is domain.HitTypeAny.
	Query(ctx context.Context, text string, typ domain.HitType, limit int) ([]LexicalHit, error)

	// Close releases the handle.
	Close() error
}
