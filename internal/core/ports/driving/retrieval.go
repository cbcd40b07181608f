package driving

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// RetrievalService serves per-document searches to the CLI and agent tools.
//
// Every docID parameter may be empty, in which case the active document
// is used. Missing indices yield empty results; corrupt indices and
// malformed document ids yield errors.
type RetrievalService interface {
	// SetActiveDocument validates and loads docID and makes it active.
	SetActiveDocument(ctx context.Context, docID string) error

	// ActiveDocument returns the active document id, if any.
	ActiveDocument() (string, bool)

	// SearchLexical runs a keyword query filtered by hit type.
	SearchLexical(ctx context.Context, docID, query string, typ domain.HitType, limit int) ([]domain.SearchHit, error)

	// SearchVector runs a similarity query over chunks.
	SearchVector(ctx context.Context, docID, query string, k int) ([]domain.SearchHit, error)

	// SearchCaptions runs a similarity query over figure captions.
	SearchCaptions(ctx context.Context, docID, query string, k int) ([]domain.SearchHit, error)

	// SearchHybrid fuses lexical and similarity results.
	SearchHybrid(ctx context.Context, docID, query string, opts domain.HybridOptions) ([]domain.HybridHit, error)

	// GetChunks returns chunks by id. Accepts "1", "0001" and "chunk_0001".
	GetChunks(ctx context.Context, docID string, ids []string) ([]domain.Chunk, error)
}
