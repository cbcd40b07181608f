package driven

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// PostProcessor processes document text to produce chunks.
// PostProcessors are chained in a pipeline (normalisation, then chunking).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes the working text and returns chunks.
	// A processor that rewrites text (e.g., normaliser) mutates doc.Text and
	// passes chunks through. A processor that creates chunks (e.g., chunker)
	// receives nil and returns new chunks.
	Process(ctx context.Context, doc *domain.DocumentText, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the text through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.DocumentText) ([]domain.Chunk, error)
}
