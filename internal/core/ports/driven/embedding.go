package driven

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// EmbeddingService turns chunk and caption text into vectors. A
// SimilarityEngine owns one and uses it for both building and querying, so
// an index is only ever compared with vectors from the same model.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is 0 while the size of a remote model is still unknown.
	Dimensions() int
	// ModelName is stored next to built vectors and checked on load.
	ModelName() string

	// Ping is a cheap reachability check run before ingesting.
	Ping(ctx context.Context) error
	Close() error
}

// AIConfigValidator pings the provider described by settings before they
// are reported as working.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
}
