package domain

import "fmt"

// HitType identifies what a search hit points at.
type HitType string

// Hit types.
const (
	HitTypeChunk        HitType = "chunk"
	HitTypeImageCaption HitType = "image_caption"

	// HitTypeAny disables type filtering on lexical queries.
	HitTypeAny HitType = ""
)

// IsValid returns true if the hit type is recognised.
func (t HitType) IsValid() bool {
	switch t {
	case HitTypeChunk, HitTypeImageCaption, HitTypeAny:
		return true
	default:
		return false
	}
}

// ParseHitType converts user input into a HitType.
func ParseHitType(s string) (HitType, error) {
	switch s {
	case "", "any", "all":
		return HitTypeAny, nil
	case "chunk", "chunks", "text":
		return HitTypeChunk, nil
	case "image_caption", "caption", "captions", "figure", "figures":
		return HitTypeImageCaption, nil
	default:
		return HitTypeAny, fmt.Errorf("%w: unknown hit type %q", ErrInvalidInput, s)
	}
}

// SearchHit is a single lexical or vector result.
type SearchHit struct {
	// ID is the chunk id or figure id, the join key for fusion.
	ID   string
	Type HitType

	// Order is the chunk index or figure image index.
	Order int

	// PageIndex is -1 for chunks.
	PageIndex int

	// Path is the figure image location, empty for chunks.
	Path string

	// Score is the raw engine score, higher is better.
	Score float64

	// Text is a preview of the chunk or the figure caption.
	Text string
}

// HybridHit is a fused result with normalised component scores.
type HybridHit struct {
	SearchHit

	LexicalScore float64
	VectorScore  float64
	HybridScore  float64
}

// HybridWeights are the linear fusion weights.
// They are not required to sum to 1.
type HybridWeights struct {
	Lexical float64
	Vector  float64
}

// DefaultHybridWeights favours similarity over lexical matches.
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{Lexical: 0.3, Vector: 0.7}
}

// BalancedHybridWeights weighs both lists equally.
func BalancedHybridWeights() HybridWeights {
	return HybridWeights{Lexical: 0.5, Vector: 0.5}
}

// Validate rejects negative or all-zero weights.
func (w HybridWeights) Validate() error {
	if w.Lexical < 0 || w.Vector < 0 {
		return fmt.Errorf("%w: hybrid weights must be non-negative", ErrConfiguration)
	}
	if w.Lexical == 0 && w.Vector == 0 {
		return fmt.Errorf("%w: at least one hybrid weight must be positive", ErrConfiguration)
	}
	return nil
}

// Sum returns the maximum attainable hybrid score.
func (w HybridWeights) Sum() float64 {
	return w.Lexical + w.Vector
}

// SearchTarget selects the collection a vector or hybrid search runs on.
type SearchTarget string

// Search targets.
const (
	SearchTargetChunks   SearchTarget = "chunks"
	SearchTargetCaptions SearchTarget = "captions"
)

// IsValid returns true if the target is recognised.
func (t SearchTarget) IsValid() bool {
	return t == SearchTargetChunks || t == SearchTargetCaptions
}

// HitType returns the lexical type filter matching the target.
func (t SearchTarget) HitType() HitType {
	if t == SearchTargetCaptions {
		return HitTypeImageCaption
	}
	return HitTypeChunk
}

// HybridOptions configures a hybrid search.
type HybridOptions struct {
	// K is the number of fused results to return.
	K int

	// Weights overrides the defaults for the target when non-nil.
	Weights *HybridWeights

	// Target is the collection to search, chunks by default.
	Target SearchTarget
}
