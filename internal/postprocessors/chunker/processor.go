// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 300

// Processor splits document text into overlapping fixed-size windows.
// Sizes are counted in characters (runes), not bytes.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

func build(opts []Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// New creates a chunker, clamping invalid settings:
// size below 1 becomes 1, negative overlap becomes 0 and overlap of at
// least size becomes size-1.
func New(opts ...Option) *Processor {
	p := build(opts)
	if p.chunkSize < 1 {
		p.chunkSize = 1
	}
	if p.overlap < 0 {
		p.overlap = 0
	}
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize - 1
	}
	return p
}

// NewStrict creates a chunker and rejects invalid settings with
// domain.ErrConfiguration instead of clamping them.
func NewStrict(opts ...Option) (*Processor, error) {
	p := build(opts)
	switch {
	case p.chunkSize < 1:
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrConfiguration, p.chunkSize)
	case p.overlap < 0:
		return nil, fmt.Errorf("%w: overlap %d must not be negative", domain.ErrConfiguration, p.overlap)
	case p.overlap >= p.chunkSize:
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrConfiguration, p.overlap, p.chunkSize)
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the effective window size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the working text into chunks.
// Input chunks are ignored; this processor creates new chunks from the text.
func (p *Processor) Process(_ context.Context, doc *domain.DocumentText, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document text is nil", domain.ErrInvalidInput)
	}
	return p.Chunk(doc.DocumentID, doc.Text), nil
}

// Chunk splits text into trimmed windows of chunkSize characters
// advancing by chunkSize-overlap. Empty windows are dropped and ids are
// assigned 1-based over the emitted chunks. The result depends only on
// (text, chunkSize, overlap).
func (p *Processor) Chunk(documentID, text string) []domain.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	if step <= 0 {
		step = p.chunkSize
	}

	chunks := make([]domain.Chunk, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + p.chunkSize
		if end > n {
			end = n
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			index := len(chunks) + 1
			chunks = append(chunks, domain.Chunk{
				ID:         domain.ChunkID(index),
				DocumentID: documentID,
				Index:      index,
				Start:      start,
				End:        end,
				Content:    content,
			})
		}

		if end >= n {
			break
		}
	}

	return chunks
}
