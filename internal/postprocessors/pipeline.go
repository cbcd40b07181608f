// Package postprocessors turns the extracted text of a PDF into chunks.
// Text stages (the normaliser) rewrite the working text; the chunker
// then cuts it into windows.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order over a private copy of the document
// text, so callers keep the raw extraction.
type Pipeline struct {
	stages []driven.PostProcessor
}

func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: processors}
}

// Process returns the chunks left after the last stage. An empty pipeline
// yields no chunks.
func (p *Pipeline) Process(ctx context.Context, doc *domain.DocumentText) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document text is nil", domain.ErrInvalidInput)
	}
	work := *doc

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := stage.Process(ctx, &work, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		logger.Debug("%s: %s -> %d chunks", work.DocumentID, stage.Name(), len(out))
		chunks = out
	}
	return chunks, nil
}

func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.stages = append(p.stages, processor)
}

func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Names lists the stages in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
