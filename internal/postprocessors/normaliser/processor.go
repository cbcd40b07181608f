// Package normaliser prepares extracted PDF text for chunking.
package normaliser

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var replacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\f", "\n",
	"\u00a0", " ",
	"\u00ad", "",
)

// Processor turns page separators into newlines, unifies line endings,
// drops soft hyphens and applies Unicode NFC.
// It implements the PostProcessor interface and passes chunks through.
type Processor struct{}

// New creates a normaliser.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "normaliser"
}

// Process rewrites doc.Text in place.
func (p *Processor) Process(_ context.Context, doc *domain.DocumentText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document text is nil", domain.ErrInvalidInput)
	}
	doc.Text = Normalise(doc.Text)
	return chunks, nil
}

// Normalise applies the normaliser to a string.
func Normalise(text string) string {
	return norm.NFC.String(replacer.Replace(text))
}
