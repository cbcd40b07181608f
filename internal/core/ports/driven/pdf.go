package driven

import (
	"context"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// PDFToolkit opens PDF files for extraction.
type PDFToolkit interface {
	// Open parses the file at path.
	Open(ctx context.Context, path string) (PDFDocument, error)
}

// PDFDocument is an opened PDF. It is not safe for concurrent use.
type PDFDocument interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Page returns the page at the 0-based index.
	Page(index int) (PDFPage, error)

	// Close releases the underlying file.
	Close() error
}

// PDFPage exposes the extraction primitives of one page.
// All geometry is in top-left page space.
type PDFPage interface {
	// Index returns the 0-based page number.
	Index() int

	// Size returns the page width and height in points.
	Size() (width, height float64)

	// Text returns the raw page text.
	Text() (string, error)

	// Images returns the embedded bitmap images encoded as PNG.
	Images() ([]domain.BitmapImage, error)

	// DrawingGroups returns the painted vector paths.
	DrawingGroups() ([]domain.DrawingGroup, error)

	// WordBoxes returns the words in reading order.
	WordBoxes() ([]domain.WordBox, error)

	// Render rasterises the given region at dpi and returns PNG bytes.
	Render(rect domain.Rect, dpi int) ([]byte, error)
}
