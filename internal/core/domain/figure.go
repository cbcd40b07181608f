package domain

import "fmt"

// FigureCandidate is a rectangle hypothesised to enclose a vector graphic.
type FigureCandidate struct {
	Rect Rect

	// Segments is the aggregate count of shape-producing path operations.
	Segments int

	// AvgStroke is the segment-weighted mean stroke width.
	AvgStroke float64
}

// Area returns the candidate rectangle's area.
func (c FigureCandidate) Area() float64 {
	return c.Rect.Area()
}

// FigureRegion is a scored candidate with its caption.
type FigureRegion struct {
	FigureCandidate

	Score       float64
	WordsInside int
	HasCaption  bool
	Caption     string

	// ImagePath is the rasterised image location, empty until rendered.
	ImagePath string

	DocumentPath string
	PageIndex    int
}

// FigureKind distinguishes embedded bitmaps from detected vector figures.
type FigureKind string

// Figure kinds.
const (
	FigureKindBitmap FigureKind = "bitmap"
	FigureKindVector FigureKind = "vector"
)

// FigureRecord is the persisted figure-metadata row.
// Its columns are read by the indexer and by figure listings.
type FigureRecord struct {
	ID         string
	DocumentID string
	Kind       FigureKind
	PageIndex  int
	ImageIndex int
	ImagePath  string
	HasCaption bool
	Caption    string
	Width      int
	Height     int
}

// FigureID returns the stable id of the n-th figure of a page.
func FigureID(kind FigureKind, pageIndex, imageIndex int) string {
	if kind == FigureKindVector {
		return fmt.Sprintf("p%04d_v%02d", pageIndex, imageIndex)
	}
	return fmt.Sprintf("p%04d_i%02d", pageIndex, imageIndex)
}

// BitmapImage is an embedded raster image decoded from a page.
type BitmapImage struct {
	// Index is the 0-based image number on the page.
	Index int

	// Name is the XObject resource name.
	Name string

	// Rect is where the image is painted. Valid only when Placed is true.
	Rect   Rect
	Placed bool

	Width  int
	Height int

	// PNG holds the encoded image.
	PNG []byte
}
