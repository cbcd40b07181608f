package domain

import "math"

// Rect is an axis-aligned rectangle in page space.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect returns a rectangle with normalised corners.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the horizontal extent, or 0 for inverted rectangles.
func (r Rect) Width() float64 {
	return math.Max(0, r.X1-r.X0)
}

// Height returns the vertical extent, or 0 for inverted rectangles.
func (r Rect) Height() float64 {
	return math.Max(0, r.Y1-r.Y0)
}

// Area returns Width * Height.
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Intersect returns the overlap of r and o. The result may be empty.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X0: math.Max(r.X0, o.X0),
		Y0: math.Max(r.Y0, o.Y0),
		X1: math.Min(r.X1, o.X1),
		Y1: math.Min(r.Y1, o.Y1),
	}
}

// Intersects reports whether r and o overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersect(o).IsEmpty()
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// IoU returns the intersection-over-union ratio of r and o.
func (r Rect) IoU(o Rect) float64 {
	inter := r.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Pad grows the rectangle by d on every side.
func (r Rect) Pad(d float64) Rect {
	return Rect{X0: r.X0 - d, Y0: r.Y0 - d, X1: r.X1 + d, Y1: r.Y1 + d}
}

// Clip restricts the rectangle to the given bounds.
func (r Rect) Clip(bounds Rect) Rect {
	return r.Intersect(bounds)
}

// WordBox is a single word with its bounding box.
// Block, Line and Word give the reading-order position on the page.
type WordBox struct {
	Rect  Rect
	Text  string
	Block int
	Line  int
	Word  int
}

// PathOpKind identifies a vector path operation.
type PathOpKind string

// Path operation kinds.
const (
	PathOpLine   PathOpKind = "l"
	PathOpCurve  PathOpKind = "c"
	PathOpRect   PathOpKind = "re"
	PathOpQuad   PathOpKind = "qu"
	PathOpShade  PathOpKind = "sh"
	PathOpFill   PathOpKind = "f"
	PathOpStroke PathOpKind = "s"
	PathOpMove   PathOpKind = "m"
	PathOpClose  PathOpKind = "h"
)

// PathOp is one operation of a drawing path.
type PathOp struct {
	Kind PathOpKind

	// Points holds the operation's transformed control points, if any.
	Points []Point
}

// Point is a position in page space.
type Point struct {
	X, Y float64
}

// IsShape reports whether the operation produces visible geometry.
func (op PathOp) IsShape() bool {
	switch op.Kind {
	case PathOpLine, PathOpCurve, PathOpRect, PathOpQuad, PathOpShade, PathOpFill, PathOpStroke:
		return true
	default:
		return false
	}
}

// DrawingGroup is one painted path: its bounds, its operations and the
// stroke widths observed while painting it.
type DrawingGroup struct {
	Rect         Rect
	Ops          []PathOp
	StrokeWidths []float64
}

// SegmentCount returns the number of shape-producing operations.
func (g DrawingGroup) SegmentCount() int {
	n := 0
	for _, op := range g.Ops {
		if op.IsShape() {
			n++
		}
	}
	return n
}

// MeanStrokeWidth returns the average observed stroke width, or 0.
func (g DrawingGroup) MeanStrokeWidth() float64 {
	if len(g.StrokeWidths) == 0 {
		return 0
	}
	var sum float64
	for _, w := range g.StrokeWidths {
		sum += w
	}
	return sum / float64(len(g.StrokeWidths))
}

// PageLayout is an immutable snapshot of one extracted page.
type PageLayout struct {
	// Index is the 0-based page number.
	Index int

	// Width and Height are the page size in points.
	Width  float64
	Height float64

	// Text is the raw page text.
	Text string

	// Drawings are the vector drawing groups in paint order.
	Drawings []DrawingGroup

	// Words are the word boxes in reading order.
	Words []WordBox
}

// Area returns the page area.
func (p PageLayout) Area() float64 {
	return p.Width * p.Height
}

// Bounds returns the page rectangle.
func (p PageLayout) Bounds() Rect {
	return Rect{X0: 0, Y0: 0, X1: p.Width, Y1: p.Height}
}
