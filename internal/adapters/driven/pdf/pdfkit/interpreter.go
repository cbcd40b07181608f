package pdfkit

import (
	"image/color"
	"math"
	"sync"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// parseMu guards every call into tabula's content-stream parser, which
// keeps its operand stack in a package variable.
var parseMu sync.Mutex

// curveSteps is the number of line segments a cubic Bezier is flattened to.
const curveSteps = 16

// paintedPath is one painted path with everything needed to rasterise it.
type paintedPath struct {
	group domain.DrawingGroup

	// subpaths are flattened polylines in page space.
	subpaths [][]domain.Point

	fill, stroke bool
	evenOdd      bool
	fillColor    color.RGBA
	strokeColor  color.RGBA

	// lineWidth is the stroke width in page space.
	lineWidth float64
}

// placement is where an XObject was painted.
type placement struct {
	name string
	rect domain.Rect
}

// pageContent is the interpreted vector content of a page.
type pageContent struct {
	paths      []paintedPath
	placements []placement
}

// pageSpace maps PDF user space (origin bottom-left of the media box)
// to top-left page space.
type pageSpace struct {
	x0, y1 float64
}

func (s pageSpace) point(ctm model.Matrix, x, y float64) domain.Point {
	p := ctm.Transform(model.Point{X: x, Y: y})
	return domain.Point{X: p.X - s.x0, Y: s.y1 - p.Y}
}

// parseContent parses raw content-stream bytes.
func parseContent(data []byte) ([]contentstream.Operation, error) {
	parseMu.Lock()
	defer parseMu.Unlock()
	return contentstream.NewParser(data).Parse()
}

// interpreter walks content-stream operations and records painted paths
// and XObject placements.
type interpreter struct {
	space pageSpace
	gs    *graphicsstate.GraphicsState

	ops      []domain.PathOp
	subpaths [][]domain.Point
	current  []domain.Point
	start    domain.Point
	hasStart bool

	out pageContent
}

func newInterpreter(space pageSpace) *interpreter {
	return &interpreter{space: space, gs: graphicsstate.NewGraphicsState()}
}

// interpret runs ops and returns the page content.
func interpret(ops []contentstream.Operation, space pageSpace) pageContent {
	in := newInterpreter(space)
	for _, op := range ops {
		in.apply(op)
	}
	return in.out
}

func (in *interpreter) apply(op contentstream.Operation) {
	nums := numbers(op.Operands)

	switch op.Operator {
	case "q":
		in.gs.Save()
	case "Q":
		// An unbalanced Q is ignored, as viewers do.
		_ = in.gs.Restore()
	case "cm":
		if len(nums) == 6 {
			m := model.Matrix{nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]}
			in.gs.CTM = m.Multiply(in.gs.CTM)
		}
	case "w":
		if len(nums) == 1 {
			in.gs.SetLineWidth(nums[0])
		}

	case "G", "RG", "K", "SC", "SCN":
		if r, g, b, ok := colorOperands(nums); ok {
			in.gs.SetStrokeColorRGB(r, g, b)
		}
	case "g", "rg", "k", "sc", "scn":
		if r, g, b, ok := colorOperands(nums); ok {
			in.gs.SetFillColorRGB(r, g, b)
		}

	case "m":
		if len(nums) == 2 {
			in.moveTo(nums[0], nums[1])
		}
	case "l":
		if len(nums) == 2 {
			in.lineTo(nums[0], nums[1])
		}
	case "c":
		if len(nums) == 6 {
			in.curveTo(nums[0], nums[1], nums[2], nums[3], nums[4], nums[5])
		}
	case "v":
		if len(nums) == 4 && len(in.current) > 0 {
			cur := in.current[len(in.current)-1]
			in.curveToPage(cur, in.space.point(in.gs.CTM, nums[0], nums[1]), in.space.point(in.gs.CTM, nums[2], nums[3]))
		}
	case "y":
		if len(nums) == 4 {
			end := in.space.point(in.gs.CTM, nums[2], nums[3])
			in.curveToPage(in.space.point(in.gs.CTM, nums[0], nums[1]), end, end)
		}
	case "h":
		in.closePath()
	case "re":
		if len(nums) == 4 {
			in.rectangle(nums[0], nums[1], nums[2], nums[3])
		}

	case "S":
		in.paint(false, true, false)
	case "s":
		in.closePath()
		in.paint(false, true, false)
	case "f", "F":
		in.paint(true, false, false)
	case "f*":
		in.paint(true, false, true)
	case "B":
		in.paint(true, true, false)
	case "B*":
		in.paint(true, true, true)
	case "b":
		in.closePath()
		in.paint(true, true, false)
	case "b*":
		in.closePath()
		in.paint(true, true, true)
	case "n":
		in.discard()

	case "Do":
		if len(op.Operands) == 1 {
			if name, ok := op.Operands[0].(core.Name); ok {
				in.place(string(name))
			}
		}
	}
}

func (in *interpreter) moveTo(x, y float64) {
	in.flushSubpath()
	p := in.space.point(in.gs.CTM, x, y)
	in.current = []domain.Point{p}
	in.start, in.hasStart = p, true
	in.ops = append(in.ops, domain.PathOp{Kind: domain.PathOpMove, Points: []domain.Point{p}})
}

func (in *interpreter) lineTo(x, y float64) {
	p := in.space.point(in.gs.CTM, x, y)
	if len(in.current) == 0 {
		in.current = []domain.Point{p}
		in.start, in.hasStart = p, true
		return
	}
	from := in.current[len(in.current)-1]
	in.current = append(in.current, p)
	in.ops = append(in.ops, domain.PathOp{Kind: domain.PathOpLine, Points: []domain.Point{from, p}})
}

func (in *interpreter) curveTo(x1, y1, x2, y2, x3, y3 float64) {
	in.curveToPage(
		in.space.point(in.gs.CTM, x1, y1),
		in.space.point(in.gs.CTM, x2, y2),
		in.space.point(in.gs.CTM, x3, y3),
	)
}

func (in *interpreter) curveToPage(c1, c2, end domain.Point) {
	if len(in.current) == 0 {
		in.current = []domain.Point{end}
		in.start, in.hasStart = end, true
		return
	}
	from := in.current[len(in.current)-1]
	for i := 1; i <= curveSteps; i++ {
		in.current = append(in.current, bezier(from, c1, c2, end, float64(i)/curveSteps))
	}
	in.ops = append(in.ops, domain.PathOp{Kind: domain.PathOpCurve, Points: []domain.Point{from, c1, c2, end}})
}

func (in *interpreter) rectangle(x, y, w, h float64) {
	in.flushSubpath()
	corners := []domain.Point{
		in.space.point(in.gs.CTM, x, y),
		in.space.point(in.gs.CTM, x+w, y),
		in.space.point(in.gs.CTM, x+w, y+h),
		in.space.point(in.gs.CTM, x, y+h),
	}
	in.subpaths = append(in.subpaths, append(corners, corners[0]))
	in.ops = append(in.ops, domain.PathOp{Kind: domain.PathOpRect, Points: corners})
	in.start, in.hasStart = corners[0], true
}

func (in *interpreter) closePath() {
	if len(in.current) > 1 && in.hasStart {
		in.current = append(in.current, in.start)
		in.ops = append(in.ops, domain.PathOp{Kind: domain.PathOpClose})
	}
	in.flushSubpath()
}

func (in *interpreter) flushSubpath() {
	if len(in.current) > 1 {
		in.subpaths = append(in.subpaths, in.current)
	}
	in.current = nil
}

func (in *interpreter) discard() {
	in.ops, in.subpaths, in.current, in.hasStart = nil, nil, nil, false
}

// paint turns the pending path into a painted path.
func (in *interpreter) paint(fill, stroke, evenOdd bool) {
	in.flushSubpath()
	defer in.discard()

	if len(in.subpaths) == 0 {
		return
	}

	rect, ok := bounds(in.subpaths)
	if !ok {
		return
	}

	width := in.gs.LineWidth * ctmScale(in.gs.CTM)
	group := domain.DrawingGroup{Rect: rect, Ops: in.ops}
	if stroke {
		for _, op := range in.ops {
			if op.IsShape() {
				group.StrokeWidths = append(group.StrokeWidths, width)
			}
		}
	}

	in.out.paths = append(in.out.paths, paintedPath{
		group:       group,
		subpaths:    in.subpaths,
		fill:        fill,
		stroke:      stroke,
		evenOdd:     evenOdd,
		fillColor:   toRGBA(in.gs.FillColor),
		strokeColor: toRGBA(in.gs.StrokeColor),
		lineWidth:   width,
	})
}

// place records the unit square mapped through the CTM.
func (in *interpreter) place(name string) {
	pts := [][]domain.Point{{
		in.space.point(in.gs.CTM, 0, 0),
		in.space.point(in.gs.CTM, 1, 0),
		in.space.point(in.gs.CTM, 1, 1),
		in.space.point(in.gs.CTM, 0, 1),
	}}
	if rect, ok := bounds(pts); ok {
		in.out.placements = append(in.out.placements, placement{name: name, rect: rect})
	}
}

func bounds(subpaths [][]domain.Point) (domain.Rect, bool) {
	first := true
	var r domain.Rect
	for _, sp := range subpaths {
		for _, p := range sp {
			if first {
				r = domain.Rect{X0: p.X, Y0: p.Y, X1: p.X, Y1: p.Y}
				first = false
				continue
			}
			r.X0 = math.Min(r.X0, p.X)
			r.Y0 = math.Min(r.Y0, p.Y)
			r.X1 = math.Max(r.X1, p.X)
			r.Y1 = math.Max(r.Y1, p.Y)
		}
	}
	return r, !first
}

func bezier(p0, p1, p2, p3 domain.Point, t float64) domain.Point {
	mt := 1 - t
	a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
	return domain.Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// ctmScale is the mean linear scale factor of m.
func ctmScale(m model.Matrix) float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

func numbers(operands []core.Object) []float64 {
	out := make([]float64, 0, len(operands))
	for _, o := range operands {
		switch v := o.(type) {
		case core.Int:
			out = append(out, float64(v))
		case core.Real:
			out = append(out, float64(v))
		}
	}
	return out
}

// colorOperands converts gray, RGB or CMYK components to RGB.
func colorOperands(nums []float64) (r, g, b float64, ok bool) {
	switch len(nums) {
	case 1:
		return nums[0], nums[0], nums[0], true
	case 3:
		return nums[0], nums[1], nums[2], true
	case 4:
		c, m, y, k := nums[0], nums[1], nums[2], nums[3]
		return (1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k), true
	default:
		return 0, 0, 0, false
	}
}

func toRGBA(c [3]float64) color.RGBA {
	ch := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return color.RGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: 255}
}
