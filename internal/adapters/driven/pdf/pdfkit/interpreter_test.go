package pdfkit

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var letter = pageSpace{x0: 0, y1: 800}

func run(t *testing.T, content string) pageContent {
	t.Helper()
	ops, err := parseContent([]byte(content))
	require.NoError(t, err)
	return interpret(ops, letter)
}

func TestInterpret_StrokedPathUnderCTM(t *testing.T) {
	got := run(t, "q 2 0 0 2 10 10 cm 1 w 0 0 m 10 0 l 10 10 l S Q")

	require.Len(t, got.paths, 1)
	g := got.paths[0].group
	assert.Equal(t, domain.Rect{X0: 10, Y0: 770, X1: 30, Y1: 790}, g.Rect)
	assert.Equal(t, 2, g.SegmentCount())
	assert.Equal(t, []float64{2, 2}, g.StrokeWidths)
	assert.Equal(t, 2.0, g.MeanStrokeWidth())
	assert.True(t, got.paths[0].stroke)
	assert.False(t, got.paths[0].fill)
}

func TestInterpret_CTMComposesInOrder(t *testing.T) {
	// Translate then scale: the scale applies in the translated frame.
	got := run(t, "1 0 0 1 100 100 cm 2 0 0 2 0 0 cm 0 0 m 10 0 l S")

	require.Len(t, got.paths, 1)
	assert.Equal(t, domain.Rect{X0: 100, Y0: 700, X1: 120, Y1: 700}, got.paths[0].group.Rect)
}

func TestInterpret_FilledRectangle(t *testing.T) {
	got := run(t, "0 0 1 rg 100 100 50 20 re f")

	require.Len(t, got.paths, 1)
	p := got.paths[0]
	assert.Equal(t, domain.Rect{X0: 100, Y0: 680, X1: 150, Y1: 700}, p.group.Rect)
	assert.Equal(t, []domain.PathOpKind{domain.PathOpRect}, kinds(p.group.Ops))
	assert.Empty(t, p.group.StrokeWidths)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, p.fillColor)
	assert.True(t, p.fill)
}

func TestInterpret_CurveCountsOnce(t *testing.T) {
	got := run(t, "0 0 m 10 20 30 20 40 0 c h S")

	require.Len(t, got.paths, 1)
	g := got.paths[0].group
	assert.Equal(t, []domain.PathOpKind{domain.PathOpMove, domain.PathOpCurve, domain.PathOpClose}, kinds(g.Ops))
	assert.Equal(t, 1, g.SegmentCount())
	// flattened polyline plus the closing point
	assert.Len(t, got.paths[0].subpaths[0], curveSteps+2)
}

func TestInterpret_EndPathDiscards(t *testing.T) {
	got := run(t, "0 0 m 10 10 l W n 0 0 m 5 5 l S")

	require.Len(t, got.paths, 1)
	assert.Equal(t, domain.Rect{X0: 0, Y0: 795, X1: 5, Y1: 800}, got.paths[0].group.Rect)
}

func TestInterpret_SaveRestoreLineWidth(t *testing.T) {
	got := run(t, "q 3 w Q 0 0 m 10 0 l S")

	require.Len(t, got.paths, 1)
	assert.Equal(t, []float64{1}, got.paths[0].group.StrokeWidths)
}

func TestInterpret_UnbalancedRestoreIgnored(t *testing.T) {
	got := run(t, "Q Q 0 0 m 10 0 l S")

	assert.Len(t, got.paths, 1)
}

func TestInterpret_XObjectPlacement(t *testing.T) {
	got := run(t, "q 200 0 0 100 50 600 cm /Im1 Do Q /Im2 Do")

	require.Len(t, got.placements, 2)
	assert.Equal(t, placement{name: "Im1", rect: domain.Rect{X0: 50, Y0: 100, X1: 250, Y1: 200}}, got.placements[0])

	rect, ok := got.placementOf("Im1")
	assert.True(t, ok)
	assert.Equal(t, 200.0, rect.Width())
	_, ok = got.placementOf("Im9")
	assert.False(t, ok)
}

func TestColorOperands(t *testing.T) {
	tests := []struct {
		name    string
		nums    []float64
		r, g, b float64
		ok      bool
	}{
		{"gray", []float64{0.5}, 0.5, 0.5, 0.5, true},
		{"rgb", []float64{1, 0, 0}, 1, 0, 0, true},
		{"cmyk black", []float64{0, 0, 0, 1}, 0, 0, 0, true},
		{"cmyk cyan", []float64{1, 0, 0, 0}, 0, 1, 1, true},
		{"pattern", nil, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, ok := colorOperands(tt.nums)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, []float64{tt.r, tt.g, tt.b}, []float64{r, g, b})
		})
	}
}

func kinds(ops []domain.PathOp) []domain.PathOpKind {
	out := make([]domain.PathOpKind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind
	}
	return out
}
