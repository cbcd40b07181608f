package pdfkit

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

func square(x0, y0, x1, y1 float64) []domain.Point {
	return []domain.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}
}

func TestRasterise_Fill(t *testing.T) {
	paths := []paintedPath{{
		group:     domain.DrawingGroup{Rect: domain.Rect{X0: 2, Y0: 2, X1: 8, Y1: 8}},
		subpaths:  [][]domain.Point{square(2, 2, 8, 8)},
		fill:      true,
		fillColor: red,
	}}

	img, err := rasterise(paths, nil, domain.Rect{X1: 10, Y1: 10}, 1)

	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())
	assert.Equal(t, red, img.RGBAAt(5, 5))
	assert.Equal(t, white, img.RGBAAt(0, 0))
	assert.Equal(t, white, img.RGBAAt(9, 9))
}

func TestRasterise_Stroke(t *testing.T) {
	paths := []paintedPath{{
		group:       domain.DrawingGroup{Rect: domain.Rect{X0: 0, Y0: 5, X1: 10, Y1: 5}},
		subpaths:    [][]domain.Point{{{X: 0, Y: 5}, {X: 10, Y: 5}}},
		stroke:      true,
		strokeColor: black,
		lineWidth:   2,
	}}

	img, err := rasterise(paths, nil, domain.Rect{X1: 10, Y1: 10}, 1)

	require.NoError(t, err)
	assert.Equal(t, black, img.RGBAAt(5, 4))
	assert.Equal(t, black, img.RGBAAt(5, 5))
	assert.Equal(t, white, img.RGBAAt(5, 7))
	assert.Equal(t, white, img.RGBAAt(5, 2))
}

func TestRasterise_ScaleAndOffset(t *testing.T) {
	paths := []paintedPath{{
		group:     domain.DrawingGroup{Rect: domain.Rect{X0: 100, Y0: 100, X1: 110, Y1: 110}},
		subpaths:  [][]domain.Point{square(100, 100, 110, 110)},
		fill:      true,
		fillColor: red,
	}}

	img, err := rasterise(paths, nil, domain.Rect{X0: 100, Y0: 100, X1: 120, Y1: 120}, 2)

	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())
	assert.Equal(t, red, img.RGBAAt(10, 10))
	assert.Equal(t, white, img.RGBAAt(30, 30))
}

func TestRasterise_SkipsPathsOutsideRegion(t *testing.T) {
	paths := []paintedPath{{
		group:     domain.DrawingGroup{Rect: domain.Rect{X0: 50, Y0: 50, X1: 60, Y1: 60}},
		subpaths:  [][]domain.Point{square(50, 50, 60, 60)},
		fill:      true,
		fillColor: red,
	}}

	img, err := rasterise(paths, nil, domain.Rect{X1: 10, Y1: 10}, 1)

	require.NoError(t, err)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			require.Equal(t, white, img.RGBAAt(x, y))
		}
	}
}

func TestRasterise_Bitmap(t *testing.T) {
	green := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			green.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	bitmaps := []placedBitmap{{rect: domain.Rect{X0: 0, Y0: 0, X1: 5, Y1: 5}, img: green}}

	img, err := rasterise(nil, bitmaps, domain.Rect{X1: 10, Y1: 10}, 1)

	require.NoError(t, err)
	px := img.RGBAAt(2, 2)
	assert.Greater(t, px.G, uint8(250))
	assert.Less(t, px.R, uint8(5))
	assert.Equal(t, white, img.RGBAAt(8, 8))
}

func TestRasterise_TooLarge(t *testing.T) {
	_, err := rasterise(nil, nil, domain.Rect{X1: 100000, Y1: 100000}, 1)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRender_InvalidArguments(t *testing.T) {
	p := &Page{width: 100, height: 100}

	_, err := p.Render(domain.Rect{X1: 10, Y1: 10}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = p.Render(domain.Rect{X0: 200, Y0: 200, X1: 300, Y1: 300}, 72)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
