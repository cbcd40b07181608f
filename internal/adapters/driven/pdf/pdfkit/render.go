package pdfkit

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// maxPixels bounds a single raster.
const maxPixels = 1 << 26

// minStrokePx keeps hairlines visible.
const minStrokePx = 1.0

// Render rasterises rect at dpi over a white background and returns PNG
// bytes. Placed bitmaps are drawn first, then vector paths in paint order.
func (p *Page) Render(rect domain.Rect, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("%w: dpi must be positive", domain.ErrInvalidInput)
	}
	rect = rect.Clip(domain.Rect{X1: p.width, Y1: p.height})
	if rect.IsEmpty() {
		return nil, fmt.Errorf("%w: render region outside page %d", domain.ErrInvalidInput, p.index)
	}

	content, err := p.interpreted()
	if err != nil {
		return nil, err
	}

	var bitmaps []placedBitmap
	if images, err := p.Images(); err != nil {
		logger.Warn("pdfkit: page %d bitmaps skipped in render: %v", p.index, err)
	} else {
		bitmaps = decodePlaced(images, rect)
	}

	img, err := rasterise(content.paths, bitmaps, rect, float64(dpi)/72)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type placedBitmap struct {
	rect domain.Rect
	img  image.Image
}

func decodePlaced(images []domain.BitmapImage, rect domain.Rect) []placedBitmap {
	var out []placedBitmap
	for _, bi := range images {
		if !bi.Placed || !bi.Rect.Intersects(rect) {
			continue
		}
		img, err := png.Decode(bytes.NewReader(bi.PNG))
		if err != nil {
			logger.Warn("pdfkit: decode image %s: %v", bi.Name, err)
			continue
		}
		out = append(out, placedBitmap{rect: bi.Rect, img: img})
	}
	return out
}

// rasterise draws bitmaps and paths clipped to rect at scale pixels per point.
func rasterise(paths []paintedPath, bitmaps []placedBitmap, rect domain.Rect, scale float64) (*image.RGBA, error) {
	w := int(math.Ceil(rect.Width() * scale))
	h := int(math.Ceil(rect.Height() * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty raster", domain.ErrInvalidInput)
	}
	if w*h > maxPixels {
		return nil, fmt.Errorf("%w: raster %dx%d too large", domain.ErrInvalidInput, w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)

	toPx := func(pt domain.Point) (float32, float32) {
		return float32((pt.X - rect.X0) * scale), float32((pt.Y - rect.Y0) * scale)
	}

	for _, b := range bitmaps {
		x0, y0 := toPx(domain.Point{X: b.rect.X0, Y: b.rect.Y0})
		x1, y1 := toPx(domain.Point{X: b.rect.X1, Y: b.rect.Y1})
		dr := image.Rect(int(x0), int(y0), int(math.Ceil(float64(x1))), int(math.Ceil(float64(y1))))
		xdraw.BiLinear.Scale(dst, dr, b.img, b.img.Bounds(), xdraw.Over, nil)
	}

	for _, path := range paths {
		reach := path.group.Rect.Pad(path.lineWidth/2 + 1)
		if !reach.Intersects(rect) {
			continue
		}
		if path.fill {
			z := vector.NewRasterizer(w, h)
			for _, sp := range path.subpaths {
				z.MoveTo(toPx(sp[0]))
				for _, pt := range sp[1:] {
					z.LineTo(toPx(pt))
				}
				z.ClosePath()
			}
			z.Draw(dst, dst.Bounds(), image.NewUniform(path.fillColor), image.Point{})
		}
		if path.stroke {
			half := math.Max(path.lineWidth*scale, minStrokePx) / 2
			z := vector.NewRasterizer(w, h)
			for _, sp := range path.subpaths {
				for i := 1; i < len(sp); i++ {
					strokeSegment(z, toPx, sp[i-1], sp[i], half)
				}
			}
			z.Draw(dst, dst.Bounds(), image.NewUniform(path.strokeColor), image.Point{})
		}
	}
	return dst, nil
}

// strokeSegment adds the quad covering segment a-b with half-width half
// (in pixels) to z.
func strokeSegment(z *vector.Rasterizer, toPx func(domain.Point) (float32, float32), a, b domain.Point, half float64) {
	ax, ay := toPx(a)
	bx, by := toPx(b)
	dx, dy := float64(bx-ax), float64(by-ay)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := float32(-dy/length*half), float32(dx/length*half)
	z.MoveTo(ax+nx, ay+ny)
	z.LineTo(bx+nx, by+ny)
	z.LineTo(bx-nx, by-ny)
	z.LineTo(ax-nx, ay-ny)
	z.ClosePath()
}
