package pdfkit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Ensure interface compliance.
var (
	_ driven.PDFToolkit  = (*Toolkit)(nil)
	_ driven.PDFDocument = (*Document)(nil)
	_ driven.PDFPage     = (*Page)(nil)
)

// Toolkit opens PDF files with tabula.
type Toolkit struct{}

// New creates a toolkit.
func New() *Toolkit {
	return &Toolkit{}
}

// Open parses the file at path.
func (t *Toolkit) Open(ctx context.Context, path string) (driven.PDFDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	count, err := r.PageCount()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("count pages of %s: %w", path, err)
	}

	return &Document{path: path, r: r, count: count}, nil
}

// Document is an opened PDF.
type Document struct {
	path  string
	r     *reader.Reader
	count int

	// The plain-text reader is opened on first use.
	plainOnce sync.Once
	plainFile *os.File
	plain     *pdflib.Reader
	plainErr  error
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.count
}

// Page returns the page at the 0-based index.
func (d *Document) Page(index int) (driven.PDFPage, error) {
	if index < 0 || index >= d.count {
		return nil, fmt.Errorf("%w: page %d out of range [0, %d)", domain.ErrInvalidInput, index, d.count)
	}
	p, err := d.r.GetPage(index)
	if err != nil {
		return nil, fmt.Errorf("load page %d: %w", index, err)
	}

	box, err := p.MediaBox()
	if err != nil {
		return nil, fmt.Errorf("page %d media box: %w", index, err)
	}
	x0, y0 := minf(box[0], box[2]), minf(box[1], box[3])
	x1, y1 := maxf(box[0], box[2]), maxf(box[1], box[3])

	return &Page{
		doc:    d,
		page:   p,
		index:  index,
		width:  x1 - x0,
		height: y1 - y0,
		space:  pageSpace{x0: x0, y1: y1},
	}, nil
}

// Close releases the underlying files.
func (d *Document) Close() error {
	err := d.r.Close()
	if d.plainFile != nil {
		if cerr := d.plainFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (d *Document) plainReader() (*pdflib.Reader, error) {
	d.plainOnce.Do(func() {
		d.plainFile, d.plain, d.plainErr = pdflib.Open(d.path)
	})
	return d.plain, d.plainErr
}

// Page exposes one page. Content is interpreted once, on first use.
type Page struct {
	doc    *Document
	page   *pages.Page
	index  int
	width  float64
	height float64
	space  pageSpace

	contentOnce sync.Once
	content     pageContent
	contentErr  error

	wordsOnce sync.Once
	words     []domain.WordBox
	wordsErr  error
}

// Index returns the 0-based page number.
func (p *Page) Index() int {
	return p.index
}

// Size returns the page width and height in points.
func (p *Page) Size() (width, height float64) {
	return p.width, p.height
}

// Text returns the page text from ledongthuc/pdf, falling back to the
// word boxes when that reader cannot handle the file.
func (p *Page) Text() (string, error) {
	if s, err := p.plainText(); err == nil && strings.TrimSpace(s) != "" {
		return s, nil
	} else if err != nil {
		logger.Debug("pdfkit: plain text of page %d unavailable: %v", p.index, err)
	}

	words, err := p.WordBoxes()
	if err != nil {
		return "", err
	}
	return joinWords(words), nil
}

func (p *Page) plainText() (s string, err error) {
	r, err := p.doc.plainReader()
	if err != nil {
		return "", err
	}
	// ledongthuc/pdf panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plain text: %v", rec)
		}
	}()
	page := r.Page(p.index + 1)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// DrawingGroups returns the painted vector paths in paint order.
func (p *Page) DrawingGroups() ([]domain.DrawingGroup, error) {
	content, err := p.interpreted()
	if err != nil {
		return nil, err
	}
	groups := make([]domain.DrawingGroup, len(content.paths))
	for i, path := range content.paths {
		groups[i] = path.group
	}
	return groups, nil
}

// WordBoxes returns the words in reading order.
func (p *Page) WordBoxes() ([]domain.WordBox, error) {
	p.wordsOnce.Do(func() {
		var frags []text.TextFragment
		frags, p.wordsErr = p.fragments()
		if p.wordsErr == nil {
			p.words = wordBoxes(frags, p.space)
		}
	})
	return p.words, p.wordsErr
}

func (p *Page) fragments() ([]text.TextFragment, error) {
	parseMu.Lock()
	defer parseMu.Unlock()
	frags, err := p.doc.r.ExtractTextFragments(p.page)
	if err != nil {
		return nil, fmt.Errorf("page %d text: %w", p.index, err)
	}
	return frags, nil
}

// Images returns the embedded bitmap images ordered by resource name.
func (p *Page) Images() ([]domain.BitmapImage, error) {
	raw, err := p.doc.r.ExtractPageImages(p.page)
	if err != nil {
		return nil, fmt.Errorf("page %d images: %w", p.index, err)
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].Name < raw[j].Name })

	content, err := p.interpreted()
	if err != nil {
		logger.Warn("pdfkit: page %d placements unavailable: %v", p.index, err)
	}

	images := make([]domain.BitmapImage, 0, len(raw))
	for _, img := range raw {
		data, err := img.ToPNG()
		if err != nil {
			logger.Warn("pdfkit: page %d image %s: %v", p.index, img.Name, err)
			continue
		}
		bi := domain.BitmapImage{
			Index:  len(images),
			Name:   img.Name,
			Width:  img.Width,
			Height: img.Height,
			PNG:    data,
		}
		if rect, ok := content.placementOf(img.Name); ok {
			bi.Rect, bi.Placed = rect, true
		}
		images = append(images, bi)
	}
	return images, nil
}

// placementOf returns where the named XObject was first painted.
func (c pageContent) placementOf(name string) (domain.Rect, bool) {
	for _, pl := range c.placements {
		if pl.name == name {
			return pl.rect, true
		}
	}
	return domain.Rect{}, false
}

func (p *Page) interpreted() (pageContent, error) {
	p.contentOnce.Do(func() {
		data, err := p.contentBytes()
		if err != nil {
			p.contentErr = err
			return
		}
		ops, err := parseContent(data)
		if err != nil {
			p.contentErr = fmt.Errorf("page %d content: %w", p.index, err)
			return
		}
		p.content = interpret(ops, p.space)
	})
	return p.content, p.contentErr
}

// contentBytes decodes and joins the page's content streams.
func (p *Page) contentBytes() ([]byte, error) {
	contents, err := p.page.Contents()
	if err != nil {
		return nil, fmt.Errorf("page %d contents: %w", p.index, err)
	}
	var buf bytes.Buffer
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("page %d decode content: %w", p.index, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
