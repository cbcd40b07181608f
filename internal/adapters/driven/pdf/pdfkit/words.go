package pdfkit

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tsawler/tabula/text"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

const (
	// ascent and descent approximate glyph extents as fractions of the
	// font size.
	ascent  = 0.8
	descent = 0.2

	// blockGap starts a new block when the gap between lines exceeds this
	// multiple of the previous line height.
	blockGap = 1.5
)

type rawWord struct {
	rect     domain.Rect
	text     string
	baseline float64
}

// wordBoxes splits fragments into words and numbers them in reading order:
// blocks top to bottom, lines within a block, words left to right.
func wordBoxes(frags []text.TextFragment, space pageSpace) []domain.WordBox {
	words := splitFragments(frags, space)
	if len(words) == 0 {
		return nil
	}

	sort.SliceStable(words, func(i, j int) bool {
		if words[i].baseline != words[j].baseline {
			return words[i].baseline < words[j].baseline
		}
		return words[i].rect.X0 < words[j].rect.X0
	})

	// Group words sharing a baseline, within half a line height.
	var lines [][]rawWord
	for _, w := range words {
		if n := len(lines); n > 0 {
			last := lines[n-1]
			tol := 0.5 * last[0].rect.Height()
			if math.Abs(w.baseline-last[0].baseline) <= tol {
				lines[n-1] = append(last, w)
				continue
			}
		}
		lines = append(lines, []rawWord{w})
	}

	var out []domain.WordBox
	block, lineInBlock := 0, 0
	var prev domain.Rect
	for i, line := range lines {
		sort.SliceStable(line, func(a, b int) bool { return line[a].rect.X0 < line[b].rect.X0 })
		lineRect := line[0].rect
		for _, w := range line[1:] {
			lineRect = lineRect.Union(w.rect)
		}
		if i > 0 {
			if lineRect.Y0-prev.Y1 > blockGap*prev.Height() {
				block++
				lineInBlock = 0
			} else {
				lineInBlock++
			}
		}
		prev = lineRect

		for wi, w := range line {
			out = append(out, domain.WordBox{
				Rect:  w.rect,
				Text:  w.text,
				Block: block,
				Line:  lineInBlock,
				Word:  wi,
			})
		}
	}
	return out
}

// splitFragments breaks each fragment on whitespace, spreading the
// fragment width evenly over its runes.
func splitFragments(frags []text.TextFragment, space pageSpace) []rawWord {
	var words []rawWord
	for _, f := range frags {
		n := utf8.RuneCountInString(f.Text)
		if n == 0 || f.Width <= 0 {
			continue
		}
		size := f.Height
		if size <= 0 {
			size = f.FontSize
		}
		charW := f.Width / float64(n)
		baseline := space.y1 - f.Y
		x := f.X - space.x0

		pos := 0
		var cur []rune
		start := 0
		flush := func() {
			if len(cur) == 0 {
				return
			}
			x0 := x + float64(start)*charW
			words = append(words, rawWord{
				rect: domain.Rect{
					X0: x0,
					Y0: baseline - ascent*size,
					X1: x0 + float64(len(cur))*charW,
					Y1: baseline + descent*size,
				},
				text:     string(cur),
				baseline: baseline,
			})
			cur = nil
		}
		for _, r := range f.Text {
			if unicode.IsSpace(r) {
				flush()
			} else {
				if len(cur) == 0 {
					start = pos
				}
				cur = append(cur, r)
			}
			pos++
		}
		flush()
	}
	return words
}

// joinWords rebuilds page text from word boxes.
func joinWords(words []domain.WordBox) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			prev := words[i-1]
			switch {
			case w.Block != prev.Block:
				b.WriteString("\n\n")
			case w.Line != prev.Line:
				b.WriteByte('\n')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
	}
	return b.String()
}
