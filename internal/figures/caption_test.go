package figures

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

var figRect = domain.Rect{X0: 100, Y0: 100, X1: 300, Y1: 300}

func word(text string, x0, y0 float64) domain.WordBox {
	return domain.WordBox{Text: text, Rect: domain.Rect{X0: x0, Y0: y0, X1: x0 + 30, Y1: y0 + 10}}
}

func TestCaptionLinker_KeywordBelow(t *testing.T) {
	l := NewCaptionLinker(domain.DefaultFigureSettings())
	words := []domain.WordBox{
		word("Figure", 110, 310),
		word("3:", 145, 310),
		word("Pump", 180, 310),
		word("layout", 215, 310),
		word("Unrelated", 400, 310),
	}

	has, caption := l.Link(figRect, words)

	assert.True(t, has)
	assert.Equal(t, "Figure 3: Pump layout", caption)
}

func TestCaptionLinker_MatchIsCaseInsensitiveSubstring(t *testing.T) {
	l := NewCaptionLinker(domain.DefaultFigureSettings())
	has, caption := l.Link(figRect, []domain.WordBox{word("(SCHEMATICS)", 110, 320)})

	assert.True(t, has)
	assert.Equal(t, "(SCHEMATICS)", caption)
}

func TestCaptionLinker_KeywordAbove(t *testing.T) {
	l := NewCaptionLinker(domain.DefaultFigureSettings())
	words := []domain.WordBox{
		word("Fig.", 110, 70),
		word("2", 145, 70),
		word("continued", 110, 320),
	}

	has, caption := l.Link(figRect, words)

	assert.True(t, has)
	assert.Equal(t, "Fig. 2", caption)
}

func TestCaptionLinker_AboveDisabled(t *testing.T) {
	s := domain.DefaultFigureSettings()
	s.CaptionAbovePx = 0
	l := NewCaptionLinker(s)

	has, caption := l.Link(figRect, []domain.WordBox{word("Figure", 110, 70)})

	assert.False(t, has)
	assert.Empty(t, caption)
}

func TestCaptionLinker_BestEffortLabel(t *testing.T) {
	l := NewCaptionLinker(domain.DefaultFigureSettings())
	words := []domain.WordBox{word("Output", 110, 310), word("voltage", 145, 310)}

	has, caption := l.Link(figRect, words)

	assert.False(t, has)
	assert.Equal(t, "Output voltage", caption)
}

func TestCaptionLinker_StrictRejectsUnconfirmedText(t *testing.T) {
	s := domain.DefaultFigureSettings()
	s.StrictCaptions = true
	l := NewCaptionLinker(s)
	words := []domain.WordBox{word("Output", 110, 310), word("voltage", 145, 310)}

	has, caption := l.Link(figRect, words)

	assert.False(t, has)
	assert.Empty(t, caption)
}

func TestCaptionLinker_IgnoresTextBeyondBand(t *testing.T) {
	l := NewCaptionLinker(domain.DefaultFigureSettings())
	// band ends at 300+220
	has, caption := l.Link(figRect, []domain.WordBox{word("Figure", 110, 560)})

	assert.False(t, has)
	assert.Empty(t, caption)
}
