package figures

import (
	"strings"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// CaptionLinker associates nearby text with a figure rectangle.
type CaptionLinker struct {
	tokens  []string
	belowPx float64
	abovePx float64
	strict  bool
}

// NewCaptionLinker creates a linker from the figure settings.
func NewCaptionLinker(settings domain.FigureSettings) *CaptionLinker {
	tokens := make([]string, 0, len(settings.CaptionTokens))
	for _, t := range settings.CaptionTokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tokens = append(tokens, t)
		}
	}
	return &CaptionLinker{
		tokens:  tokens,
		belowPx: settings.CaptionBelowPx,
		abovePx: settings.CaptionAbovePx,
		strict:  settings.StrictCaptions,
	}
}

// Link returns whether rect has a caption and the caption text.
//
// The band below the rectangle is searched first, then the band above.
// When neither contains a caption keyword the below-band text is still
// returned with hasCaption false, unless the linker is strict.
func (l *CaptionLinker) Link(rect domain.Rect, words []domain.WordBox) (hasCaption bool, caption string) {
	below := domain.Rect{X0: rect.X0, Y0: rect.Y1, X1: rect.X1, Y1: rect.Y1 + l.belowPx}
	belowText := zoneText(below, words)
	if l.matches(belowText) {
		return true, belowText
	}

	if l.abovePx > 0 {
		above := domain.Rect{X0: rect.X0, Y0: rect.Y0 - l.abovePx, X1: rect.X1, Y1: rect.Y0}
		if aboveText := zoneText(above, words); l.matches(aboveText) {
			return true, aboveText
		}
	}

	if l.strict {
		return false, ""
	}
	return false, belowText
}

func (l *CaptionLinker) matches(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range l.tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// zoneText joins the words intersecting zone in their given order.
func zoneText(zone domain.Rect, words []domain.WordBox) string {
	var parts []string
	for _, w := range words {
		if w.Rect.Intersects(zone) {
			parts = append(parts, w.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
