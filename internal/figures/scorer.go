package figures

import (
	"math"
	"sort"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

const (
	captionBonus   = 1000.0
	wordPenaltyCap = 50.0
	areaScoreCap   = 100.0
)

// Scorer ranks figure candidates.
type Scorer struct {
	linker   *CaptionLinker
	maxWords int
}

// NewScorer creates a scorer that links captions with linker.
func NewScorer(linker *CaptionLinker, maxWordsInside int) *Scorer {
	return &Scorer{linker: linker, maxWords: maxWordsInside}
}

// Score links a caption to the candidate and computes its score.
func (s *Scorer) Score(c domain.FigureCandidate, page domain.PageLayout) domain.FigureRegion {
	inside := CountWordsInside(c.Rect, page.Words)
	hasCaption, caption := s.linker.Link(c.Rect, page.Words)

	return domain.FigureRegion{
		FigureCandidate: c,
		Score:           ScoreValue(hasCaption, inside, c.Area(), page.Area()),
		WordsInside:     inside,
		HasCaption:      hasCaption,
		Caption:         caption,
		PageIndex:       page.Index,
	}
}

// Retain reports whether a scored region is kept.
// Captioned regions are always kept.
func (s *Scorer) Retain(r domain.FigureRegion) bool {
	return r.HasCaption || r.WordsInside <= s.maxWords
}

// ScoreValue computes
//
//	1000*[hasCaption] + max(0, 50-wordsInside) + min(100, 100*area/pageArea)
func ScoreValue(hasCaption bool, wordsInside int, area, pageArea float64) float64 {
	var score float64
	if hasCaption {
		score += captionBonus
	}
	score += math.Max(0, wordPenaltyCap-float64(wordsInside))
	if pageArea > 0 {
		score += math.Min(areaScoreCap, 100*area/pageArea)
	}
	return score
}

// CountWordsInside counts words whose box intersects rect.
func CountWordsInside(rect domain.Rect, words []domain.WordBox) int {
	n := 0
	for _, w := range words {
		if w.Rect.Intersects(rect) {
			n++
		}
	}
	return n
}

// SortRegions orders regions by page ascending, then score descending.
// Ties keep their input order.
func SortRegions(regions []domain.FigureRegion) {
	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].PageIndex != regions[j].PageIndex {
			return regions[i].PageIndex < regions[j].PageIndex
		}
		return regions[i].Score > regions[j].Score
	})
}
