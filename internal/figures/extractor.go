package figures

import (
	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
	"github.com/custodia-labs/sercha-pdf/internal/logger"
)

// Extractor runs detection, caption linking and scoring for a page.
type Extractor struct {
	settings domain.FigureSettings
	detector *Detector
	linker   *CaptionLinker
	scorer   *Scorer
}

// NewExtractor validates settings and wires the pipeline.
// Returns domain.ErrConfiguration for invalid thresholds.
func NewExtractor(settings domain.FigureSettings) (*Extractor, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	linker := NewCaptionLinker(settings)
	return &Extractor{
		settings: settings,
		detector: NewDetector(settings),
		linker:   linker,
		scorer:   NewScorer(linker, settings.MaxWordsInside),
	}, nil
}

// Settings returns the thresholds in use.
func (e *Extractor) Settings() domain.FigureSettings {
	return e.settings
}

// Linker returns the caption linker, shared with bitmap figures.
func (e *Extractor) Linker() *CaptionLinker {
	return e.linker
}

// ExtractFigures returns the retained figure regions of a page ordered by
// score descending.
func (e *Extractor) ExtractFigures(page domain.PageLayout) []domain.FigureRegion {
	cands := e.detector.Candidates(page)
	if len(cands) == 0 {
		return nil
	}

	regions := make([]domain.FigureRegion, 0, len(cands))
	for _, c := range cands {
		if c.Rect.IsEmpty() {
			continue
		}
		r := e.scorer.Score(c, page)
		if !e.scorer.Retain(r) {
			logger.Debug("page %d: dropping candidate with %d words inside", page.Index, r.WordsInside)
			continue
		}
		regions = append(regions, r)
	}

	SortRegions(regions)
	logger.Debug("page %d: %d candidates, %d figures", page.Index, len(cands), len(regions))
	return regions
}

// ExtractDocument runs ExtractFigures on every page and orders the
// result by page, then score.
func (e *Extractor) ExtractDocument(pages []domain.PageLayout) []domain.FigureRegion {
	var regions []domain.FigureRegion
	for _, p := range pages {
		regions = append(regions, e.ExtractFigures(p)...)
	}
	SortRegions(regions)
	return regions
}
