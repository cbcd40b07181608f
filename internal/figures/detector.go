package figures

import "github.com/custodia-labs/sercha-pdf/internal/core/domain"

// Detector turns a page's drawing groups into merged figure candidates.
type Detector struct {
	settings domain.FigureSettings
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(settings domain.FigureSettings) *Detector {
	return &Detector{settings: settings}
}

// Candidates returns the merged candidates of a page.
// A page without drawing groups yields nil.
func (d *Detector) Candidates(page domain.PageLayout) []domain.FigureCandidate {
	if len(page.Drawings) == 0 {
		return nil
	}

	minArea := d.settings.MinArea
	if minArea <= 0 {
		minArea = d.settings.AreaFrac * page.Area()
	}

	var cands []domain.FigureCandidate
	for _, g := range page.Drawings {
		if g.Rect.IsEmpty() || g.Rect.Area() < minArea {
			continue
		}
		segs := g.SegmentCount()
		if segs < d.settings.MinSegments {
			continue
		}
		stroke := g.MeanStrokeWidth()
		if stroke < d.settings.MinStroke {
			continue
		}
		cands = append(cands, domain.FigureCandidate{
			Rect:      g.Rect,
			Segments:  segs,
			AvgStroke: stroke,
		})
	}

	return MergeCandidates(cands, d.settings.MergeIoUThresh)
}

// MergeCandidates repeatedly replaces qualifying pairs with their union
// until a full pass performs no merge. Each merging pass strictly reduces
// the count, so the loop terminates and the result is a fixed point.
func MergeCandidates(cands []domain.FigureCandidate, iouThresh float64) []domain.FigureCandidate {
	out := make([]domain.FigureCandidate, len(cands))
	copy(out, cands)

	for {
		next := make([]domain.FigureCandidate, 0, len(out))
		merged := false
		for _, c := range out {
			absorbed := false
			for i := range next {
				if shouldMerge(next[i].Rect, c.Rect, iouThresh) {
					next[i] = mergePair(next[i], c)
					absorbed = true
					merged = true
					break
				}
			}
			if !absorbed {
				next = append(next, c)
			}
		}
		out = next
		if !merged {
			return out
		}
	}
}

func shouldMerge(a, b domain.Rect, iouThresh float64) bool {
	if a.Intersects(b) {
		return true
	}
	return iouThresh > 0 && a.IoU(b) >= iouThresh
}

func mergePair(a, b domain.FigureCandidate) domain.FigureCandidate {
	segs := a.Segments + b.Segments
	stroke := (a.AvgStroke + b.AvgStroke) / 2
	if segs > 0 {
		stroke = (a.AvgStroke*float64(a.Segments) + b.AvgStroke*float64(b.Segments)) / float64(segs)
	}
	return domain.FigureCandidate{
		Rect:      a.Rect.Union(b.Rect),
		Segments:  segs,
		AvgStroke: stroke,
	}
}
