package services

import (
	"sort"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

// fusedEntry accumulates the normalised scores of one id across both lists.
type fusedEntry struct {
	hit     domain.SearchHit
	lexical float64
	vector  float64
}

// Fuse merges a lexical and a vector result list into one ranking.
//
// Scores are normalised per list by dividing by the list maximum and
// clamped to [0, 1]; a list whose maximum is not positive contributes 0.
// Within each list the first occurrence of an id wins. Ids missing from
// a list get 0 for that component. The union is ordered by hybrid score
// descending, ties keeping lexical-then-vector first-appearance order,
// and truncated to k when k > 0.
func Fuse(lexical, vector []domain.SearchHit, weights domain.HybridWeights, k int) []domain.HybridHit {
	lexMax := maxScore(lexical)
	vecMax := maxScore(vector)

	entries := make(map[string]*fusedEntry, len(lexical)+len(vector))
	order := make([]string, 0, len(lexical)+len(vector))

	seen := make(map[string]bool, len(lexical))
	for _, h := range lexical {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		entries[h.ID] = &fusedEntry{hit: h, lexical: normaliseScore(h.Score, lexMax)}
		order = append(order, h.ID)
	}

	seen = make(map[string]bool, len(vector))
	for _, h := range vector {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		score := normaliseScore(h.Score, vecMax)
		if e, ok := entries[h.ID]; ok {
			e.vector = score
			if e.hit.Text == "" {
				e.hit.Text = h.Text
			}
			continue
		}
		entries[h.ID] = &fusedEntry{hit: h, vector: score}
		order = append(order, h.ID)
	}

	results := make([]domain.HybridHit, 0, len(order))
	for _, id := range order {
		e := entries[id]
		results = append(results, domain.HybridHit{
			SearchHit:    e.hit,
			LexicalScore: e.lexical,
			VectorScore:  e.vector,
			HybridScore:  weights.Lexical*e.lexical + weights.Vector*e.vector,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].HybridScore > results[j].HybridScore
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func maxScore(hits []domain.SearchHit) float64 {
	if len(hits) == 0 {
		return 0
	}
	best := hits[0].Score
	for _, h := range hits[1:] {
		if h.Score > best {
			best = h.Score
		}
	}
	return best
}

func normaliseScore(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	v := score / max
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
