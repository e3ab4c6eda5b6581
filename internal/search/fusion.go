package search

import "sort"

// FusionWeights scales raw source scores before merging. The weights
// intentionally sum below 1.0; the remainder is headroom reserved for
// contextual boosting applied after fusion.
type FusionWeights struct {
	Lexical  float64
	Semantic float64
}

// DefaultFusionWeights returns the default source weights.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Lexical: 0.3, Semantic: 0.4}
}

// Fuser merges candidate lists from the lexical and semantic retrieval
// paths by entity identity.
type Fuser struct {
	weights FusionWeights
}

// NewFuser creates a fuser with the given weights. Zero weights fall
// back to defaults.
func NewFuser(weights FusionWeights) *Fuser {
	if weights.Lexical == 0 && weights.Semantic == 0 {
		weights = DefaultFusionWeights()
	}
	return &Fuser{weights: weights}
}

// Fuse merges the two candidate lists by entity id. An entity found by
// only one source scores that source's weighted score; an entity found
// by both scores the sum of both weighted scores, rewarding candidates
// with independent corroborating signal. At most one candidate per
// entity id survives. Output is sorted descending by fused score, ties
// broken by entity id, so identical inputs fuse identically.
func (f *Fuser) Fuse(lexicalHits, semanticHits []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(lexicalHits)+len(semanticHits))
	byID := make(map[string]int, len(lexicalHits)+len(semanticHits))

	add := func(c Candidate, source string, weight float64) {
		raw := c.SourceScores[source]
		if i, ok := byID[c.EntityID]; ok {
			merged[i].SourceScores[source] = raw
			merged[i].FusedScore += weight * raw
			return
		}
		c.SourceScores = map[string]float64{source: raw}
		c.FusedScore = weight * raw
		byID[c.EntityID] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range lexicalHits {
		add(c, SourceLexical, f.weights.Lexical)
	}
	for _, c := range semanticHits {
		add(c, SourceSemantic, f.weights.Semantic)
	}

	sortByFusedScore(merged)
	return merged
}

// sortByFusedScore orders candidates by fused score descending, ties
// by entity id ascending.
func sortByFusedScore(candidates []Candidate) {
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].FusedScore != candidates[b].FusedScore {
			return candidates[a].FusedScore > candidates[b].FusedScore
		}
		return candidates[a].EntityID < candidates[b].EntityID
	})
}
