package lexical

import (
	"math"
	"sort"
)

// Params configures BM25-style scoring.
type Params struct {
	// K1 is the term frequency saturation parameter (default: 1.2).
	K1 float64

	// B is the field length normalization parameter (default: 0.75).
	B float64

	// IDFFloor is the minimum inverse document frequency, keeping very
	// common terms from contributing zero or negative weight (default: 0.01).
	IDFFloor float64

	// VariantDecay is the per-variant score multiplier for expanded
	// query variants: variant i is weighted VariantDecay^i (default: 0.8).
	VariantDecay float64
}

// DefaultParams returns the default scoring parameters.
func DefaultParams() Params {
	return Params{
		K1:           1.2,
		B:            0.75,
		IDFFloor:     0.01,
		VariantDecay: 0.8,
	}
}

func (p Params) withDefaults() Params {
	if p.K1 <= 0 {
		p.K1 = 1.2
	}
	if p.B <= 0 {
		p.B = 0.75
	}
	if p.IDFFloor <= 0 {
		p.IDFFloor = 0.01
	}
	if p.VariantDecay <= 0 {
		p.VariantDecay = 0.8
	}
	return p
}

// Hit is a single lexical search result.
type Hit struct {
	Doc   *Document
	Score float64
}

// posting records one document's term frequency for a term.
type posting struct {
	doc int32
	tf  int32
}

// Index is an immutable ranked-retrieval structure over a document set.
// It is safe for concurrent readers; build a new Index to change the
// document set.
type Index struct {
	params    Params
	docs      []Document // insertion order, drives tie-breaking
	postings  map[string][]posting
	docLen    []float64
	avgDocLen float64
}

// Build tokenizes each document's weighted fields and constructs the
// index. Field tokens are repeated by field weight to emulate field
// boosting. Duplicate entity IDs are a caller contract violation and
// fail the build with a DuplicateDocumentError.
func Build(docs []Document, params Params) (*Index, error) {
	params = params.withDefaults()

	ix := &Index{
		params:   params,
		docs:     make([]Document, len(docs)),
		postings: make(map[string][]posting),
		docLen:   make([]float64, len(docs)),
	}
	copy(ix.docs, docs)

	seen := make(map[string]struct{}, len(docs))
	var totalLen float64

	for i, doc := range ix.docs {
		if _, dup := seen[doc.EntityID]; dup {
			return nil, &DuplicateDocumentError{EntityID: doc.EntityID}
		}
		seen[doc.EntityID] = struct{}{}

		counts := make(map[string]int32)
		var length float64
		for _, field := range doc.Fields {
			weight := field.Weight
			if weight < 1 {
				weight = 1
			}
			for _, token := range Tokenize(field.Text) {
				counts[token] += int32(weight)
				length += float64(weight)
			}
		}

		ix.docLen[i] = length
		totalLen += length
		for term, tf := range counts {
			ix.postings[term] = append(ix.postings[term], posting{doc: int32(i), tf: tf})
		}
	}

	if len(ix.docs) > 0 {
		ix.avgDocLen = totalLen / float64(len(ix.docs))
	}
	return ix, nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Search scores all documents against each query variant, applies the
// per-variant decay weight, and takes the element-wise maximum across
// variants per document. Returns up to topK documents with strictly
// positive score, sorted descending; ties keep document insertion
// order so output is deterministic.
func (ix *Index) Search(variants []string, topK int) []Hit {
	if len(ix.docs) == 0 || len(variants) == 0 || topK <= 0 {
		return nil
	}

	combined := make([]float64, len(ix.docs))
	weight := 1.0
	for i, variant := range variants {
		if i > 0 {
			weight *= ix.params.VariantDecay
		}
		tokens := Tokenize(variant)
		if len(tokens) == 0 {
			continue
		}
		scores := ix.scoreVariant(tokens)
		for d, s := range scores {
			if ws := s * weight; ws > combined[d] {
				combined[d] = ws
			}
		}
	}

	order := make([]int, 0, len(ix.docs))
	for d := range ix.docs {
		if combined[d] > 0 {
			order = append(order, d)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return combined[order[a]] > combined[order[b]]
	})
	if len(order) > topK {
		order = order[:topK]
	}

	hits := make([]Hit, len(order))
	for i, d := range order {
		hits[i] = Hit{Doc: &ix.docs[d], Score: combined[d]}
	}
	return hits
}

// scoreVariant computes BM25 scores for one tokenized variant across
// all documents.
func (ix *Index) scoreVariant(tokens []string) []float64 {
	scores := make([]float64, len(ix.docs))
	n := float64(len(ix.docs))

	for _, term := range tokens {
		plist, ok := ix.postings[term]
		if !ok {
			continue
		}

		df := float64(len(plist))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		if idf < ix.params.IDFFloor {
			idf = ix.params.IDFFloor
		}

		for _, p := range plist {
			tf := float64(p.tf)
			norm := 1 - ix.params.B + ix.params.B*ix.docLen[p.doc]/ix.avgDocLen
			scores[p.doc] += idf * tf * (ix.params.K1 + 1) / (tf + ix.params.K1*norm)
		}
	}
	return scores
}
