package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/panjf2000/ants/v2"

	"github.com/barberly/search/internal/lexical"
	"github.com/barberly/search/internal/search"
)

// VectorRetrieverConfig tunes the HNSW graph and the bulk-embed pool.
type VectorRetrieverConfig struct {
	// M is the HNSW connectivity parameter.
	M int

	// EfSearch is the HNSW search expansion factor.
	EfSearch int

	// Workers is the embedding worker pool size for bulk indexing.
	Workers int
}

// DefaultVectorRetrieverConfig returns the retriever defaults.
func DefaultVectorRetrieverConfig() VectorRetrieverConfig {
	return VectorRetrieverConfig{
		M:        16,
		EfSearch: 20,
		Workers:  8,
	}
}

// entity is the payload carried per graph node.
type entity struct {
	id          string
	kind        lexical.EntityKind
	title       string
	description string
	metadata    map[string]string
}

// VectorRetriever is an in-memory semantic retriever over an HNSW
// graph of embedded catalog documents. It implements
// search.SemanticRetriever.
type VectorRetriever struct {
	embedder Embedder
	config   VectorRetrieverConfig

	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	byKey   map[uint64]entity
	byID    map[string]uint64
	nextKey uint64
}

var _ search.SemanticRetriever = (*VectorRetriever)(nil)

// NewVectorRetriever creates the retriever. The graph starts empty;
// call IndexDocuments before searching.
func NewVectorRetriever(embedder Embedder, cfg VectorRetrieverConfig) (*VectorRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("semantic: nil embedder")
	}
	def := DefaultVectorRetrieverConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = def.EfSearch
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}

	return &VectorRetriever{
		embedder: embedder,
		config:   cfg,
		graph:    newGraph(cfg),
		byKey:    make(map[uint64]entity),
		byID:     make(map[string]uint64),
	}, nil
}

func newGraph(cfg VectorRetrieverConfig) *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph
}

// IndexDocuments embeds every document on a worker pool and swaps in a
// freshly built graph. The swap is atomic under the write lock, so
// concurrent searches see either the old vector set or the new one.
func (r *VectorRetriever) IndexDocuments(ctx context.Context, docs []lexical.Document) error {
	start := time.Now()

	vectors := make([][]float32, len(docs))
	errs := make([]error, len(docs))

	pool, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return fmt.Errorf("create embed pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range docs {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			vectors[i], errs[i] = r.embedder.Embed(ctx, embeddingText(docs[i]))
		}); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("embed document %s: %w", docs[i].EntityID, err)
		}
	}

	graph := newGraph(r.config)
	byKey := make(map[uint64]entity, len(docs))
	byID := make(map[string]uint64, len(docs))

	var key uint64
	for i, doc := range docs {
		if _, dup := byID[doc.EntityID]; dup {
			return &lexical.DuplicateDocumentError{EntityID: doc.EntityID}
		}
		vec := normalize(vectors[i])
		graph.Add(hnsw.MakeNode(key, vec))
		byKey[key] = entity{
			id:          doc.EntityID,
			kind:        doc.EntityKind,
			title:       doc.Title,
			description: doc.Description,
			metadata:    doc.Metadata,
		}
		byID[doc.EntityID] = key
		key++
	}

	r.mu.Lock()
	r.graph = graph
	r.byKey = byKey
	r.byID = byID
	r.nextKey = key
	r.mu.Unlock()

	slog.Debug("semantic_index_built",
		slog.Int("documents", len(docs)),
		slog.Duration("build_time", time.Since(start)))
	return nil
}

// Search implements search.SemanticRetriever. The query context is
// accepted for interface parity but does not influence retrieval;
// contextual signals are applied by the booster downstream.
func (r *VectorRetriever) Search(ctx context.Context, query string, topK int, _ *search.QueryContext) ([]search.ScoredMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	vec = normalize(vec)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.graph.Len() == 0 {
		return nil, nil
	}

	nodes := r.graph.Search(vec, topK)
	matches := make([]search.ScoredMatch, 0, len(nodes))
	for _, node := range nodes {
		ent, ok := r.byKey[node.Key]
		if !ok {
			continue
		}
		distance := r.graph.Distance(vec, node.Value)
		matches = append(matches, search.ScoredMatch{
			EntityID:    ent.id,
			EntityKind:  ent.kind,
			Title:       ent.title,
			Description: ent.description,
			Score:       distanceToScore(distance),
			Metadata:    ent.metadata,
		})
	}
	return matches, nil
}

// Len returns the number of indexed vectors.
func (r *VectorRetriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph.Len()
}

// embeddingText is the document text sent to the embedding model.
func embeddingText(doc lexical.Document) string {
	text := doc.Title
	if doc.Description != "" {
		text += "\n" + doc.Description
	}
	return text
}

// normalize returns a unit-length copy of v. Cosine distance on unit
// vectors keeps scores comparable across documents.
func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	out := make([]float32, len(v))
	copy(out, v)
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

// distanceToScore maps cosine distance (0 identical, 2 opposite) to a
// similarity score in [0, 1].
func distanceToScore(distance float32) float64 {
	return float64(1.0 - distance/2.0)
}
