package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	xerrors "github.com/barberly/search/internal/errors"
	"github.com/barberly/search/internal/lexical"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineConfig tunes the ranking pipeline.
type EngineConfig struct {
	// Weights scales raw source scores in fusion.
	Weights FusionWeights

	// RerankWeight is the rerank share of the final blended score.
	RerankWeight float64

	// RerankWindow is how many top fused candidates are reranked.
	RerankWindow int

	// MaxExpansions caps query variants, original included.
	MaxExpansions int

	// LocationBoost and RoleBoost are the contextual multipliers.
	LocationBoost float64
	RoleBoost     float64

	// VariantDecay weights variant i's semantic scores by VariantDecay^i.
	VariantDecay float64

	// RetrievalTimeout bounds each retrieval source per query.
	RetrievalTimeout time.Duration

	// RerankTimeout bounds the rerank model call per query.
	RerankTimeout time.Duration
}

// DefaultEngineConfig returns the default pipeline configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:          DefaultFusionWeights(),
		RerankWeight:     DefaultRerankWeight,
		RerankWindow:     DefaultRerankWindow,
		MaxExpansions:    DefaultMaxExpansions,
		LocationBoost:    1.2,
		RoleBoost:        1.1,
		VariantDecay:     0.8,
		RetrievalTimeout: 2 * time.Second,
		RerankTimeout:    DefaultRerankTimeout,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	def := DefaultEngineConfig()
	if c.Weights.Lexical == 0 && c.Weights.Semantic == 0 {
		c.Weights = def.Weights
	}
	if c.RerankWeight <= 0 {
		c.RerankWeight = def.RerankWeight
	}
	if c.RerankWindow <= 0 {
		c.RerankWindow = def.RerankWindow
	}
	if c.MaxExpansions <= 0 {
		c.MaxExpansions = def.MaxExpansions
	}
	if c.LocationBoost < 1 {
		c.LocationBoost = def.LocationBoost
	}
	if c.RoleBoost < 1 {
		c.RoleBoost = def.RoleBoost
	}
	if c.VariantDecay <= 0 || c.VariantDecay > 1 {
		c.VariantDecay = def.VariantDecay
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = def.RetrievalTimeout
	}
	if c.RerankTimeout <= 0 {
		c.RerankTimeout = def.RerankTimeout
	}
	return c
}

// Engine is the hybrid search engine: the single entry point that
// orchestrates expansion, parallel retrieval, fusion, boosting, and
// reranking.
type Engine struct {
	manager   *lexical.Manager
	retriever SemanticRetriever
	expander  *Expander
	fuser     *Fuser
	booster   *Booster
	reranker  *RerankerAdapter
	config    EngineConfig
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithSemanticRetriever sets the embedding-based retrieval
// collaborator. Defaults to NoopRetriever.
func WithSemanticRetriever(r SemanticRetriever) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.retriever = r
		}
	}
}

// WithRerankModel sets the external pairwise relevance model. Defaults
// to NoopRerankModel, which forces the fused-score fallback.
func WithRerankModel(m RerankModel) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.reranker = NewRerankerAdapter(m,
				WithRerankWeight(e.config.RerankWeight),
				WithRerankWindow(e.config.RerankWindow),
				WithRerankTimeout(e.config.RerankTimeout))
		}
	}
}

// WithExpander replaces the default expander.
func WithExpander(exp *Expander) EngineOption {
	return func(e *Engine) {
		if exp != nil {
			e.expander = exp
		}
	}
}

// NewEngine creates the hybrid search engine over a lexical freshness
// manager. Returns an error if the manager is nil.
func NewEngine(manager *lexical.Manager, cfg EngineConfig, opts ...EngineOption) (*Engine, error) {
	if manager == nil {
		return nil, fmt.Errorf("%w: lexical manager is required", ErrNilDependency)
	}

	cfg = cfg.withDefaults()
	e := &Engine{
		manager:   manager,
		retriever: NoopRetriever{},
		expander:  NewExpander(WithMaxExpansions(cfg.MaxExpansions)),
		fuser:     NewFuser(cfg.Weights),
		booster:   NewBooster(cfg.LocationBoost, cfg.RoleBoost),
		config:    cfg,
	}
	e.reranker = NewRerankerAdapter(NoopRerankModel{},
		WithRerankWeight(cfg.RerankWeight),
		WithRerankWindow(cfg.RerankWindow),
		WithRerankTimeout(cfg.RerankTimeout))

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AdvancedSearch runs the full ranking pipeline for one query.
//
// Callers always receive either a ranked list (possibly empty,
// possibly degraded) or a contract-violation error: a non-positive
// topK fails fast, while retrieval and rerank failures degrade the
// response and are recorded in its Degraded metadata.
func (e *Engine) AdvancedSearch(ctx context.Context, query string, topK int, qctx *QueryContext) (*Response, error) {
	if topK <= 0 {
		return nil, xerrors.InvalidArgument("topK must be positive, got %d", topK)
	}

	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return &Response{}, nil
	}

	variants := e.expander.Expand(query)

	// Pool enough candidates for the rerank window to be meaningful.
	pool := topK
	if e.config.RerankWindow > pool {
		pool = e.config.RerankWindow
	}

	var (
		degraded     []Degradation
		lexicalHits  []Candidate
		semanticHits []Candidate
		lexicalDeg   *Degradation
		semanticDeg  *Degradation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexicalHits, lexicalDeg = e.searchLexical(gctx, variants, pool)
		return nil
	})
	g.Go(func() error {
		semanticHits, semanticDeg = e.searchSemantic(gctx, variants, pool, qctx)
		return nil
	})
	// Retrieval goroutines degrade instead of failing; Wait only joins.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lexicalDeg != nil {
		degraded = append(degraded, *lexicalDeg)
	}
	if semanticDeg != nil {
		degraded = append(degraded, *semanticDeg)
	}

	fused := e.fuser.Fuse(lexicalHits, semanticHits)
	boosted := e.booster.Boost(fused, qctx)
	sortByFusedScore(boosted)

	final, rerankDeg := e.reranker.Rerank(ctx, query, boosted, topK)
	if rerankDeg != nil {
		degraded = append(degraded, *rerankDeg)
	}

	resp := &Response{
		Results:  toRankedResults(final),
		Degraded: degraded,
	}

	slog.Debug("query_served",
		slog.String("query", query),
		slog.Int("variants", len(variants)),
		slog.Int("results", len(resp.Results)),
		slog.Int("degraded", len(resp.Degraded)),
		slog.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// searchLexical queries the current index generation. A missing
// generation (first build failed) degrades to zero lexical candidates.
func (e *Engine) searchLexical(ctx context.Context, variants []string, pool int) ([]Candidate, *Degradation) {
	tctx, cancel := context.WithTimeout(ctx, e.config.RetrievalTimeout)
	defer cancel()

	gen, err := e.manager.Current(tctx)
	if err != nil {
		return nil, &Degradation{Source: SourceLexical, Reason: err.Error()}
	}

	hits := gen.Index.Search(variants, pool)
	candidates := make([]Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = Candidate{
			EntityID:     h.Doc.EntityID,
			EntityKind:   h.Doc.EntityKind,
			Title:        h.Doc.Title,
			Description:  h.Doc.Description,
			Metadata:     h.Doc.Metadata,
			SourceScores: map[string]float64{SourceLexical: h.Score},
		}
	}
	return candidates, nil
}

// searchSemantic queries the retriever once per variant, weights
// variant i's scores by VariantDecay^i, and keeps the per-entity
// maximum across variants. Any retriever error degrades to the
// variants scored so far.
func (e *Engine) searchSemantic(ctx context.Context, variants []string, pool int, qctx *QueryContext) ([]Candidate, *Degradation) {
	tctx, cancel := context.WithTimeout(ctx, e.config.RetrievalTimeout)
	defer cancel()

	best := make(map[string]Candidate)
	order := make([]string, 0, pool)
	var degradation *Degradation

	weight := 1.0
	for i, variant := range variants {
		if i > 0 {
			weight *= e.config.VariantDecay
		}
		matches, err := e.retriever.Search(tctx, variant, pool, qctx)
		if err != nil {
			degradation = &Degradation{Source: SourceSemantic, Reason: err.Error()}
			break
		}
		for _, m := range matches {
			score := m.Score * weight
			if existing, ok := best[m.EntityID]; ok {
				if score > existing.SourceScores[SourceSemantic] {
					existing.SourceScores[SourceSemantic] = score
					best[m.EntityID] = existing
				}
				continue
			}
			best[m.EntityID] = Candidate{
				EntityID:     m.EntityID,
				EntityKind:   m.EntityKind,
				Title:        m.Title,
				Description:  m.Description,
				Metadata:     m.Metadata,
				SourceScores: map[string]float64{SourceSemantic: score},
			}
			order = append(order, m.EntityID)
		}
	}

	// First-seen order keeps the output deterministic for fixed
	// retriever behavior.
	candidates := make([]Candidate, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, best[id])
	}
	return candidates, degradation
}

// toRankedResults converts finished candidates into the response shape.
func toRankedResults(candidates []Candidate) []RankedResult {
	results := make([]RankedResult, len(candidates))
	for i, c := range candidates {
		breakdown := make(map[string]float64, len(c.SourceScores)+2)
		for source, score := range c.SourceScores {
			breakdown[source] = score
		}
		breakdown["fused"] = c.FusedScore
		if c.RerankScore != 0 {
			breakdown[SourceRerank] = c.RerankScore
		}

		results[i] = RankedResult{
			EntityID:       c.EntityID,
			EntityKind:     c.EntityKind,
			Title:          c.Title,
			Description:    c.Description,
			FinalScore:     c.FinalScore,
			ScoreBreakdown: breakdown,
			BoostFactors:   c.BoostFactors,
			Metadata:       c.Metadata,
		}
	}
	return results
}
