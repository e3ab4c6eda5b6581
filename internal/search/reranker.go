package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	xerrors "github.com/barberly/search/internal/errors"
)

// Rerank blend defaults.
const (
	// DefaultRerankWeight is the rerank share of the final score; the
	// fused score carries the remainder.
	DefaultRerankWeight = 0.6

	// DefaultRerankWindow is how many top candidates are sent to the
	// rerank model.
	DefaultRerankWindow = 20

	// DefaultRerankTimeout bounds one rerank call.
	DefaultRerankTimeout = 3 * time.Second
)

// RerankModel is the external pairwise relevance collaborator. It is
// stateless and batched: one call scores all (query, document) pairs.
type RerankModel interface {
	ScorePairs(ctx context.Context, query string, documents []string) ([]float64, error)
}

// NoopRerankModel is the null RerankModel: always unavailable, which
// forces the adapter's fused-score fallback. Used when no reranker is
// configured and as the test default.
type NoopRerankModel struct{}

var _ RerankModel = NoopRerankModel{}

// ScorePairs implements RerankModel.
func (NoopRerankModel) ScorePairs(context.Context, string, []string) ([]float64, error) {
	return nil, xerrors.New(xerrors.CodeRerankUnavailable, "no rerank model configured")
}

// RerankerAdapter refines the top fused candidates with the external
// pairwise model. Any model failure falls back to the fused+boosted
// score; the query never fails because reranking did.
type RerankerAdapter struct {
	model   RerankModel
	weight  float64
	window  int
	timeout time.Duration
	breaker *xerrors.CircuitBreaker
}

// RerankerOption configures the adapter.
type RerankerOption func(*RerankerAdapter)

// WithRerankWeight sets the rerank share of the final blended score.
func WithRerankWeight(w float64) RerankerOption {
	return func(a *RerankerAdapter) {
		if w >= 0 && w <= 1 {
			a.weight = w
		}
	}
}

// WithRerankWindow sets how many top candidates are reranked.
func WithRerankWindow(n int) RerankerOption {
	return func(a *RerankerAdapter) {
		if n > 0 {
			a.window = n
		}
	}
}

// WithRerankTimeout bounds each model call.
func WithRerankTimeout(d time.Duration) RerankerOption {
	return func(a *RerankerAdapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewRerankerAdapter creates the adapter. A nil model behaves like
// NoopRerankModel.
func NewRerankerAdapter(model RerankModel, opts ...RerankerOption) *RerankerAdapter {
	if model == nil {
		model = NoopRerankModel{}
	}
	a := &RerankerAdapter{
		model:   model,
		weight:  DefaultRerankWeight,
		window:  DefaultRerankWindow,
		timeout: DefaultRerankTimeout,
		breaker: xerrors.NewCircuitBreaker("rerank"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rerank scores the top-window candidates against the query and blends
// rerank and fused scores into the final score. Candidates beyond the
// window, and all candidates on the fallback path, carry their fused
// score through unchanged. Returns up to topK candidates sorted by
// final score, plus a degradation record when the model could not be
// used.
func (a *RerankerAdapter) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, *Degradation) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	window := a.window
	if window < topK {
		window = topK
	}
	if window > len(candidates) {
		window = len(candidates)
	}

	scores, degradation := a.scoreWindow(ctx, query, candidates[:window])
	if degradation != nil {
		for i := range candidates {
			candidates[i].FinalScore = candidates[i].FusedScore
		}
	} else {
		for i := range candidates {
			if i < window {
				candidates[i].RerankScore = scores[i]
				candidates[i].FinalScore = a.weight*scores[i] + (1-a.weight)*candidates[i].FusedScore
			} else {
				candidates[i].FinalScore = candidates[i].FusedScore
			}
		}
	}

	sort.Slice(candidates, func(x, y int) bool {
		if candidates[x].FinalScore != candidates[y].FinalScore {
			return candidates[x].FinalScore > candidates[y].FinalScore
		}
		return candidates[x].EntityID < candidates[y].EntityID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, degradation
}

// scoreWindow calls the model once for the window, mediated by the
// circuit breaker. Returns scores aligned with the window, or a
// degradation describing why the model was skipped.
func (a *RerankerAdapter) scoreWindow(ctx context.Context, query string, window []Candidate) ([]float64, *Degradation) {
	if !a.breaker.Allow() {
		return nil, &Degradation{Source: SourceRerank, Reason: "circuit open, rerank model skipped"}
	}

	documents := make([]string, len(window))
	for i, c := range window {
		documents[i] = pairText(c)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	scores, err := a.model.ScorePairs(callCtx, query, documents)
	if err != nil {
		a.breaker.RecordFailure()
		slog.Warn("rerank_fallback",
			slog.String("reason", err.Error()),
			slog.Int("candidates", len(window)))
		return nil, &Degradation{Source: SourceRerank, Reason: err.Error()}
	}
	if len(scores) != len(documents) {
		a.breaker.RecordFailure()
		return nil, &Degradation{Source: SourceRerank, Reason: "rerank model returned misaligned scores"}
	}

	a.breaker.RecordSuccess()
	return scores, nil
}

// pairText is the candidate summary text sent to the pairwise model.
func pairText(c Candidate) string {
	if c.Description == "" {
		return c.Title
	}
	return strings.TrimSpace(c.Title + " " + c.Description)
}
