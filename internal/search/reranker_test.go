package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/barberly/search/internal/errors"
)

// rerankFunc adapts a function to the RerankModel interface.
type rerankFunc func(ctx context.Context, query string, documents []string) ([]float64, error)

func (f rerankFunc) ScorePairs(ctx context.Context, query string, documents []string) ([]float64, error) {
	return f(ctx, query, documents)
}

func failingModel(reason string) RerankModel {
	return rerankFunc(func(context.Context, string, []string) ([]float64, error) {
		return nil, xerrors.New(xerrors.CodeRerankUnavailable, "%s", reason)
	})
}

func fusedCandidates(scores ...float64) []Candidate {
	out := make([]Candidate, len(scores))
	for i, s := range scores {
		out[i] = Candidate{
			EntityID:   string(rune('a' + i)),
			Title:      "candidate",
			FusedScore: s,
		}
	}
	return out
}

func TestRerankBlendsScores(t *testing.T) {
	model := rerankFunc(func(_ context.Context, _ string, docs []string) ([]float64, error) {
		scores := make([]float64, len(docs))
		for i := range docs {
			// Reverse the fused order: last document scores highest.
			scores[i] = float64(i + 1)
		}
		return scores, nil
	})
	a := NewRerankerAdapter(model, WithRerankWeight(0.6))

	candidates := fusedCandidates(1.0, 0.5)
	out, deg := a.Rerank(context.Background(), "fade", candidates, 2)
	require.Nil(t, deg)
	require.Len(t, out, 2)

	// b: 0.6*2 + 0.4*0.5 = 1.4 beats a: 0.6*1 + 0.4*1.0 = 1.0.
	assert.Equal(t, "b", out[0].EntityID)
	assert.InDelta(t, 1.4, out[0].FinalScore, 1e-9)
	assert.Equal(t, "a", out[1].EntityID)
	assert.InDelta(t, 1.0, out[1].FinalScore, 1e-9)
	assert.InDelta(t, 2.0, out[0].RerankScore, 1e-9)
}

func TestRerankFallbackOnModelError(t *testing.T) {
	a := NewRerankerAdapter(failingModel("model offline"))

	candidates := fusedCandidates(1.0, 0.8, 0.3)
	out, deg := a.Rerank(context.Background(), "fade", candidates, 3)

	require.NotNil(t, deg)
	assert.Equal(t, SourceRerank, deg.Source)
	assert.Contains(t, deg.Reason, "model offline")

	// Fallback passes fused scores through unchanged, same count.
	require.Len(t, out, 3)
	for _, c := range out {
		assert.Equal(t, c.FusedScore, c.FinalScore)
	}
	assert.Equal(t, "a", out[0].EntityID)
}

func TestRerankNoopModelFallsBack(t *testing.T) {
	a := NewRerankerAdapter(NoopRerankModel{})

	out, deg := a.Rerank(context.Background(), "fade", fusedCandidates(0.9), 1)
	require.NotNil(t, deg)
	require.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].FinalScore)
}

func TestRerankWindowTailKeepsFusedScore(t *testing.T) {
	model := rerankFunc(func(_ context.Context, _ string, docs []string) ([]float64, error) {
		scores := make([]float64, len(docs))
		for i := range docs {
			scores[i] = 0.5
		}
		return scores, nil
	})
	a := NewRerankerAdapter(model, WithRerankWindow(2), WithRerankWeight(0.6))

	candidates := fusedCandidates(1.0, 0.9, 0.8)
	out, deg := a.Rerank(context.Background(), "fade", candidates, 2)
	require.Nil(t, deg)

	// Only the top two entered the window; "c" kept its fused score and
	// outranks the blended window scores (0.8 > 0.6*0.5+0.4*1.0).
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].EntityID)
	assert.InDelta(t, 0.8, out[0].FinalScore, 1e-9)
}

func TestRerankMisalignedScoresDegrade(t *testing.T) {
	model := rerankFunc(func(_ context.Context, _ string, docs []string) ([]float64, error) {
		return []float64{0.5}, nil
	})
	a := NewRerankerAdapter(model)

	out, deg := a.Rerank(context.Background(), "fade", fusedCandidates(1.0, 0.5), 2)
	require.NotNil(t, deg)
	assert.Contains(t, deg.Reason, "misaligned")
	require.Len(t, out, 2)
	assert.Equal(t, out[0].FusedScore, out[0].FinalScore)
}

func TestRerankCircuitOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	model := rerankFunc(func(context.Context, string, []string) ([]float64, error) {
		calls++
		return nil, xerrors.New(xerrors.CodeRerankUnavailable, "down")
	})
	a := NewRerankerAdapter(model)

	for i := 0; i < 5; i++ {
		_, deg := a.Rerank(context.Background(), "fade", fusedCandidates(1.0), 1)
		require.NotNil(t, deg)
	}
	assert.Equal(t, 5, calls)

	// Circuit is open: the model is not called again.
	_, deg := a.Rerank(context.Background(), "fade", fusedCandidates(1.0), 1)
	require.NotNil(t, deg)
	assert.Contains(t, deg.Reason, "circuit open")
	assert.Equal(t, 5, calls)
}

func TestRerankEmptyCandidates(t *testing.T) {
	a := NewRerankerAdapter(failingModel("down"))

	out, deg := a.Rerank(context.Background(), "fade", nil, 5)
	assert.Nil(t, deg)
	assert.Empty(t, out)
}
