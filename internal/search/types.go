// Package search implements the hybrid ranking pipeline: query
// expansion, parallel lexical and semantic retrieval, weighted score
// fusion, contextual boosting, and a rerank pass that degrades to the
// fused ranking when the external model is unavailable.
package search

import (
	"context"

	"github.com/barberly/search/internal/lexical"
)

// Source names used in score maps and degradation records.
const (
	SourceLexical  = "lexical"
	SourceSemantic = "semantic"
	SourceRerank   = "rerank"
)

// Candidate is the intermediate ranking record produced during query
// processing. Candidates are transient, created per query and discarded
// once the response is built.
type Candidate struct {
	EntityID    string
	EntityKind  lexical.EntityKind
	Title       string
	Description string

	// SourceScores maps source name to the raw (unweighted) score that
	// source produced for this entity.
	SourceScores map[string]float64

	// FusedScore is the weighted combination of source scores, further
	// adjusted by contextual boosts.
	FusedScore float64

	// BoostFactors is the audit list of applied contextual multipliers.
	BoostFactors []BoostFactor

	// RerankScore is the external pairwise model's score, when available.
	RerankScore float64

	// FinalScore is the blended rerank+fused score, or the fused score
	// on the fallback path. Always set once the pipeline completes.
	FinalScore float64

	// Metadata is pass-through document metadata.
	Metadata map[string]string
}

// BoostFactor records one applied contextual multiplier, by name, so a
// response can explain why a candidate ranked where it did.
type BoostFactor struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// QueryContext carries caller-supplied context signals. A nil context
// disables boosting entirely.
type QueryContext struct {
	// LocationID is the caller's requested location.
	LocationID string

	// Role is the caller's role ("customer", "barber", ...).
	Role string
}

// RankedResult is one entry of the final ranked list.
type RankedResult struct {
	EntityID    string             `json:"entity_id"`
	EntityKind  lexical.EntityKind `json:"entity_kind"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	FinalScore  float64            `json:"final_score"`

	// ScoreBreakdown exposes the raw source scores plus the fused and
	// rerank scores that produced FinalScore.
	ScoreBreakdown map[string]float64 `json:"score_breakdown"`

	BoostFactors []BoostFactor     `json:"boost_factors,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Degradation records one reduced-signal condition hit while serving a
// query. Degradations are response metadata, never query failures.
type Degradation struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// Response is the result of one AdvancedSearch call.
type Response struct {
	Results []RankedResult `json:"results"`

	// Degraded lists the sources that could not contribute full signal.
	Degraded []Degradation `json:"degraded,omitempty"`
}

// ScoredMatch is one semantic retrieval hit.
type ScoredMatch struct {
	EntityID    string
	EntityKind  lexical.EntityKind
	Title       string
	Description string
	Score       float64
	Metadata    map[string]string
}

// SemanticRetriever is the external embedding-based retrieval
// collaborator. Errors are treated as zero semantic candidates, never
// as query failures.
type SemanticRetriever interface {
	Search(ctx context.Context, query string, topK int, qctx *QueryContext) ([]ScoredMatch, error)
}

// NoopRetriever is the null SemanticRetriever: always zero candidates.
// Used when semantic retrieval is disabled and as the test default.
type NoopRetriever struct{}

var _ SemanticRetriever = NoopRetriever{}

// Search implements SemanticRetriever.
func (NoopRetriever) Search(context.Context, string, int, *QueryContext) ([]ScoredMatch, error) {
	return nil, nil
}
