package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	xerrors "github.com/barberly/search/internal/errors"
)

// HTTP rerank client defaults.
const (
	DefaultRerankerEndpoint = "http://localhost:9659"
	DefaultRerankerModel    = "rerank-base"
)

// HTTPRerankModelConfig holds configuration for the HTTP rerank client.
type HTTPRerankModelConfig struct {
	// Endpoint is the rerank server URL.
	Endpoint string

	// Model is the model alias sent with each request.
	Model string

	// Timeout is the per-request HTTP timeout. The adapter applies its
	// own deadline on top; this is a safety net for direct callers.
	Timeout time.Duration
}

// HTTPRerankModel scores (query, document) pairs via a rerank HTTP
// service.
type HTTPRerankModel struct {
	client *http.Client
	config HTTPRerankModelConfig
}

var _ RerankModel = (*HTTPRerankModel)(nil)

// NewHTTPRerankModel creates the HTTP rerank client.
func NewHTTPRerankModel(cfg HTTPRerankModelConfig) *HTTPRerankModel {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRerankerEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultRerankerModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRerankTimeout
	}

	return &HTTPRerankModel{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		config: cfg,
	}
}

// rerankRequest is the JSON request to the /rerank endpoint.
type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

// rerankResponse is the JSON response from the /rerank endpoint.
// Results may arrive in relevance order; Index maps each score back to
// its input document.
type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// ScorePairs implements RerankModel. Returned scores align with the
// input document order.
func (m *HTTPRerankModel) ScorePairs(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	start := time.Now()
	body, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     m.config.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.Endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRerankUnavailable, "rerank request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, xerrors.New(xerrors.CodeRerankUnavailable, "rerank failed (status %d): %s", resp.StatusCode, msg)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRerankUnavailable, "decode rerank response", err)
	}

	scores := make([]float64, len(documents))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, xerrors.New(xerrors.CodeRerankUnavailable, "rerank result index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
	}

	slog.Debug("rerank_scored",
		slog.Int("documents", len(documents)),
		slog.Duration("elapsed", time.Since(start)))
	return scores, nil
}

// Available reports whether the rerank service answers its health
// endpoint.
func (m *HTTPRerankModel) Available(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, m.config.Endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
