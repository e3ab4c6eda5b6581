// Package config loads and validates the engine configuration.
//
// Precedence, lowest to highest:
//  1. Hardcoded defaults
//  2. YAML config file (barberly.yaml in the given directory)
//  3. Environment variables (BARBERLY_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Search     SearchConfig     `yaml:"search"`
	Lexical    LexicalConfig    `yaml:"lexical"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Reranker   RerankerConfig   `yaml:"reranker"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	LogLevel   string           `yaml:"log_level"`
}

// SearchConfig controls query expansion, fusion, boosting, and the
// rerank blend.
type SearchConfig struct {
	// LexicalWeight scales raw lexical scores in fusion.
	LexicalWeight float64 `yaml:"lexical_weight"`

	// SemanticWeight scales raw semantic scores in fusion.
	SemanticWeight float64 `yaml:"semantic_weight"`

	// RerankWeight is the rerank share of the final blended score; the
	// fused score carries the remainder.
	RerankWeight float64 `yaml:"rerank_weight"`

	// RerankWindow is how many top fused candidates are sent to the
	// rerank model.
	RerankWindow int `yaml:"rerank_window"`

	// MaxExpansions caps query variants, original included.
	MaxExpansions int `yaml:"max_expansions"`

	// LocationBoost multiplies candidates matching the query location.
	LocationBoost float64 `yaml:"location_boost"`

	// RoleBoost multiplies provider candidates when the query context
	// names a provider role.
	RoleBoost float64 `yaml:"role_boost"`

	// RetrievalTimeout bounds each retrieval source per query.
	RetrievalTimeout time.Duration `yaml:"retrieval_timeout"`

	// RerankTimeout bounds the rerank call per query.
	RerankTimeout time.Duration `yaml:"rerank_timeout"`
}

// LexicalConfig controls lexical index scoring and freshness.
type LexicalConfig struct {
	K1           float64       `yaml:"k1"`
	B            float64       `yaml:"b"`
	IDFFloor     float64       `yaml:"idf_floor"`
	VariantDecay float64       `yaml:"variant_decay"`
	TTL          time.Duration `yaml:"ttl"`
}

// EmbeddingsConfig controls the semantic retriever's embedding client.
type EmbeddingsConfig struct {
	// Provider is "openai" or "none" (disables semantic retrieval).
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	// CacheSize is the embedding LRU capacity.
	CacheSize int `yaml:"cache_size"`
	// Workers is the bulk-embed worker pool size.
	Workers int `yaml:"workers"`
}

// RerankerConfig controls the external rerank model client.
type RerankerConfig struct {
	// Endpoint is the rerank HTTP service URL. Empty disables reranking.
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// CatalogConfig locates the document catalog.
type CatalogConfig struct {
	// Path is the YAML catalog file read by the file source.
	Path string `yaml:"path"`
	// DSN is the SQLite database used instead of Path when set.
	DSN string `yaml:"dsn"`
	// Watch enables filesystem watching of Path to trigger rebuilds.
	Watch bool `yaml:"watch"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Search: SearchConfig{
			LexicalWeight:    0.3,
			SemanticWeight:   0.4,
			RerankWeight:     0.6,
			RerankWindow:     20,
			MaxExpansions:    5,
			LocationBoost:    1.2,
			RoleBoost:        1.1,
			RetrievalTimeout: 2 * time.Second,
			RerankTimeout:    3 * time.Second,
		},
		Lexical: LexicalConfig{
			K1:           1.2,
			B:            0.75,
			IDFFloor:     0.01,
			VariantDecay: 0.8,
			TTL:          time.Hour,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "none",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			CacheSize:  4096,
			Workers:    8,
		},
		Reranker: RerankerConfig{
			Model: "rerank-base",
		},
		Catalog: CatalogConfig{
			Path:  "catalog.yaml",
			Watch: true,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from dir, applying file and environment
// overrides on top of defaults and validating the result.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile loads barberly.yaml or barberly.yml from dir. A missing
// file is fine; defaults apply.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{"barberly.yaml", "barberly.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Search.LexicalWeight != 0 {
		c.Search.LexicalWeight = other.Search.LexicalWeight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.RerankWeight != 0 {
		c.Search.RerankWeight = other.Search.RerankWeight
	}
	if other.Search.RerankWindow != 0 {
		c.Search.RerankWindow = other.Search.RerankWindow
	}
	if other.Search.MaxExpansions != 0 {
		c.Search.MaxExpansions = other.Search.MaxExpansions
	}
	if other.Search.LocationBoost != 0 {
		c.Search.LocationBoost = other.Search.LocationBoost
	}
	if other.Search.RoleBoost != 0 {
		c.Search.RoleBoost = other.Search.RoleBoost
	}
	if other.Search.RetrievalTimeout != 0 {
		c.Search.RetrievalTimeout = other.Search.RetrievalTimeout
	}
	if other.Search.RerankTimeout != 0 {
		c.Search.RerankTimeout = other.Search.RerankTimeout
	}

	if other.Lexical.K1 != 0 {
		c.Lexical.K1 = other.Lexical.K1
	}
	if other.Lexical.B != 0 {
		c.Lexical.B = other.Lexical.B
	}
	if other.Lexical.IDFFloor != 0 {
		c.Lexical.IDFFloor = other.Lexical.IDFFloor
	}
	if other.Lexical.VariantDecay != 0 {
		c.Lexical.VariantDecay = other.Lexical.VariantDecay
	}
	if other.Lexical.TTL != 0 {
		c.Lexical.TTL = other.Lexical.TTL
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BaseURL != "" {
		c.Embeddings.BaseURL = other.Embeddings.BaseURL
	}
	if other.Embeddings.APIKey != "" {
		c.Embeddings.APIKey = other.Embeddings.APIKey
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Embeddings.Workers != 0 {
		c.Embeddings.Workers = other.Embeddings.Workers
	}

	if other.Reranker.Endpoint != "" {
		c.Reranker.Endpoint = other.Reranker.Endpoint
	}
	if other.Reranker.Model != "" {
		c.Reranker.Model = other.Reranker.Model
	}

	if other.Catalog.Path != "" {
		c.Catalog.Path = other.Catalog.Path
	}
	if other.Catalog.DSN != "" {
		c.Catalog.DSN = other.Catalog.DSN
	}
	if other.Catalog.DSN != "" || other.Catalog.Path != "" {
		c.Catalog.Watch = other.Catalog.Watch
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies BARBERLY_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BARBERLY_LEXICAL_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("BARBERLY_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("BARBERLY_RERANK_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.RerankWindow = n
		}
	}
	if v := os.Getenv("BARBERLY_INDEX_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Lexical.TTL = d
		}
	}
	if v := os.Getenv("BARBERLY_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("BARBERLY_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("BARBERLY_OPENAI_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Embeddings.APIKey == "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("BARBERLY_RERANKER_ENDPOINT"); v != "" {
		c.Reranker.Endpoint = v
	}
	if v := os.Getenv("BARBERLY_CATALOG_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("BARBERLY_CATALOG_DSN"); v != "" {
		c.Catalog.DSN = v
	}
	if v := os.Getenv("BARBERLY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects configurations the engine cannot serve with.
func (c *Config) Validate() error {
	if c.Search.LexicalWeight < 0 || c.Search.LexicalWeight > 1 {
		return fmt.Errorf("search.lexical_weight must be between 0 and 1, got %f", c.Search.LexicalWeight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if c.Search.RerankWeight < 0 || c.Search.RerankWeight > 1 {
		return fmt.Errorf("search.rerank_weight must be between 0 and 1, got %f", c.Search.RerankWeight)
	}
	if c.Search.RerankWindow <= 0 {
		return fmt.Errorf("search.rerank_window must be positive, got %d", c.Search.RerankWindow)
	}
	if c.Search.MaxExpansions <= 0 {
		return fmt.Errorf("search.max_expansions must be positive, got %d", c.Search.MaxExpansions)
	}
	if c.Search.LocationBoost < 1 {
		return fmt.Errorf("search.location_boost must be >= 1, got %f", c.Search.LocationBoost)
	}
	if c.Search.RoleBoost < 1 {
		return fmt.Errorf("search.role_boost must be >= 1, got %f", c.Search.RoleBoost)
	}

	if c.Lexical.K1 <= 0 {
		return fmt.Errorf("lexical.k1 must be positive, got %f", c.Lexical.K1)
	}
	if c.Lexical.B < 0 || c.Lexical.B > 1 {
		return fmt.Errorf("lexical.b must be between 0 and 1, got %f", c.Lexical.B)
	}
	if c.Lexical.VariantDecay <= 0 || c.Lexical.VariantDecay > 1 {
		return fmt.Errorf("lexical.variant_decay must be in (0, 1], got %f", c.Lexical.VariantDecay)
	}
	if c.Lexical.TTL <= 0 {
		return fmt.Errorf("lexical.ttl must be positive, got %s", c.Lexical.TTL)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "openai", "none":
	default:
		return fmt.Errorf("embeddings.provider must be 'openai' or 'none', got %s", c.Embeddings.Provider)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
