package search

import (
	"sort"
	"strings"
)

// DefaultMaxExpansions caps the variants per query, original included.
const DefaultMaxExpansions = 5

// Expander expands queries with domain synonyms to bridge the
// vocabulary gap between what customers type and how barbers describe
// their services ("fade" vs "skin fade").
type Expander struct {
	synonyms      map[string][]string
	keys          []string // sorted, for deterministic expansion order
	maxExpansions int
}

// ExpanderOption configures the expander.
type ExpanderOption func(*Expander)

// WithMaxExpansions sets the variant cap, original included.
func WithMaxExpansions(n int) ExpanderOption {
	return func(e *Expander) {
		if n > 0 {
			e.maxExpansions = n
		}
	}
}

// WithSynonyms adds custom synonym mappings on top of the defaults.
func WithSynonyms(synonyms map[string][]string) ExpanderOption {
	return func(e *Expander) {
		for k, v := range synonyms {
			e.synonyms[strings.ToLower(k)] = append(e.synonyms[strings.ToLower(k)], v...)
		}
	}
}

// NewExpander creates an expander seeded with the domain synonym table.
func NewExpander(opts ...ExpanderOption) *Expander {
	e := &Expander{
		synonyms:      make(map[string][]string, len(DomainSynonyms)),
		maxExpansions: DefaultMaxExpansions,
	}
	for k, v := range DomainSynonyms {
		e.synonyms[k] = v
	}

	for _, opt := range opts {
		opt(e)
	}

	e.keys = make([]string, 0, len(e.synonyms))
	for k := range e.synonyms {
		e.keys = append(e.keys, k)
	}
	sort.Strings(e.keys)

	return e
}

// Expand returns the query variants: the original query always first,
// then one variant per matching synonym, generated by substring
// replacement over the lowercased query. Pure and deterministic; a
// query with no matching terms yields a single-element result.
func (e *Expander) Expand(query string) []string {
	variants := []string{query}

	lowered := strings.ToLower(query)
	if strings.TrimSpace(lowered) == "" {
		return variants
	}

	seen := map[string]bool{lowered: true}
	for _, key := range e.keys {
		if !strings.Contains(lowered, key) {
			continue
		}
		for _, syn := range e.synonyms[key] {
			if len(variants) >= e.maxExpansions {
				return variants
			}
			variant := strings.ReplaceAll(lowered, key, syn)
			if seen[variant] {
				continue
			}
			seen[variant] = true
			variants = append(variants, variant)
		}
	}
	return variants
}
