package search

import (
	"sort"
	"strings"

	xerrors "github.com/barberly/search/internal/errors"
)

// Suggestions returns autocomplete phrases for a partial query. It
// matches the static phrase list, then adds expander variants of the
// partial query, without touching the index. Output is deterministic:
// phrase-list matches in alphabetical order, then expansion variants
// in expansion order.
func (e *Engine) Suggestions(partialQuery string, topK int) ([]string, error) {
	if topK <= 0 {
		return nil, xerrors.InvalidArgument("topK must be positive, got %d", topK)
	}

	partial := strings.ToLower(strings.TrimSpace(partialQuery))
	if partial == "" {
		return nil, nil
	}

	seen := map[string]bool{partial: true}
	suggestions := make([]string, 0, topK)

	phrases := make([]string, len(suggestionPhrases))
	copy(phrases, suggestionPhrases)
	sort.Strings(phrases)

	for _, phrase := range phrases {
		if len(suggestions) >= topK {
			return suggestions, nil
		}
		if strings.Contains(phrase, partial) && !seen[phrase] {
			seen[phrase] = true
			suggestions = append(suggestions, phrase)
		}
	}

	// Expansion variants surface synonyms the phrase list misses.
	for _, variant := range e.expander.Expand(partial) {
		if len(suggestions) >= topK {
			break
		}
		if !seen[variant] {
			seen[variant] = true
			suggestions = append(suggestions, variant)
		}
	}
	return suggestions, nil
}
