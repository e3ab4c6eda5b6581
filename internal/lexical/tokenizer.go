package lexical

import (
	"regexp"
	"strings"
)

// wordRegex matches alphanumeric runs; everything else is a separator.
var wordRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Tokenize splits text into lowercase tokens, stripping non-word
// characters and dropping tokens of length <= 1. Queries and documents
// go through the same function so their token streams line up.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(text, -1)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) <= 1 {
			continue
		}
		tokens = append(tokens, lower)
	}
	return tokens
}
