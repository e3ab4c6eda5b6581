package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/barberly/search/internal/errors"
	"github.com/barberly/search/internal/lexical"
)

func TestSuggestionsMatchPhraseList(t *testing.T) {
	eng := newTestEngine(t, nil)

	got, err := eng.Suggestions("fade", 10)
	require.NoError(t, err)

	assert.Contains(t, got, "high fade")
	assert.Contains(t, got, "low fade")
	assert.Contains(t, got, "skin fade")
	assert.Contains(t, got, "taper fade")
}

func TestSuggestionsRespectTopK(t *testing.T) {
	eng := newTestEngine(t, nil)

	got, err := eng.Suggestions("fade", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSuggestionsRejectNonPositiveTopK(t *testing.T) {
	eng := newTestEngine(t, nil)

	_, err := eng.Suggestions("fade", 0)
	require.Error(t, err)
	assert.True(t, xerrors.IsContractViolation(err))
}

func TestSuggestionsEmptyPartialReturnsNothing(t *testing.T) {
	eng := newTestEngine(t, nil)

	got, err := eng.Suggestions("  ", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestionsIncludeExpanderVariants(t *testing.T) {
	eng := newTestEngine(t, nil)

	// "dreads" is absent from the phrase list; only the synonym table
	// knows about it.
	got, err := eng.Suggestions("dreads", 10)
	require.NoError(t, err)
	assert.Contains(t, got, "dreadlocks")
}

func TestSuggestionsDeterministic(t *testing.T) {
	eng := newTestEngine(t, nil)

	first, err := eng.Suggestions("fade", 10)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := eng.Suggestions("fade", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSuggestionsNeverTouchIndex(t *testing.T) {
	// An engine whose document source always fails still serves
	// suggestions: they depend only on static data.
	mgr, err := lexical.NewManager(failingSource{})
	require.NoError(t, err)

	eng, err := NewEngine(mgr, DefaultEngineConfig())
	require.NoError(t, err)

	got, err := eng.Suggestions("fade", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

type failingSource struct{}

func (failingSource) Documents(context.Context) ([]lexical.Document, error) {
	return nil, assert.AnError
}
