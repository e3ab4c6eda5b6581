package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeInvalidArgument, "topK must be positive, got %d", -3)
	assert.Equal(t, "[invalid_argument] topK must be positive, got -3", err.Error())

	wrapped := Wrap(CodeBuildFailed, "rebuild", stderrors.New("source offline"))
	assert.Equal(t, "[build_failed] rebuild: source offline", wrapped.Error())
}

func TestWrapNilCause(t *testing.T) {
	assert.Nil(t, Wrap(CodeBuildFailed, "rebuild", nil))
}

func TestErrorChainMatching(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("rerank call: %w", Wrap(CodeRerankUnavailable, "score pairs", cause))

	assert.Equal(t, CodeRerankUnavailable, CodeOf(err))
	assert.True(t, stderrors.Is(err, New(CodeRerankUnavailable, "any")))
	assert.True(t, stderrors.Is(err, cause))
}

func TestIsContractViolation(t *testing.T) {
	assert.True(t, IsContractViolation(InvalidArgument("bad input")))
	assert.True(t, IsContractViolation(New(CodeDuplicateDocument, "entity b-1")))
	assert.False(t, IsContractViolation(New(CodeRerankUnavailable, "down")))
	assert.False(t, IsContractViolation(stderrors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeRetrieverUnavailable, "timeout")))
	assert.False(t, IsRetryable(InvalidArgument("bad input")))
	assert.False(t, IsRetryable(nil))
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	calls := 0
	result, err := RetryWithResult(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", stderrors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return stderrors.New("always")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorContains(t, err, "failed after 2 retries")
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error {
		calls++
		return stderrors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2)
}
