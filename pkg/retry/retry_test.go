package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), 3, time.Millisecond, func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("attempt %d failed", calls)
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), 3, time.Millisecond, func() (int, error) {
		calls++
		return 0, fmt.Errorf("still failing")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), 5, time.Millisecond, func() (int, error) {
		calls++
		return 0, Permanent(fmt.Errorf("not worth retrying"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, 10, 50*time.Millisecond, func() (int, error) {
		calls++
		cancel()
		return 0, fmt.Errorf("failing")
	})

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}

func TestDoNormalizesAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), 0, time.Millisecond, func() (int, error) {
		calls++
		return 0, fmt.Errorf("failing")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
