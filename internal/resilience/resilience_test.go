package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastRetry(3), "test", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewAPIError("test", 503, errors.New("service unavailable"))
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, calls)
}

func TestDo_NonTransientFailsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastRetry(3), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, NewAPIError("test", 400, errors.New("bad request"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastRetry(3), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, NewAPIError("test", 429, errors.New("too many requests"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastRetry(5), "test", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewAPIError("test", 500, errors.New("boom"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api_429", NewAPIError("x", 429, errors.New("throttled")), true},
		{"api_503", NewAPIError("x", 503, errors.New("unavailable")), true},
		{"api_400", NewAPIError("x", 400, errors.New("bad request")), false},
		{"api_401", NewAPIError("x", 401, errors.New("unauthorized")), false},
		{"conn_reset_msg", errors.New("read tcp: connection reset by peer"), true},
		{"io_timeout_msg", errors.New("dial tcp: i/o timeout"), true},
		{"rate_limit_msg", errors.New("provider rate limit exceeded"), true},
		{"plain", errors.New("schema mismatch"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api_429", NewAPIError("x", 429, errors.New("slow down")), true},
		{"api_401", NewAPIError("x", 401, errors.New("nope")), true},
		{"api_403", NewAPIError("x", 403, errors.New("nope")), true},
		{"api_500", NewAPIError("x", 500, errors.New("boom")), false},
		{"msg_429", errors.New("unexpected status 429: slow down"), true},
		{"msg_key", errors.New("invalid api key"), true},
		{"plain", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}
