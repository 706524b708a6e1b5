package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/discovery-cli/internal/resilience"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantCount int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"results": [
					{"url": "https://example.com/a", "title": "A", "content": "snippet a", "score": 0.7}
				]
			}`,
			wantCount: 1,
		},
		{
			name:    "server_error",
			status:  http.StatusBadGateway,
			body:    `{"error": "bad gateway"}`,
			wantErr: "unexpected status 502",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL),
				WithRetry(resilience.RetryConfig{MaxAttempts: 1}))

			resp, err := client.Search(context.Background(), SearchRequest{Query: "q", MaxResults: 5})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Len(t, resp.Results, tt.wantCount)
			assert.Equal(t, "snippet a", resp.Results[0].Content)
		})
	}
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": "overloaded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"url": "https://example.com/a"}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))

	resp, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 2, calls)
}

func TestSearch_DoesNotRetryRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limit exceeded"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))

	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.True(t, resilience.IsRateLimited(err))
	assert.Equal(t, 1, calls)
}

func TestSearch_DefaultDepth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "basic", req.SearchDepth)
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
}
