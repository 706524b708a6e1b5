// Package llm wraps the OpenAI-compatible chat-completion and embedding
// endpoints behind the two operations the pipeline needs: strict-JSON
// completions and batched embeddings.
package llm

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/probelab/discovery-cli/internal/resilience"
)

// EmbeddingDim is the fixed dimensionality of embedding vectors.
const EmbeddingDim = 1536

const (
	defaultChatModel      = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"

	// maxEmbedBatch caps inputs per embedding request.
	maxEmbedBatch = 100
	// embedCharBudget is a soft per-request character budget (~25K tokens).
	embedCharBudget = 100_000
)

// Client is the language-model collaborator.
type Client interface {
	// CompleteJSON requests a strict-JSON chat completion and returns the
	// raw content for the caller to parse and validate.
	CompleteJSON(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	// EmbedBatch embeds the inputs, splitting into capped batches, and
	// returns vectors positionally aligned with the inputs.
	EmbedBatch(ctx context.Context, inputs []string) (*EmbeddingResult, error)
}

// CompletionRequest is one strict-JSON chat call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// CompletionResult carries the content and token usage of one call.
type CompletionResult struct {
	Content     string
	TotalTokens int
}

// EmbeddingResult carries vectors aligned with the request inputs plus
// usage across however many requests the batch required.
type EmbeddingResult struct {
	Vectors      [][]float32
	PromptTokens int
	Requests     int
}

// Option configures the client.
type Option func(*apiClient)

// WithBaseURL points the client at a different endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *apiClient) {
		c.baseURL = url
	}
}

// WithChatModel overrides the default chat model.
func WithChatModel(model string) Option {
	return func(c *apiClient) {
		c.chatModel = model
	}
}

// WithEmbeddingModel overrides the default embedding model.
func WithEmbeddingModel(model string) Option {
	return func(c *apiClient) {
		c.embeddingModel = model
	}
}

// WithRetry overrides the retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *apiClient) {
		c.retry = cfg
	}
}

type apiClient struct {
	api            *openai.Client
	baseURL        string
	chatModel      string
	embeddingModel string
	retry          resilience.RetryConfig
}

// NewClient creates an OpenAI-backed LLM client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &apiClient{
		chatModel:      defaultChatModel,
		embeddingModel: defaultEmbeddingModel,
		retry:          resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.ShouldRetry == nil {
		c.retry.ShouldRetry = isRetryable
	}
	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

func (c *apiClient) CompleteJSON(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
		{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := resilience.Do(ctx, c.retry, "llm", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, apiReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("llm: empty choices in completion response")
	}

	return &CompletionResult{
		Content:     resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

func (c *apiClient) EmbedBatch(ctx context.Context, inputs []string) (*EmbeddingResult, error) {
	result := &EmbeddingResult{}
	if len(inputs) == 0 {
		return result, nil
	}

	for start := 0; start < len(inputs); {
		end := start
		chars := 0
		for end < len(inputs) && end-start < maxEmbedBatch {
			chars += len(inputs[end])
			if chars > embedCharBudget && end > start {
				break
			}
			end++
		}

		batch := inputs[start:end]
		resp, err := resilience.Do(ctx, c.retry, "embeddings", func(ctx context.Context) (openai.EmbeddingResponse, error) {
			return c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Model: openai.EmbeddingModel(c.embeddingModel),
				Input: batch,
			})
		})
		if err != nil {
			return nil, eris.Wrap(err, "llm: create embeddings")
		}
		result.Requests++
		result.PromptTokens += resp.Usage.PromptTokens

		if len(resp.Data) != len(batch) {
			return nil, eris.Errorf("llm: embedding count mismatch: sent %d, got %d", len(batch), len(resp.Data))
		}

		// The API may return items out of order; realign by index before
		// treating them as positional.
		vecs := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, eris.Errorf("llm: embedding index %d out of range", d.Index)
			}
			if len(d.Embedding) != EmbeddingDim {
				return nil, eris.Errorf("llm: unexpected embedding dimension %d", len(d.Embedding))
			}
			vecs[d.Index] = d.Embedding
		}
		result.Vectors = append(result.Vectors, vecs...)

		start = end
	}

	return result, nil
}

// isRetryable classifies OpenAI client errors for retry.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 408, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	return resilience.IsTransient(err)
}
