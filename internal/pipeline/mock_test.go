package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/pkg/harmonic"
)

// --- LLM Mock ---

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) CompleteJSON(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.CompletionResult), args.Error(1)
}

func (m *mockLLMClient) EmbedBatch(ctx context.Context, inputs []string) (*llm.EmbeddingResult, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.EmbeddingResult), args.Error(1)
}

// --- Harmonic Mock ---

type mockHarmonicClient struct {
	mock.Mock
}

func (m *mockHarmonicClient) SearchCompanies(ctx context.Context, req harmonic.SearchRequest) (*harmonic.SearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*harmonic.SearchResponse), args.Error(1)
}

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, q model.SearchQuery, numResults int) ([]model.SearchResult, error) {
	args := m.Called(ctx, q, numResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateStartup(ctx context.Context, s model.Startup) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

func (m *mockStore) FindStartupByProfileURL(ctx context.Context, profileURL string) (*model.Startup, error) {
	args := m.Called(ctx, profileURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Startup), args.Error(1)
}

func (m *mockStore) ListStartups(ctx context.Context, limit int) ([]model.Startup, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Startup), args.Error(1)
}

func (m *mockStore) CreateProblem(ctx context.Context, p model.Problem) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockStore) CreateSignal(ctx context.Context, s model.ImplicitSignal) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

func (m *mockStore) CreateCluster(ctx context.Context, c model.ProblemCluster, problemIDs []string) (string, error) {
	args := m.Called(ctx, c, problemIDs)
	return args.String(0), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context) (*model.Run, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.Summary, errs []model.ErrorRecord) error {
	args := m.Called(ctx, runID, status, summary, errs)
	return args.Error(0)
}

func (m *mockStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
