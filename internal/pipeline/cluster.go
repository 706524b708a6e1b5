package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/cache"
	"github.com/probelab/discovery-cli/internal/cluster"
	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/state"
)

const themeSystemPrompt = `You label groups of related startup problems.
Respond with a JSON object of the form:
{"theme": "three to six word label", "description": "one sentence describing what unites these problems"}`

type themeResponse struct {
	Theme       string `json:"theme"`
	Description string `json:"description"`
}

// industryVocab and fundingVocab are the fixed vocabularies clusters are
// tagged against.
var industryVocab = []string{
	"fintech", "healthcare", "developer tools", "logistics", "ecommerce",
	"security", "education", "climate", "hr", "ai",
}

var fundingVocab = []string{
	"pre_seed", "seed", "series_a", "series_b", "series_c",
}

// ClusterConfig bundles the clustering stage knobs.
type ClusterConfig struct {
	MinProblems    int
	Epsilon        float64
	MinSamples     int
	MinClusterSize int
}

// ClusterStage embeds problem statements and groups them by cosine
// density. Below the minimum problem count the whole stage is skipped
// without any API call. Noise points belong to no cluster.
func ClusterStage(ctx context.Context, problems []model.Problem, client llm.Client, embCache *cache.EmbeddingCache, cfg ClusterConfig) *state.Update {
	log := zap.L().Named("cluster")
	update := &state.Update{Metrics: &model.Metrics{}}

	if len(problems) < cfg.MinProblems {
		log.Info("too few problems, skipping",
			zap.Int("problems", len(problems)),
			zap.Int("minimum", cfg.MinProblems),
		)
		update.Progress = &model.Progress{
			Stage:   "clustering",
			Message: fmt.Sprintf("skipped: %d problems, need %d", len(problems), cfg.MinProblems),
		}
		update.SetClusters(nil)
		return update
	}

	statements := make([]string, len(problems))
	for i, p := range problems {
		statements[i] = p.Statement
	}

	emb, err := client.EmbedBatch(ctx, statements)
	if err != nil {
		update.Errors = append(update.Errors, errRecord("cluster", err.Error(), true))
		update.SetClusters(nil)
		return update
	}
	update.Metrics.APICalls += emb.Requests
	update.Metrics.TotalTokens += emb.PromptTokens
	for i, vec := range emb.Vectors {
		embCache.Put(statements[i], vec)
	}

	labels := cluster.Assign(emb.Vectors, cluster.Config{
		Epsilon:        cfg.Epsilon,
		MinSamples:     cfg.MinSamples,
		MinClusterSize: cfg.MinClusterSize,
	})

	groups := make(map[int][]int)
	order := make([]int, 0)
	for i, label := range labels {
		if label == cluster.Noise {
			continue
		}
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], i)
	}
	// Label order keeps theme calls and error records deterministic.
	sort.Ints(order)

	clusters := make([]model.ProblemCluster, 0, len(groups))
	for _, label := range order {
		members := groups[label]
		pc := model.ProblemCluster{
			Members: members,
			Size:    len(members),
		}
		pc.Industries, pc.FundingStages = aggregateTags(problems, members)

		resp, err := client.CompleteJSON(ctx, llm.CompletionRequest{
			System:      themeSystemPrompt,
			Prompt:      formatClusterMembers(problems, members),
			Temperature: 0.3,
			MaxTokens:   300,
		})
		update.Metrics.APICalls++
		if err != nil {
			update.Errors = append(update.Errors, errRecord("cluster", err.Error(), true))
			pc.Theme = "unlabeled"
		} else {
			update.Metrics.TotalTokens += resp.TotalTokens
			var parsed themeResponse
			if jsonErr := json.Unmarshal([]byte(resp.Content), &parsed); jsonErr != nil || strings.TrimSpace(parsed.Theme) == "" {
				pc.Theme = "unlabeled"
			} else {
				pc.Theme = strings.TrimSpace(parsed.Theme)
				pc.Description = strings.TrimSpace(parsed.Description)
			}
		}

		clusters = append(clusters, pc)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Size > clusters[j].Size
	})
	update.SetClusters(clusters)

	log.Info("problems clustered",
		zap.Int("problems", len(problems)),
		zap.Int("clusters", len(clusters)),
	)
	return update
}

// aggregateTags collects which fixed vocabulary terms appear across the
// member problems' text and tags.
func aggregateTags(problems []model.Problem, members []int) (industries, stages []string) {
	var corpus strings.Builder
	for _, idx := range members {
		p := problems[idx]
		corpus.WriteString(strings.ToLower(p.Statement))
		corpus.WriteByte(' ')
		corpus.WriteString(strings.ToLower(p.Description))
		corpus.WriteByte(' ')
		for _, tag := range p.Tags {
			corpus.WriteString(strings.ToLower(tag))
			corpus.WriteByte(' ')
		}
	}
	text := corpus.String()

	for _, term := range industryVocab {
		if strings.Contains(text, term) {
			industries = append(industries, term)
		}
	}
	for _, term := range fundingVocab {
		if strings.Contains(text, term) || strings.Contains(text, strings.ReplaceAll(term, "_", " ")) {
			stages = append(stages, term)
		}
	}
	return industries, stages
}

func formatClusterMembers(problems []model.Problem, members []int) string {
	var b strings.Builder
	b.WriteString("Problems in this group:\n")
	for _, idx := range members {
		b.WriteString("- ")
		b.WriteString(problems[idx].Statement)
		b.WriteByte('\n')
	}
	return b.String()
}
