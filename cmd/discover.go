package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/cache"
	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/pipeline"
	"github.com/probelab/discovery-cli/pkg/exa"
	"github.com/probelab/discovery-cli/pkg/harmonic"
	"github.com/probelab/discovery-cli/pkg/tavily"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run the full discovery pipeline once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if cfg.Exa.Key == "" {
			return eris.New("exa API key is required (DISCOVERY_EXA_KEY)")
		}
		if cfg.LLM.Key == "" {
			return eris.New("LLM API key is required (DISCOVERY_LLM_KEY)")
		}

		providers := []pipeline.Provider{
			pipeline.NewExaProvider(exa.NewClient(cfg.Exa.Key, exa.WithBaseURL(cfg.Exa.BaseURL))),
		}
		if cfg.Tavily.Key != "" {
			providers = append(providers,
				pipeline.NewTavilyProvider(tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))))
		}

		var harmonicClient harmonic.Client
		if cfg.Harmonic.Key != "" {
			harmonicClient = harmonic.NewClient(cfg.Harmonic.Key, harmonic.WithBaseURL(cfg.Harmonic.BaseURL))
		} else {
			zap.L().Warn("harmonic key not set, company sync will be skipped")
		}

		llmOpts := []llm.Option{
			llm.WithChatModel(cfg.LLM.ChatModel),
			llm.WithEmbeddingModel(cfg.LLM.EmbeddingModel),
		}
		if cfg.LLM.BaseURL != "" {
			llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLM.BaseURL))
		}
		llmClient := llm.NewClient(cfg.LLM.Key, llmOpts...)

		embCache := cache.New(time.Duration(cfg.Pipeline.EmbeddingCacheHours) * time.Hour)

		p := pipeline.New(
			cfg.Pipeline,
			companyFilter(),
			st,
			providers,
			harmonicClient,
			cfg.Harmonic.PageSize,
			llmClient,
			embCache,
		)

		summary, runErr := p.Run(ctx)

		if summary != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(summary); encErr != nil {
				return eris.Wrap(encErr, "encode summary")
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "discovery run")
		}
		return nil
	},
}

// companyFilter builds the sync-stage filter from configuration.
func companyFilter() model.CompanyFilter {
	stages := make([]model.FundingStage, 0, len(cfg.Filter.Stages))
	for _, s := range cfg.Filter.Stages {
		stages = append(stages, model.ParseFundingStage(s))
	}
	return model.CompanyFilter{
		MinFunding:     cfg.Filter.MinFunding,
		MinFoundedYear: cfg.Filter.MinFoundedYear,
		MinEmployees:   cfg.Filter.MinEmployees,
		MaxEmployees:   cfg.Filter.MaxEmployees,
		Stages:         stages,
	}
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
