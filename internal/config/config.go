package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Exa      ExaConfig      `yaml:"exa" mapstructure:"exa"`
	Tavily   TavilyConfig   `yaml:"tavily" mapstructure:"tavily"`
	Harmonic HarmonicConfig `yaml:"harmonic" mapstructure:"harmonic"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Filter   FilterConfig   `yaml:"filter" mapstructure:"filter"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExaConfig holds Exa search API settings (primary provider).
type ExaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// TavilyConfig holds Tavily search API settings (fallback only).
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HarmonicConfig holds Harmonic company-data API settings.
type HarmonicConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// LLMConfig holds chat-completion and embedding model settings.
type LLMConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	ChatModel      string `yaml:"chat_model" mapstructure:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	Industries          []string `yaml:"industries" mapstructure:"industries"`
	ResultsPerQuery     int      `yaml:"results_per_query" mapstructure:"results_per_query"`
	FallbackResults     int      `yaml:"fallback_results" mapstructure:"fallback_results"`
	SearchWindowDays    int      `yaml:"search_window_days" mapstructure:"search_window_days"`
	SearchIntervalMS    int      `yaml:"search_interval_ms" mapstructure:"search_interval_ms"`
	BatchSize           int      `yaml:"batch_size" mapstructure:"batch_size"`
	BatchIntervalMS     int      `yaml:"batch_interval_ms" mapstructure:"batch_interval_ms"`
	ProblemConfidence   float64  `yaml:"problem_confidence" mapstructure:"problem_confidence"`
	SignalConfidence    float64  `yaml:"signal_confidence" mapstructure:"signal_confidence"`
	MinClusterProblems  int      `yaml:"min_cluster_problems" mapstructure:"min_cluster_problems"`
	ClusterEpsilon      float64  `yaml:"cluster_epsilon" mapstructure:"cluster_epsilon"`
	ClusterMinSamples   int      `yaml:"cluster_min_samples" mapstructure:"cluster_min_samples"`
	MinClusterSize      int      `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
	EmbeddingCacheHours int      `yaml:"embedding_cache_hours" mapstructure:"embedding_cache_hours"`
}

// FilterConfig is the hard company filter applied during sync.
type FilterConfig struct {
	MinFunding     float64  `yaml:"min_funding" mapstructure:"min_funding"`
	MinFoundedYear int      `yaml:"min_founded_year" mapstructure:"min_founded_year"`
	MinEmployees   int      `yaml:"min_employees" mapstructure:"min_employees"`
	MaxEmployees   int      `yaml:"max_employees" mapstructure:"max_employees"`
	Stages         []string `yaml:"stages" mapstructure:"stages"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DISCOVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "discovery.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("harmonic.base_url", "https://api.harmonic.ai")
	v.SetDefault("harmonic.page_size", 50)
	v.SetDefault("llm.chat_model", "gpt-4o-mini")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("pipeline.industries", []string{"fintech", "healthcare", "developer tools", "logistics", "ecommerce"})
	v.SetDefault("pipeline.results_per_query", 10)
	v.SetDefault("pipeline.fallback_results", 5)
	v.SetDefault("pipeline.search_window_days", 90)
	v.SetDefault("pipeline.search_interval_ms", 1000)
	v.SetDefault("pipeline.batch_size", 5)
	v.SetDefault("pipeline.batch_interval_ms", 500)
	v.SetDefault("pipeline.problem_confidence", 0.6)
	v.SetDefault("pipeline.signal_confidence", 0.6)
	v.SetDefault("pipeline.min_cluster_problems", 5)
	v.SetDefault("pipeline.cluster_epsilon", 0.35)
	v.SetDefault("pipeline.cluster_min_samples", 2)
	v.SetDefault("pipeline.min_cluster_size", 3)
	v.SetDefault("pipeline.embedding_cache_hours", 24)
	v.SetDefault("filter.min_funding", 1_000_000)
	v.SetDefault("filter.min_founded_year", 2018)
	v.SetDefault("filter.min_employees", 5)
	v.SetDefault("filter.max_employees", 500)
	v.SetDefault("filter.stages", []string{"seed", "series_a", "series_b"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
