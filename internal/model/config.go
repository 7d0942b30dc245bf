package model

import (
	"fmt"
	"os"
	"time"
)

// Config is the full pipeline configuration. Credentials are never stored
// here from files; they are resolved from the environment at startup.
type Config struct {
	Paths struct {
		Report         string `yaml:"report" mapstructure:"report"`
		CompanyDataDir string `yaml:"company_data_dir" mapstructure:"company_data_dir"`
		CheckpointDir  string `yaml:"checkpoint_dir" mapstructure:"checkpoint_dir"`
		OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
	} `yaml:"paths" mapstructure:"paths"`

	LLM struct {
		Backend             string `yaml:"backend" mapstructure:"backend"` // "openai" or "ollama" (embeddings only)
		ClassificationModel string `yaml:"classification_model" mapstructure:"classification_model"`
		EvaluationModel     string `yaml:"evaluation_model" mapstructure:"evaluation_model"`
		EmbeddingModel      string `yaml:"embedding_model" mapstructure:"embedding_model"`
		BaseURL             string `yaml:"base_url" mapstructure:"base_url"`
		APIKey              string `yaml:"-" mapstructure:"-"`
	} `yaml:"llm" mapstructure:"llm"`

	KB struct {
		ID           string `yaml:"id" mapstructure:"id"`
		DatabaseURL  string `yaml:"-" mapstructure:"-"`
		TableName    string `yaml:"table_name" mapstructure:"table_name"`
		VectorDim    int    `yaml:"vector_dim" mapstructure:"vector_dim"`
		ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size"`
		ChunkOverlap int    `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
		TopK         int    `yaml:"top_k" mapstructure:"top_k"`
	} `yaml:"kb" mapstructure:"kb"`

	Pipeline struct {
		BatchSize         int           `yaml:"batch_size" mapstructure:"batch_size"`
		MaxWorkers        int           `yaml:"max_workers" mapstructure:"max_workers"`
		MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
		RetryDelay        time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
		RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
		Burst             int           `yaml:"burst" mapstructure:"burst"`
		FailOpen          bool          `yaml:"fail_open" mapstructure:"fail_open"`
		CacheEnabled      bool          `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	} `yaml:"pipeline" mapstructure:"pipeline"`

	Edgar struct {
		UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
		RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	} `yaml:"edgar" mapstructure:"edgar"`

	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults. The zero values here mirror
// the documented defaults: batch size 10, 5 workers, 3 retries, 2s initial
// backoff, top-5 evidence.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Paths.CheckpointDir = "checkpoints"
	cfg.Paths.OutputDir = "output"
	cfg.Paths.CompanyDataDir = "company_data"

	cfg.LLM.Backend = "openai"
	cfg.LLM.ClassificationModel = "gpt-4o-mini"
	cfg.LLM.EvaluationModel = "gpt-4o-mini"
	cfg.LLM.EmbeddingModel = "text-embedding-3-small"

	cfg.KB.ID = "analyst_report_kb"
	cfg.KB.TableName = "kb_chunks"
	cfg.KB.VectorDim = 1536
	cfg.KB.ChunkSize = 200
	cfg.KB.ChunkOverlap = 40
	cfg.KB.TopK = 5

	cfg.Pipeline.BatchSize = 10
	cfg.Pipeline.MaxWorkers = 5
	cfg.Pipeline.MaxRetries = 3
	cfg.Pipeline.RetryDelay = 2 * time.Second
	cfg.Pipeline.RequestsPerSecond = 10
	cfg.Pipeline.Burst = 1
	cfg.Pipeline.FailOpen = true
	cfg.Pipeline.CacheEnabled = true

	cfg.Edgar.UserAgent = "claimlens/0.1 (research; contact@claimlens.dev)"
	cfg.Edgar.RequestsPerSecond = 5

	return cfg
}

// LoadCredentials resolves API credentials from the environment.
// A missing required credential is a fatal configuration error; missing
// optional ones degrade the corresponding feature with a warning from the
// caller.
func (c *Config) LoadCredentials() {
	c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	c.KB.DatabaseURL = os.Getenv("DATABASE_URL")
}

// Validate checks the configuration for a pipeline run. needKB should be true
// for commands that touch the knowledge base.
func (c *Config) Validate(needKB bool) error {
	if c.LLM.Backend == "openai" && c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if needKB && c.KB.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.Pipeline.BatchSize)
	}
	if c.KB.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.KB.TopK)
	}
	return nil
}
