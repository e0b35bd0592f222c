// Package config loads process configuration from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"adaptivestory/internal/debug"
	"adaptivestory/internal/llm"
	"adaptivestory/internal/observability"
	"adaptivestory/internal/story/genre"
	"adaptivestory/internal/story/validate"
)

type Config struct {
	// Oracle
	LLMBackend          string        `envconfig:"LLM_BACKEND" default:"ollama"`
	LLMModel            string        `envconfig:"LLM_MODEL" default:"tinyllama"`
	LLMBaseURL          string        `envconfig:"LLM_BASE_URL"`
	LLMTimeout          time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	LLMMaxContextTokens int           `envconfig:"LLM_MAX_CONTEXT_TOKENS" default:"2048"`
	LLMEncoding         string        `envconfig:"LLM_TOKEN_ENCODING" default:"cl100k_base"`
	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`

	// Sampling
	MaxNewTokens      int     `envconfig:"MAX_NEW_TOKENS" default:"100"`
	Temperature       float64 `envconfig:"TEMPERATURE" default:"0.85"`
	TopP              float64 `envconfig:"TOP_P" default:"0.92"`
	TopK              int     `envconfig:"TOP_K" default:"50"`
	RepetitionPenalty float64 `envconfig:"REPETITION_PENALTY" default:"1.15"`

	// Debug log
	Debug        bool   `envconfig:"DEBUG" default:"false"`
	DebugLogPath string `envconfig:"DEBUG_LOG_PATH" default:"debug.log"`

	// Storage
	CompletionsDB string `envconfig:"COMPLETIONS_DB" default:"./completions.db"`
	StoreDB       string `envconfig:"STORE_DB" default:"./stories.db"`

	// HTTP
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GinMode  string `envconfig:"GIN_MODE" default:"release"`

	// Sessions
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	SessionCleanup time.Duration `envconfig:"SESSION_CLEANUP" default:"1h"`

	// Trees
	TreeThrottle    time.Duration `envconfig:"TREE_THROTTLE" default:"500ms"`
	TreeTargetNodes int           `envconfig:"TREE_TARGET_NODES" default:"25"`
	TreeMaxDepth    int           `envconfig:"TREE_MAX_DEPTH" default:"5"`
	TreeDir         string        `envconfig:"TREE_DIR" default:"story_trees"`

	// YAML overrides for the built-in tables
	GenreFile     string `envconfig:"GENRE_FILE"`
	ValidatorFile string `envconfig:"VALIDATOR_FILE"`

	// Tracing
	TracesEnabled     bool   `envconfig:"OTEL_TRACES_ENABLED" default:"false"`
	ServiceVersion    string `envconfig:"SERVICE_VERSION" default:"1.0.0"`
	Environment       string `envconfig:"ENVIRONMENT" default:"development"`
	LangfuseHost      string `envconfig:"LANGFUSE_HOST" default:"https://cloud.langfuse.com"`
	LangfusePublicKey string `envconfig:"LANGFUSE_PUBLIC_KEY"`
	LangfuseSecretKey string `envconfig:"LANGFUSE_SECRET_KEY"`
	LangfuseInsecure  bool   `envconfig:"LANGFUSE_INSECURE" default:"false"`
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv fills a Config from the process environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return &cfg, nil
}

func (c *Config) Backend() llm.BackendConfig {
	return llm.BackendConfig{
		Backend:          c.LLMBackend,
		Model:            c.LLMModel,
		BaseURL:          c.LLMBaseURL,
		APIKey:           c.OpenAIAPIKey,
		Timeout:          c.LLMTimeout,
		MaxContextTokens: c.LLMMaxContextTokens,
		Encoding:         c.LLMEncoding,
	}
}

func (c *Config) Params() llm.Params {
	p := llm.DefaultParams()
	p.MaxNewTokens = c.MaxNewTokens
	p.Temperature = c.Temperature
	p.TopP = c.TopP
	p.TopK = c.TopK
	p.RepetitionPenalty = c.RepetitionPenalty
	return p
}

// DebugOptions configures the debug log. Console output is left to the caller
// since a full-screen UI cannot share stderr.
func (c *Config) DebugOptions(console bool) debug.Options {
	return debug.Options{Enabled: c.Debug, Path: c.DebugLogPath, Console: console}
}

func (c *Config) Tracing(serviceName string) observability.Config {
	return observability.Config{
		ServiceName:    serviceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		Enabled:        c.TracesEnabled,
		LangfuseHost:   c.LangfuseHost,
		PublicKey:      c.LangfusePublicKey,
		SecretKey:      c.LangfuseSecretKey,
		Insecure:       c.LangfuseInsecure,
	}
}

// Catalog returns the genre catalog, loaded from GenreFile when set.
func (c *Config) Catalog() (*genre.Catalog, error) {
	if c.GenreFile == "" {
		return genre.DefaultCatalog(), nil
	}
	return genre.LoadCatalog(c.GenreFile)
}

// Validator returns the input validator, with rules from ValidatorFile when set.
func (c *Config) Validator() (*validate.Validator, error) {
	if c.ValidatorFile == "" {
		return validate.Default(), nil
	}
	rules, err := validate.LoadRules(c.ValidatorFile)
	if err != nil {
		return nil, err
	}
	return validate.New(rules), nil
}
