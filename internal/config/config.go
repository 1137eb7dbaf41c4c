package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jlcilliers/cvchat/internal/service"
)

// Index store backends selectable with INDEX_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendKVRest   = "kvrest"
	BackendS3       = "s3"
)

type Config struct {
	Port       string `envconfig:"PORT" default:"8080"`
	Debug      bool   `envconfig:"DEBUG" default:"false"`
	AdminToken string `envconfig:"ADMIN_TOKEN"`

	SemanticMode bool   `envconfig:"SEMANTIC_MODE" default:"false"`
	IndexBackend string `envconfig:"INDEX_BACKEND" default:"memory"`

	RedisURL       string `envconfig:"REDIS_URL"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	KVRestURL   string `envconfig:"KV_REST_API_URL"`
	KVRestToken string `envconfig:"KV_REST_API_TOKEN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"cvchat-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	EmbedTimeout     time.Duration `envconfig:"EMBED_TIMEOUT" default:"15s"`
	EmbedConcurrency int           `envconfig:"EMBED_CONCURRENCY" default:"1"`

	// RestoreInterval is how often the index restorer checks for a lost index.
	RestoreInterval time.Duration `envconfig:"RESTORE_INTERVAL" default:"1m"`

	AssistantConfig string `envconfig:"ASSISTANT_CONFIG" default:"assistant.yaml"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CVCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that cannot produce a working server.
func (c *Config) Validate() error {
	var errs []error

	if c.SemanticMode && !c.HasOpenAI() {
		errs = append(errs, errors.New("SEMANTIC_MODE requires OPENAI_API_KEY"))
	}
	if c.EmbedConcurrency < 1 {
		errs = append(errs, fmt.Errorf("EMBED_CONCURRENCY must be at least 1, got %d", c.EmbedConcurrency))
	}

	switch c.IndexBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("INDEX_BACKEND=redis requires REDIS_URL"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("INDEX_BACKEND=postgres requires DATABASE_URL"))
		}
	case BackendKVRest:
		if c.KVRestURL == "" || c.KVRestToken == "" {
			errs = append(errs, errors.New("INDEX_BACKEND=kvrest requires KV_REST_API_URL and KV_REST_API_TOKEN"))
		}
	case BackendS3:
		if !c.HasS3() {
			errs = append(errs, errors.New("INDEX_BACKEND=s3 requires S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend))
	}

	return errors.Join(errs...)
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// RetrievalMode is fixed for the lifetime of the process.
func (c *Config) RetrievalMode() service.RetrievalMode {
	if c.SemanticMode {
		return service.ModeSemantic
	}
	return service.ModeLexical
}
