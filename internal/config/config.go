package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docpipe-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// APIKey guards all endpoints except /health when set.
	APIKey string `envconfig:"API_KEY"`

	// Pipeline tuning
	WorkerPollSeconds  int `envconfig:"WORKER_POLL_SECONDS" default:"10"`
	WorkerBatchSize    int `envconfig:"WORKER_BATCH_SIZE" default:"10"`
	ChunkSize          int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap       int `envconfig:"CHUNK_OVERLAP" default:"100"`
	RetentionDays      int `envconfig:"RETENTION_DAYS" default:"90"`
	EmbeddingDimension int `envconfig:"EMBEDDING_DIMENSION" default:"1536"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCPIPE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
