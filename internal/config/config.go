package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	Environment      string  `envconfig:"ENVIRONMENT" default:"development"`
	TracesSampleRate float64 `envconfig:"TRACES_SAMPLE_RATE" default:"1.0"`

	// Redis result-cache backend. When unset the search cache runs in-process.
	RedisURL string `envconfig:"REDIS_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"hamrosewa-images"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	IntentModel         string `envconfig:"INTENT_MODEL" default:"gpt-4o-mini"`

	// Optional static API key for the HTTP surface; empty disables auth.
	APIKey string `envconfig:"API_KEY"`

	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheSize int           `envconfig:"CACHE_SIZE" default:"1024"`

	// Blend weights applied by the ranking query. Kept configurable so the
	// scoring blend stays a tuning knob close to the data.
	TextWeight     float64 `envconfig:"TEXT_WEIGHT" default:"0.4"`
	VectorWeight   float64 `envconfig:"VECTOR_WEIGHT" default:"0.35"`
	BusinessWeight float64 `envconfig:"BUSINESS_WEIGHT" default:"0.25"`

	IntentTimeout    time.Duration `envconfig:"INTENT_TIMEOUT" default:"5s"`
	EmbeddingTimeout time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"5s"`

	BreakerThreshold int           `envconfig:"BREAKER_THRESHOLD" default:"3"`
	BreakerCooldown  time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("HAMROSEWA", &cfg); err != nil {
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

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}
