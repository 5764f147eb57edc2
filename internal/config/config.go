package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port         int    `envconfig:"PORT" default:"3000"`
	Environment  string `envconfig:"ENV" default:"development"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:""`
	MaxImageSize int    `envconfig:"MAX_IMAGE_SIZE" default:"10485760"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Providers
	Detector        string        `envconfig:"DETECTOR" default:"deepface"`
	Encoder         string        `envconfig:"ENCODER" default:"deepface"`
	DeepFaceURL     string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5000"`
	DeepFaceModel   string        `envconfig:"DEEPFACE_MODEL" default:"Facenet"`
	AWSRegion       string        `envconfig:"AWS_REGION" default:"us-east-1"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	// Matching
	EmbeddingDim   int     `envconfig:"EMBEDDING_DIM" default:"128"`
	MatchMetric    string  `envconfig:"MATCH_METRIC" default:"euclidean"`
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0"`

	// Gallery cache
	GalleryTTL          time.Duration `envconfig:"GALLERY_TTL" default:"300s"`
	GalleryLoadTimeout  time.Duration `envconfig:"GALLERY_LOAD_TIMEOUT" default:"10s"`
	GalleryWarmInterval time.Duration `envconfig:"GALLERY_WARM_INTERVAL" default:"0s"`

	// Cross-replica invalidation (optional)
	RedisURL     string `envconfig:"REDIS_URL" default:""`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"chamada:gallery:invalidate"`

	// Attendance
	SummaryCacheTTL time.Duration `envconfig:"SUMMARY_CACHE_TTL" default:"30s"`

	// Outbound attendance webhook (optional)
	WebhookURL         string        `envconfig:"WEBHOOK_URL" default:""`
	WebhookSecret      string        `envconfig:"WEBHOOK_SECRET" default:""`
	WebhookMaxAttempts int           `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"5"`
	WebhookInterval    time.Duration `envconfig:"WEBHOOK_INTERVAL" default:"5s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.MatchMetric {
	case "euclidean", "correlation", "cosine":
	default:
		return fmt.Errorf("invalid MATCH_METRIC %q", c.MatchMetric)
	}
	if c.MatchThreshold < 0 {
		return errors.New("MATCH_THRESHOLD must not be negative")
	}
	if c.EmbeddingDim <= 0 {
		return errors.New("EMBEDDING_DIM must be positive")
	}
	if c.GalleryTTL <= 0 {
		return errors.New("GALLERY_TTL must be positive")
	}
	if c.WebhookURL != "" && c.WebhookMaxAttempts <= 0 {
		return errors.New("WEBHOOK_MAX_ATTEMPTS must be positive")
	}
	switch c.Detector {
	case "deepface", "rekognition", "mock":
	default:
		return fmt.Errorf("invalid DETECTOR %q", c.Detector)
	}
	switch c.Encoder {
	case "deepface", "mock":
	default:
		return fmt.Errorf("invalid ENCODER %q", c.Encoder)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
