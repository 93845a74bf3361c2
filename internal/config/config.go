package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Env        string `envconfig:"APP_ENV" default:"development"`
	Port       int    `envconfig:"APP_PORT" default:"8080"`
	DB         DBConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Catalog    CatalogConfig
	Deepgram   DeepgramConfig
	Evaluation EvaluationConfig
	Snapshot   SnapshotConfig
}

// database configuration
type DBConfig struct {
	DSN         string        `envconfig:"DATABASE_URL" required:"true"`
	MaxConns    int           `envconfig:"DB_MAX_CONNS" default:"20"`
	MaxConnLife time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// JWT configuration
type JWTConfig struct {
	Secret         string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"1h"`
}

// CORS configuration
type CORSConfig struct {
	TrustedOrigins []string `envconfig:"CORS_TRUSTED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

// station catalog configuration
type CatalogConfig struct {
	Path              string `envconfig:"CATALOG_PATH"`
	InterviewTypeSlug string `envconfig:"INTERVIEW_TYPE_SLUG" default:"pa-mmi-7min"`
}

// Deepgram transcription configuration
type DeepgramConfig struct {
	Enabled bool          `envconfig:"DEEPGRAM_ENABLED" default:"true"`
	APIKey  string        `envconfig:"DEEPGRAM_API_KEY"`
	Model   string        `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	Timeout time.Duration `envconfig:"DEEPGRAM_TIMEOUT" default:"60s"`
}

// evaluation LLM configuration
type EvaluationConfig struct {
	Provider          string        `envconfig:"EVAL_PROVIDER" default:"anthropic"`
	APIKey            string        `envconfig:"EVAL_API_KEY" required:"true"`
	Model             string        `envconfig:"EVAL_MODEL" default:"claude-3-5-haiku-20241022"`
	RubricPath        string        `envconfig:"EVAL_RUBRIC_PATH"`
	Timeout           time.Duration `envconfig:"EVAL_TIMEOUT" default:"2m"`
	InputCostPerMTok  float64       `envconfig:"EVAL_INPUT_COST_PER_MTOK" default:"3"`
	OutputCostPerMTok float64       `envconfig:"EVAL_OUTPUT_COST_PER_MTOK" default:"15"`
}

// local session snapshot fallback; redis when an address is set, in-memory
// otherwise
type SnapshotConfig struct {
	RedisAddr     string        `envconfig:"SNAPSHOT_REDIS_ADDR"`
	RedisPassword string        `envconfig:"SNAPSHOT_REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"SNAPSHOT_REDIS_DB" default:"0"`
	TTL           time.Duration `envconfig:"SNAPSHOT_TTL" default:"24h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Env] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Env)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}
	if c.DB.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Deepgram.Enabled && c.Deepgram.APIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required when DEEPGRAM_ENABLED is true")
	}
	switch c.Evaluation.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("invalid EVAL_PROVIDER: %s (must be anthropic or openai)", c.Evaluation.Provider)
	}
	if c.Evaluation.InputCostPerMTok < 0 || c.Evaluation.OutputCostPerMTok < 0 {
		return fmt.Errorf("evaluation token costs must be non-negative")
	}
	if len(c.CORS.TrustedOrigins) == 0 {
		return fmt.Errorf("at least one trusted origin must be specified")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GetCORSOrigins returns the list of trusted CORS origins.
func (c *Config) GetCORSOrigins() []string {
	origins := make([]string, 0, len(c.CORS.TrustedOrigins))
	for _, origin := range c.CORS.TrustedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Env=%s, Port=%d, DB.MaxConns=%d, Catalog.Slug=%s, "+
		"Deepgram.Enabled=%t, Deepgram.Model=%s, Eval.Provider=%s, Eval.Model=%s, Snapshot.Redis=%t}",
		c.Env, c.Port, c.DB.MaxConns, c.Catalog.InterviewTypeSlug,
		c.Deepgram.Enabled, c.Deepgram.Model, c.Evaluation.Provider, c.Evaluation.Model,
		c.Snapshot.RedisAddr != "")
}
