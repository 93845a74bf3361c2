package config

import (
	"strings"
	"testing"
	"time"
)

func baseConfig() Config {
	return Config{
		Env:  "development",
		Port: 8080,
		DB:   DBConfig{DSN: "postgres://localhost/mmi", MaxConns: 20, MaxConnLife: time.Hour},
		JWT:  JWTConfig{Secret: strings.Repeat("s", 32), AccessTokenTTL: time.Hour},
		CORS: CORSConfig{TrustedOrigins: []string{"http://localhost:3000"}},
		Deepgram: DeepgramConfig{
			Enabled: true, APIKey: "dg-key", Model: "nova-2", Timeout: time.Minute,
		},
		Evaluation: EvaluationConfig{
			Provider: "anthropic", APIKey: "key", Model: "claude-3-5-haiku-20241022",
			Timeout: 2 * time.Minute, InputCostPerMTok: 3, OutputCostPerMTok: 15,
		},
	}
}

func TestValidateOK(t *testing.T) {
	cfg := baseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad env", func(c *Config) { c.Env = "prod" }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }},
		{"deepgram enabled without key", func(c *Config) { c.Deepgram.APIKey = "" }},
		{"unknown eval provider", func(c *Config) { c.Evaluation.Provider = "groq" }},
		{"negative token cost", func(c *Config) { c.Evaluation.InputCostPerMTok = -1 }},
		{"no cors origins", func(c *Config) { c.CORS.TrustedOrigins = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestDeepgramDisabledNeedsNoKey(t *testing.T) {
	cfg := baseConfig()
	cfg.Deepgram.Enabled = false
	cfg.Deepgram.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config with deepgram disabled, got %v", err)
	}
}

func TestGetCORSOriginsTrimsBlanks(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS.TrustedOrigins = []string{" http://a ", "", "http://b"}
	got := cfg.GetCORSOrigins()
	if len(got) != 2 || got[0] != "http://a" || got[1] != "http://b" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}
