package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment: "test",
		Server: ServerConfig{
			Port:         8080,
			DefaultLimit: 50,
			MaxLimit:     200,
		},
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/test?sslmode=disable",
		},
		Horizon: HorizonConfig{
			Endpoints: []string{"https://horizon.stellar.org"},
			PageLimit: 200,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Cache: CacheConfig{
			L1MaxSize:   100,
			AnchorTTL:   300 * time.Second,
			CorridorTTL: 180 * time.Second,
			DefaultTTL:  60 * time.Second,
		},
		Observability: ObservabilityConfig{
			ServiceName: "test",
			Logging:     LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

func TestCacheConfig_TTLFor(t *testing.T) {
	cc := CacheConfig{
		AnchorTTL:   300 * time.Second,
		CorridorTTL: 180 * time.Second,
		DefaultTTL:  60 * time.Second,
	}

	if got := cc.TTLFor("anchor"); got != 300*time.Second {
		t.Errorf("TTLFor(anchor): expected 300s, got %s", got)
	}
	if got := cc.TTLFor("corridor"); got != 180*time.Second {
		t.Errorf("TTLFor(corridor): expected 180s, got %s", got)
	}
	if got := cc.TTLFor("ledger"); got != 60*time.Second {
		t.Errorf("TTLFor(unknown tag): expected default 60s, got %s", got)
	}
	if got := cc.TTLFor(""); got != 60*time.Second {
		t.Errorf("TTLFor(empty tag): expected default 60s, got %s", got)
	}
}

func TestConfig_Validate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed for valid config: %v", err)
	}
}

func TestConfig_Validate_AlertsRequireTopicARN(t *testing.T) {
	cfg := validConfig()
	cfg.Alerts.Enabled = true
	cfg.AWS.SNSTopicARN = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when alerts enabled without SNS topic ARN")
	}

	cfg.AWS.SNSTopicARN = "arn:aws:sns:us-east-1:000000000000:anchor-alerts"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed with topic ARN set: %v", err)
	}
}

func TestConfig_Validate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing horizon endpoints", func(c *Config) { c.Horizon.Endpoints = nil }},
		{"missing database url", func(c *Config) { c.Database.URL = "" }},
		{"missing redis address", func(c *Config) { c.Redis.Address = "" }},
		{"zero anchor ttl", func(c *Config) { c.Cache.AnchorTTL = 0 }},
		{"max limit below default", func(c *Config) { c.Server.MaxLimit = 10 }},
		{"bad log level", func(c *Config) { c.Observability.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Observability.Logging.Format = "logfmt" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLFor("anchor") != 300*time.Second {
		t.Errorf("expected default anchor TTL 300s, got %s", cfg.Cache.TTLFor("anchor"))
	}
	if cfg.Cache.TTLFor("corridor") != 180*time.Second {
		t.Errorf("expected default corridor TTL 180s, got %s", cfg.Cache.TTLFor("corridor"))
	}
	if cfg.Server.DefaultLimit != 50 {
		t.Errorf("expected default page limit 50, got %d", cfg.Server.DefaultLimit)
	}
}
