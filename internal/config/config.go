// Package config loads service configuration from a YAML base file
// layered with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Limits    LimitsConfig    `yaml:"limits"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Engine    EngineConfig    `yaml:"engine"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateLimitConfig configures the per-client token bucket (C2).
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
	TrustXFF          bool    `yaml:"trust_xff"`
}

// LimitsConfig enforces the bounds in spec.md §3/§6.
type LimitsConfig struct {
	MaxN         int           `yaml:"max_n"`
	MaxRepeats   int           `yaml:"max_repeats"`
	MaxThreads   int           `yaml:"max_threads"`
	MaxJobs      int           `yaml:"max_jobs"`
	DefaultMs    int           `yaml:"timeout_ms"`
	Workers      int           `yaml:"workers"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	ShutdownWait time.Duration `yaml:"-"`
	// StrictAlgorithms opts into validate.Strict's rejection of unknown
	// algorithm/baseline names; disabled by default per spec.md §4.1.
	StrictAlgorithms bool `yaml:"strict_algorithms"`
}

type AuthConfig struct {
	Keys     []string `yaml:"keys"`
	KeysFile string   `yaml:"keys_file"`
}

// DatabaseConfig enables the durable job store variant when URL is set.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// EngineConfig selects the engine integration mode (C4 Design Notes).
type EngineConfig struct {
	Mode   string `yaml:"mode"` // "inprocess" | "shell"
	Bin    string `yaml:"bin"`
	UseCGO bool   `yaml:"use_cgo"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
			Burst:             60,
			TrustXFF:          false,
		},
		Limits: LimitsConfig{
			MaxN:         10_000_000,
			MaxRepeats:   100,
			MaxThreads:   0,
			MaxJobs:      64,
			DefaultMs:    30_000,
			Workers:      4,
			MaxBodyBytes: 1 << 20,
		},
		Database: DatabaseConfig{MaxConns: 10},
		Engine:   EngineConfig{Mode: "inprocess"},
	}
}

// Load reads an optional YAML file (ignored if absent) and layers
// environment variable overrides on top, mirroring the teacher's
// config.Load but with every cap named in spec.md §6.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	envInt("MAX_N", &cfg.Limits.MaxN)
	envInt("MAX_REPEATS", &cfg.Limits.MaxRepeats)
	envInt("MAX_THREADS", &cfg.Limits.MaxThreads)
	envInt("MAX_JOBS", &cfg.Limits.MaxJobs)
	envInt("TIMEOUT_MS", &cfg.Limits.DefaultMs)
	envInt("WORKERS", &cfg.Limits.Workers)
	envFloat("RATE_LIMIT_R", &cfg.RateLimit.RequestsPerMinute)
	envInt("RATE_LIMIT_B", &cfg.RateLimit.Burst)
	if v := os.Getenv("TRUST_XFF"); v != "" {
		cfg.RateLimit.TrustXFF = v == "1" || v == "true"
	}
	if v := os.Getenv("API_KEYS"); v != "" {
		cfg.Auth.Keys = splitComma(v)
	}
	if v := os.Getenv("API_KEYS_FILE"); v != "" {
		cfg.Auth.KeysFile = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	envInt("DB_MAX_CONNS", &cfg.Database.MaxConns)
	if v := os.Getenv("ENGINE_MODE"); v != "" {
		cfg.Engine.Mode = v
	}
	if v := os.Getenv("ENGINE_BIN"); v != "" {
		cfg.Engine.Bin = v
	}
	if v := os.Getenv("ENGINE_CGO"); v != "" {
		cfg.Engine.UseCGO = v == "1" || v == "true"
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Limits.MaxN <= 0 {
		return fmt.Errorf("limits.max_n must be positive")
	}
	if c.Limits.MaxJobs <= 0 {
		return fmt.Errorf("limits.max_jobs must be positive")
	}
	if c.Engine.Mode != "inprocess" && c.Engine.Mode != "shell" {
		return fmt.Errorf("engine.mode must be inprocess or shell")
	}
	return nil
}

// Durable reports whether a database is configured, selecting C7's
// durable job store variant.
func (c *Config) Durable() bool {
	return c.Database.URL != ""
}
