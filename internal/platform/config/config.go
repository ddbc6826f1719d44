// Package config loads application configuration from an optional YAML file
// with environment-variable overrides, so main stays lean and services receive
// explicit structs instead of ambient lookups.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pstrings "reunite/pkg/platform/strings"
)

const configPathEnv = "REUNITE_CONFIG"

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Kafka         KafkaConfig        `yaml:"kafka"`
	Auth          AuthConfig         `yaml:"auth"`
	Matching      MatchingConfig     `yaml:"matching"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	LogFormat string `yaml:"logFormat"`
	LogLevel  string `yaml:"logLevel"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects
// the in-memory stores (dev and tests).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig describes the optional case-cache backend. An empty URL selects
// the in-process cache.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	CaseCacheTTL time.Duration `yaml:"caseCacheTTL"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// KafkaConfig describes the optional audit event sink. No brokers means audit
// events stay in the in-memory store.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	AuditTopic string   `yaml:"auditTopic"`
}

// AuthConfig holds admin authentication settings. Authentication itself is a
// boundary concern; the core only consumes the validated admin identity.
type AuthConfig struct {
	JWTSigningKey  string `yaml:"jwtSigningKey"`
	AdminTokenHash string `yaml:"adminTokenHash"`
}

// MatchingConfig carries the candidate-generator tunables. Score weights and
// gates are fixed in the scoring function; only the admission threshold and
// batch width are deployment concerns.
type MatchingConfig struct {
	MinScore         int `yaml:"minScore"`
	BatchConcurrency int `yaml:"batchConcurrency"`
}

// NotificationConfig identifies the sender on outbound match notifications.
type NotificationConfig struct {
	SenderName  string `yaml:"senderName"`
	SenderEmail string `yaml:"senderEmail"`
}

// Load reads the YAML file named by REUNITE_CONFIG when present, then applies
// environment overrides and defaults.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "REUNITE_ADDR")
	setString(&cfg.Server.LogFormat, "REUNITE_LOG_FORMAT")
	setString(&cfg.Server.LogLevel, "REUNITE_LOG_LEVEL")
	setString(&cfg.Database.DSN, "REUNITE_DATABASE_DSN")
	setString(&cfg.Redis.URL, "REUNITE_REDIS_URL")
	setString(&cfg.Kafka.AuditTopic, "REUNITE_AUDIT_TOPIC")
	setString(&cfg.Auth.JWTSigningKey, "REUNITE_JWT_SIGNING_KEY")
	setString(&cfg.Auth.AdminTokenHash, "REUNITE_ADMIN_TOKEN_HASH")
	setString(&cfg.Notifications.SenderName, "REUNITE_SENDER_NAME")
	setString(&cfg.Notifications.SenderEmail, "REUNITE_SENDER_EMAIL")
	if v := os.Getenv("REUNITE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = pstrings.DedupeAndTrim(strings.Split(v, ","))
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Redis.CaseCacheTTL <= 0 {
		cfg.Redis.CaseCacheTTL = 5 * time.Minute
	}
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	if cfg.Kafka.AuditTopic == "" {
		cfg.Kafka.AuditTopic = "reunite.audit"
	}
	if cfg.Auth.JWTSigningKey == "" {
		// Development fallback; deployments must override.
		cfg.Auth.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if cfg.Matching.MinScore <= 0 {
		cfg.Matching.MinScore = 70
	}
	if cfg.Matching.BatchConcurrency <= 0 {
		cfg.Matching.BatchConcurrency = 4
	}
	if cfg.Notifications.SenderName == "" {
		cfg.Notifications.SenderName = "Reunite"
	}
}

// Level parses the configured log level, defaulting to info.
func (s ServerConfig) Level() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
