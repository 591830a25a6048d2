// Package config loads engine configuration from the environment, with an
// optional YAML overlay for deploy-specific settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Database holds Postgres connection settings.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection URL.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// NATS holds message bus settings.
type NATS struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Orchestrator holds timer supervisor settings.
type Orchestrator struct {
	BatchSize int32         `yaml:"batch_size"`
	Workers   int           `yaml:"workers"`
	IdlePoll  time.Duration `yaml:"idle_poll"`
}

// ADP holds aggregation job settings.
type ADP struct {
	Window   time.Duration `yaml:"window"`
	Interval time.Duration `yaml:"interval"`
}

// Config is the full engine configuration.
type Config struct {
	Port         string       `yaml:"port"`
	Database     Database     `yaml:"database"`
	NATS         NATS         `yaml:"nats"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	ADP          ADP          `yaml:"adp"`
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	return Config{
		Port: getEnv("PORT", "8080"),
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "topdog"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		NATS: NATS{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			StreamName:    getEnv("NATS_STREAM", "DRAFT_EVENTS"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "draft.events"),
		},
		Orchestrator: Orchestrator{
			BatchSize: int32(getEnvAsInt("ORCH_BATCH_SIZE", 50)),
			Workers:   getEnvAsInt("ORCH_WORKERS", 10),
			IdlePoll:  getEnvAsDuration("ORCH_IDLE_POLL", 5*time.Second),
		},
		ADP: ADP{
			Window:   getEnvAsDuration("ADP_WINDOW", 30*24*time.Hour),
			Interval: getEnvAsDuration("ADP_INTERVAL", 12*time.Hour),
		},
	}
}

// Load builds a Config from the environment, then applies the YAML file at
// path on top if path is non-empty.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
