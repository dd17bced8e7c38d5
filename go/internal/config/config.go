package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Directory DirectoryConfig `yaml:"directory"`
	Grading   GradingConfig   `yaml:"grading"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	NATS      NATSConfig      `yaml:"nats"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SubmitPath     string   `yaml:"submit_path"`
}

type DirectoryConfig struct {
	// Retention is "retain" or "purge".
	Retention string `yaml:"retention"`
}

type GradingConfig struct {
	// URL of the external grading service. Empty means events are only logged.
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type OutboxConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type ArchiveConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			SubmitPath:     "/problem/submit",
		},
		Directory: DirectoryConfig{Retention: "retain"},
		Grading:   GradingConfig{Timeout: 10 * time.Second},
		Outbox:    OutboxConfig{Workers: 4, QueueSize: 1024},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Stream:        "STUDY_EVENTS",
			SubjectPrefix: "study.events",
		},
		Archive: ArchiveConfig{
			Database: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "postgres",
				Name:     "studyroom",
				SSLMode:  "disable",
			},
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.SubmitPath = getEnv("SUBMIT_PATH", c.Server.SubmitPath)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	c.Directory.Retention = getEnv("DIRECTORY_RETENTION", c.Directory.Retention)

	c.Grading.URL = getEnv("GRADING_URL", c.Grading.URL)
	c.Grading.Timeout = getEnvAsDuration("GRADING_TIMEOUT", c.Grading.Timeout)

	c.Outbox.Workers = getEnvAsInt("OUTBOX_WORKERS", c.Outbox.Workers)
	c.Outbox.QueueSize = getEnvAsInt("OUTBOX_QUEUE_SIZE", c.Outbox.QueueSize)

	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Stream = getEnv("NATS_STREAM", c.NATS.Stream)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Archive.Enabled = getEnvAsBool("ARCHIVE_ENABLED", c.Archive.Enabled)
	db := &c.Archive.Database
	db.Host = getEnv("DB_HOST", db.Host)
	db.Port = getEnvAsInt("DB_PORT", db.Port)
	db.User = getEnv("DB_USER", db.User)
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.Name = getEnv("DB_NAME", db.Name)
	db.SSLMode = getEnv("DB_SSLMODE", db.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
