package chocoraga

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the server and the command line tools.
type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		SessionSecret  string `yaml:"session_secret"`
		SessionDir     string `yaml:"session_dir"`
		RequestTimeout int    `yaml:"request_timeout_seconds"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Azure struct {
		Endpoint   string `yaml:"endpoint"`
		APIKey     string `yaml:"api_key"`
		Deployment string `yaml:"deployment"`
		APIVersion string `yaml:"api_version"`
	} `yaml:"azure"`
	Quiz struct {
		QuestionSeconds int `yaml:"question_seconds"`
	} `yaml:"quiz"`
	LogDir  string `yaml:"log_dir"`
	Verbose bool   `yaml:"verbose"`
}

// LoadConfig reads the optional YAML file at path, then applies environment
// overrides and defaults. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Azure.Endpoint = getEnv("AZURE_OPENAI_ENDPOINT", cfg.Azure.Endpoint)
	cfg.Azure.APIKey = getEnv("AZURE_OPENAI_API_KEY", cfg.Azure.APIKey)
	cfg.Azure.Deployment = getEnv("AZURE_OPENAI_DEPLOYMENT", orDefault(cfg.Azure.Deployment, "gpt-4o"))
	cfg.Azure.APIVersion = getEnv("AZURE_OPENAI_API_VERSION", orDefault(cfg.Azure.APIVersion, "2024-08-01-preview"))
	cfg.Database.Path = getEnv("DB_PATH", orDefault(cfg.Database.Path, "./quiz.db"))
	cfg.Server.Port = getEnv("PORT", orDefault(cfg.Server.Port, "5000"))
	cfg.Server.SessionSecret = getEnv("SESSION_SECRET", cfg.Server.SessionSecret)
	cfg.Server.SessionDir = getEnv("SESSION_DIR", orDefault(cfg.Server.SessionDir, "./sessions"))
	cfg.LogDir = getEnv("LOG_DIR", orDefault(cfg.LogDir, "./logs"))

	if v := os.Getenv("QUESTION_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid QUESTION_SECONDS %q: %w", v, err)
		}
		cfg.Quiz.QuestionSeconds = seconds
	}
	if cfg.Quiz.QuestionSeconds <= 0 {
		cfg.Quiz.QuestionSeconds = int(DefaultQuestionTime / time.Second)
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 60
	}
	return cfg, nil
}

// Validate checks the settings the web server cannot start without.
func (c Config) Validate() error {
	if c.Server.SessionSecret == "" {
		return errors.New("SESSION_SECRET environment variable is required")
	}
	return nil
}

// AzureConfigured reports whether question generation can be enabled.
func (c Config) AzureConfigured() bool {
	return c.Azure.Endpoint != "" && c.Azure.APIKey != ""
}

// AzureSettings returns the completion service settings.
func (c Config) AzureSettings() AzureSettings {
	return AzureSettings{
		Endpoint:   c.Azure.Endpoint,
		APIKey:     c.Azure.APIKey,
		Deployment: c.Azure.Deployment,
		APIVersion: c.Azure.APIVersion,
	}
}

// QuestionTime is the per-question answer window.
func (c Config) QuestionTime() time.Duration {
	return time.Duration(c.Quiz.QuestionSeconds) * time.Second
}

// RequestTimeout bounds a single completion request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
