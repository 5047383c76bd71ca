package chocoraga

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_DEPLOYMENT",
		"AZURE_OPENAI_API_VERSION", "DB_PATH", "PORT", "SESSION_SECRET",
		"SESSION_DIR", "LOG_DIR", "QUESTION_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

// TestLoadConfigDefaults verifies defaults apply with no file and no env.
func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "5000" || cfg.Database.Path != "./quiz.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Azure.Deployment != "gpt-4o" || cfg.Azure.APIVersion != "2024-08-01-preview" {
		t.Fatalf("unexpected azure defaults %+v", cfg.Azure)
	}
	if cfg.QuestionTime() != 30*time.Second {
		t.Fatalf("expected 30s question time, got %s", cfg.QuestionTime())
	}
	if cfg.AzureConfigured() {
		t.Fatalf("azure should not be configured")
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing session secret to fail validation")
	}
}

// TestLoadConfigEnvOverridesFile verifies env wins over YAML values.
func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "chocoraga.yaml")
	yamlData := `server:
  port: "8081"
  session_secret: from-file
database:
  path: /tmp/file.db
azure:
  endpoint: https://file.openai.azure.com
  api_key: file-key
quiz:
  question_seconds: 45
verbose: true
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "9090")
	t.Setenv("AZURE_OPENAI_API_KEY", "env-key")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected env port, got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/file.db" {
		t.Fatalf("expected file db path, got %s", cfg.Database.Path)
	}
	if cfg.AzureSettings().APIKey != "env-key" {
		t.Fatalf("expected env api key")
	}
	if cfg.QuestionTime() != 45*time.Second || !cfg.Verbose {
		t.Fatalf("file quiz settings lost: %+v", cfg)
	}
	if !cfg.AzureConfigured() || cfg.Validate() != nil {
		t.Fatalf("expected a complete config")
	}
}

// TestLoadConfigBadQuestionSeconds verifies a non-numeric override fails.
func TestLoadConfigBadQuestionSeconds(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("QUESTION_SECONDS", "soon")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected an error")
	}
}
