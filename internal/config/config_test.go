package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opslearning.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	path := writeConfig(t, "app:\n  debug: false\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Budget.PromptDataLimit != 5000 {
		t.Errorf("Expected prompt data limit 5000, got %d", cfg.Budget.PromptDataLimit)
	}
	if cfg.Budget.Encoding != "cl100k_base" {
		t.Errorf("Expected cl100k_base encoding, got %s", cfg.Budget.Encoding)
	}
	if cfg.AI.Gemini.PromptTokenLimit != 6500 {
		t.Errorf("Expected prompt token limit 6500, got %d", cfg.AI.Gemini.PromptTokenLimit)
	}
	if cfg.Summary.MaxAttempts != 3 {
		t.Errorf("Expected 3 summary attempts, got %d", cfg.Summary.MaxAttempts)
	}
	if cfg.GoAPI.BaseURL != "https://goadmin.ifrc.org/api/v2/" {
		t.Errorf("Unexpected GO API base URL: %s", cfg.GoAPI.BaseURL)
	}
	if cfg.App.ConfigFile != path {
		t.Errorf("Expected config file %s, got %s", path, cfg.App.ConfigFile)
	}
	if err := cfg.RequireGemini(); !errors.Is(err, core.ErrConfig) {
		t.Errorf("Expected ErrConfig without Gemini key, got %v", err)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GO_API_TOKEN", "Token abc")
	t.Setenv("OPSLEARNING_BUDGET_PROMPT_DATA_LIMIT", "1200")

	path := writeConfig(t, `
goapi:
  base_url: http://localhost:8000/api/v2
  page_size: 50
summary:
  retry_delay: 250ms
logging:
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AI.Gemini.APIKey != "test-key" {
		t.Errorf("Expected API key from environment, got %q", cfg.AI.Gemini.APIKey)
	}
	if cfg.GoAPI.Token != "Token abc" {
		t.Errorf("Expected GO token from environment, got %q", cfg.GoAPI.Token)
	}
	if cfg.GoAPI.BaseURL != "http://localhost:8000/api/v2/" {
		t.Errorf("Expected trailing slash to be added, got %s", cfg.GoAPI.BaseURL)
	}
	if cfg.GoAPI.PageSize != 50 {
		t.Errorf("Expected page size 50, got %d", cfg.GoAPI.PageSize)
	}
	if cfg.Budget.PromptDataLimit != 1200 {
		t.Errorf("Expected env override 1200, got %d", cfg.Budget.PromptDataLimit)
	}
	if got := Duration(cfg.Summary.RetryDelay, time.Second); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms retry delay, got %v", got)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected json logging, got %s", cfg.Logging.Format)
	}
	if err := cfg.RequireGemini(); err != nil {
		t.Errorf("Unexpected error with Gemini key set: %v", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", "summary:\n  retry_delay: soon\n"},
		{"zero attempts", "summary:\n  max_attempts: 0\n"},
		{"negative budget", "budget:\n  prompt_data_limit: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, core.ErrConfig) {
				t.Errorf("Expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, core.ErrConfig) {
		t.Errorf("Expected ErrConfig for missing explicit config file, got %v", err)
	}
}

func TestEvaluatorGemini(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	path := writeConfig(t, `
ai:
  gemini:
    model: gemini-2.5-pro
quality:
  min_fluency: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Quality.MaxOutputTokens != 500 || cfg.Quality.MinRelevance != 3 || cfg.Quality.MinFluency != 3 {
		t.Errorf("Unexpected quality settings %+v", cfg.Quality)
	}

	g := cfg.EvaluatorGemini()
	if g.Model != "gemini-2.5-pro" || g.APIKey != "test-key" {
		t.Errorf("Expected summary model and key to be reused, got %s", g.Model)
	}
	if g.Temperature != 0 || g.JSONResponseMode || g.PromptTokenLimit != 0 || g.MaxOutputTokens != 500 {
		t.Errorf("Unexpected evaluator settings %+v", g)
	}
	if cfg.AI.Gemini.JSONResponseMode != true {
		t.Error("Evaluator settings should not change the summary settings")
	}

	cfg.Quality.Model = "gemini-2.5-flash-lite"
	if got := cfg.EvaluatorGemini().Model; got != "gemini-2.5-flash-lite" {
		t.Errorf("Expected quality model override, got %s", got)
	}
}
