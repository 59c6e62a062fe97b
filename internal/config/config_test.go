package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Grading.Workers != 4 || cfg.Grading.Policy != "default" || cfg.Grading.MaxEditDistance != 1 {
		t.Fatalf("unexpected grading defaults: %+v", cfg.Grading)
	}
	if cfg.Grading.DefaultMatchMode != question.MatchNormal {
		t.Fatalf("match mode = %q", cfg.Grading.DefaultMatchMode)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("GRADING_WORKERS", "8")
	t.Setenv("GRADING_DEFAULT_MATCH_MODE", "lenient")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.RedisDB != 3 || cfg.Grading.Workers != 8 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !slices.Equal(cfg.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
	if cfg.Grading.DefaultMatchMode != question.MatchLenient {
		t.Fatalf("match mode = %q", cfg.Grading.DefaultMatchMode)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grading.yaml")
	body := "GRADING_POLICY: negative\nLOG_LEVEL: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grading.Policy != "negative" {
		t.Fatalf("policy = %q", cfg.Grading.Policy)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("env should override file, got %q", cfg.LogLevel)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":                  "mysql",
		"GRADING_WORKERS":            "0",
		"GRADING_MAX_EDIT_DISTANCE":  "-1",
		"GRADING_DEFAULT_MATCH_MODE": "FUZZY",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(""); err == nil {
				t.Fatalf("%s=%s accepted", key, val)
			}
		})
	}
}
