package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flightkoy/questboard/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.TokenTTL != 72*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL)
	}
	if cfg.JWTSecret != config.DefaultJWTSecret {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LEADERBOARD_TTL", "5s")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("QUEST_URL", "https://quest.example/play")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.StoreDriver != "memory" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.LeaderboardTTL != 5*time.Second || !cfg.SeedDemo {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.QuestURL != "https://quest.example/play" {
		t.Errorf("QuestURL = %q", cfg.QuestURL)
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BCRYPT_COST=4\nTIMEZONE=Europe/Moscow\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("BCRYPT_COST")
		os.Unsetenv("TIMEZONE")
	})

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BcryptCost != 4 {
		t.Errorf("BcryptCost = %d", cfg.BcryptCost)
	}
	if cfg.Timezone != "Europe/Moscow" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"STORE_DRIVER": "postgres",
		"TIMEZONE":     "Mars/Olympus",
		"TOKEN_TTL":    "soon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := config.Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
