package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenNothingConfigured(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLANNER_CONFIG_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendSQLite || cfg.Notifier != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DB != filepath.Join(dir, "planner.sqlite") {
		t.Fatalf("unexpected db path %q", cfg.DB)
	}
	if cfg.GuardWindow.Std() != 5*time.Second || cfg.Debounce.Std() != 300*time.Millisecond {
		t.Fatalf("unexpected timings: %v %v", cfg.GuardWindow.Std(), cfg.Debounce.Std())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLANNER_CONFIG_DIR", dir)

	if err := Save(Config{Backend: BackendPostgres, PostgresDSN: "postgres://file", GuardWindow: Duration(8 * time.Second), WeekStart: "sunday"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv("PLANNER_POSTGRES_DSN", "postgres://env")
	t.Setenv("PLANNER_DEBOUNCE", "1s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendPostgres {
		t.Fatalf("expected backend from file, got %q", cfg.Backend)
	}
	if cfg.PostgresDSN != "postgres://env" {
		t.Fatalf("expected env to win, got %q", cfg.PostgresDSN)
	}
	if cfg.GuardWindow.Std() != 8*time.Second || cfg.Debounce.Std() != time.Second {
		t.Fatalf("unexpected timings: %v %v", cfg.GuardWindow.Std(), cfg.Debounce.Std())
	}
	if cfg.WeekStart != "sunday" {
		t.Fatalf("expected week start from file, got %q", cfg.WeekStart)
	}
}

func TestLoad_RejectsBadEnvDuration(t *testing.T) {
	t.Setenv("PLANNER_CONFIG_DIR", t.TempDir())
	t.Setenv("PLANNER_GUARD_WINDOW", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PLANNER_GUARD_WINDOW") {
		t.Fatalf("expected guard window error, got %v", err)
	}
}

func TestSave_KeepsBackup(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLANNER_CONFIG_DIR", dir)

	if err := Save(Config{Notifier: "redis"}); err != nil {
		t.Fatalf("Save 1: %v", err)
	}
	if err := Save(Config{Notifier: "mqtt"}); err != nil {
		t.Fatalf("Save 2: %v", err)
	}
	bak, err := os.ReadFile(filepath.Join(dir, "config.json.bak"))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.Contains(string(bak), "redis") {
		t.Fatalf("expected previous config in backup, got %s", bak)
	}
	cfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Notifier != "mqtt" {
		t.Fatalf("expected latest config, got %+v", cfg)
	}
	if st, err := os.Stat(filepath.Join(dir, "config.json")); err != nil || st.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 config file: %v %v", st, err)
	}
}

func TestSet(t *testing.T) {
	var cfg Config
	if err := cfg.Set("guardWindow", "2s"); err != nil {
		t.Fatalf("Set guardWindow: %v", err)
	}
	if cfg.GuardWindow.Std() != 2*time.Second {
		t.Fatalf("unexpected guard window %v", cfg.GuardWindow.Std())
	}
	if err := cfg.Set("redisAddr", "localhost:6379"); err != nil || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("Set redisAddr: %v %+v", err, cfg)
	}
	if cfg.GuardWindow.Std() != 2*time.Second {
		t.Fatalf("Set dropped an earlier value")
	}
	if err := cfg.Set("colour", "blue"); err == nil {
		t.Fatalf("expected unknown setting error")
	}
	if err := cfg.Set("debounce", "never"); err == nil {
		t.Fatalf("expected invalid duration error")
	}
}
