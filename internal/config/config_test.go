package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SERENO_DATA_DIR", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIURL != "https://api.tramontosereno.it" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Store != StoreFile {
		t.Errorf("Store = %q, want file", cfg.Store)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.PingInterval != 5*time.Minute {
		t.Errorf("PingInterval = %v, want 5m", cfg.PingInterval)
	}
	if filepath.Base(cfg.DataDir) != ".sereno" {
		t.Errorf("DataDir = %q, want ~/.sereno", cfg.DataDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SERENO_API_URL", "http://localhost:8080/")
	t.Setenv("SERENO_STORAGE_URL", "http://files.local/cache")
	t.Setenv("SERENO_DATA_DIR", dir)
	t.Setenv("SERENO_STORE", "memory")
	t.Setenv("SERENO_HTTP_TIMEOUT", "5s")
	t.Setenv("SERENO_BREAKER", "true")
	t.Setenv("SERENO_PING_INTERVAL", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIURL != "http://localhost:8080" {
		t.Errorf("APIURL = %q, want trailing slash trimmed", cfg.APIURL)
	}
	if cfg.StorageURL != "http://files.local/cache/" {
		t.Errorf("StorageURL = %q, want trailing slash added", cfg.StorageURL)
	}
	if cfg.DataDir != dir || cfg.DownloadDir() != filepath.Join(dir, "documents") {
		t.Errorf("DataDir = %q, DownloadDir = %q", cfg.DataDir, cfg.DownloadDir())
	}
	if cfg.Store != StoreMemory || !cfg.Breaker || cfg.HTTPTimeout != 5*time.Second || cfg.PingInterval != 0 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("SERENO_DATA_DIR", t.TempDir())
	t.Setenv("SERENO_STORE", "sqlite")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown store")
	}
}
