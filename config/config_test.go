package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
bookflow:
  name: bookflow
  version: test
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Binance.WS.Workers != 3 {
		t.Fatalf("default workers = %d, want 3", cfg.Source.Binance.WS.Workers)
	}
	if cfg.Source.Binance.WS.DepthChannel != "depth" {
		t.Fatalf("default depth channel = %q", cfg.Source.Binance.WS.DepthChannel)
	}
	if cfg.Reader.Timeout != 10*time.Second {
		t.Fatalf("default timeout = %v", cfg.Reader.Timeout)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
bookflow:
  name: bookflow
  version: test
source:
  binance:
    ws:
      url: wss://example.com
      workers: 5
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Binance.WS.URL != "wss://example.com" {
		t.Fatalf("ws url = %q", cfg.Source.Binance.WS.URL)
	}
	if cfg.Source.Binance.WS.Workers != 5 {
		t.Fatalf("workers = %d, want 5", cfg.Source.Binance.WS.Workers)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	path := writeConfig(t, `
bookflow:
  name: bookflow
  version: test
source:
  binance:
    ws:
      workers: -1
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for negative worker count")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
