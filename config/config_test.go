package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
exchanges:
  binance:
    base_url: "https://api.binance.com"
`)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Manager.LoopSeconds != 5 {
		t.Errorf("unexpected default loop_seconds: %d", cfg.Manager.LoopSeconds)
	}
	if cfg.Manager.LoopInterval().Seconds() != 5 {
		t.Errorf("unexpected LoopInterval: %v", cfg.Manager.LoopInterval())
	}
	if cfg.Exchanges["binance"].BaseURL != "https://api.binance.com" {
		t.Errorf("unexpected binance base_url: %q", cfg.Exchanges["binance"].BaseURL)
	}
}

func TestLoadConfigEnvOverridesCredentials(t *testing.T) {
	path := writeTempConfig(t, `
exchanges:
  bybit:
    api_key: "file-key"
    api_secret: "file-secret"
`)
	defer os.Remove(path)

	t.Setenv("BYBIT_API_KEY", "env-key")
	t.Setenv("BYBIT_API_SECRET", "env-secret")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Exchanges["bybit"].APIKey != "env-key" {
		t.Errorf("expected env override for api_key, got %q", cfg.Exchanges["bybit"].APIKey)
	}
	if cfg.Exchanges["bybit"].APISecret != "env-secret" {
		t.Errorf("expected env override for api_secret, got %q", cfg.Exchanges["bybit"].APISecret)
	}
}

func TestLoadConfigRejectsInvalidManagerSettings(t *testing.T) {
	path := writeTempConfig(t, `
manager:
  loop_seconds: 0
`)
	defer os.Remove(path)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for loop_seconds: 0")
	}
}

func TestLoadConfigRequiresNamespaceForCloudWatch(t *testing.T) {
	path := writeTempConfig(t, `
metrics:
  cloudwatch: true
`)
	defer os.Remove(path)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for missing metrics.namespace")
	}
}
