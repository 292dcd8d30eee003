package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/johnwards/devicetree/internal/config"
	"github.com/johnwards/devicetree/internal/domain"
)

var envKeys = []string{
	"DEVICETREE_CONFIG",
	"DEVICETREE_ADDR",
	"DEVICETREE_DB",
	"DEVICETREE_AUTH_TOKEN",
	"DEVICETREE_SOURCE",
	"DEVICETREE_REMOTE_URL",
	"DEVICETREE_REMOTE_TOKEN",
	"DEVICETREE_ROOT_PROFILE",
	"DEVICETREE_SUPPORTED_TYPES",
	"DEVICETREE_FETCH_TIMEOUT",
	"DEVICETREE_SESSION_TTL",
	"DEVICETREE_LOG_LEVEL",
	"DEVICETREE_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.DBPath != "devicetree.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "devicetree.db")
	}
	if cfg.AuthToken != "" {
		t.Errorf("AuthToken = %q, want empty", cfg.AuthToken)
	}
	if cfg.Source != config.SourceSQLite {
		t.Errorf("Source = %q, want sqlite", cfg.Source)
	}
	if cfg.RootProfile != "HOME" {
		t.Errorf("RootProfile = %q, want HOME", cfg.RootProfile)
	}
	if len(cfg.SupportedTypes) != 2 || cfg.SupportedTypes[0] != domain.EntityTypeAsset {
		t.Errorf("SupportedTypes = %v", cfg.SupportedTypes)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEVICETREE_ADDR", ":9090")
	t.Setenv("DEVICETREE_DB", "/tmp/test.db")
	t.Setenv("DEVICETREE_AUTH_TOKEN", "secret-token")
	t.Setenv("DEVICETREE_SUPPORTED_TYPES", "devices, assets")
	t.Setenv("DEVICETREE_FETCH_TIMEOUT", "250ms")
	t.Setenv("DEVICETREE_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.AuthToken != "secret-token" {
		t.Errorf("AuthToken = %q, want %q", cfg.AuthToken, "secret-token")
	}
	want := []domain.EntityType{domain.EntityTypeDevice, domain.EntityTypeAsset}
	if len(cfg.SupportedTypes) != 2 || cfg.SupportedTypes[0] != want[0] || cfg.SupportedTypes[1] != want[1] {
		t.Errorf("SupportedTypes = %v, want %v", cfg.SupportedTypes, want)
	}
	if cfg.FetchTimeout != 250*time.Millisecond {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestLoadFileEnvWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "devicetree.yaml")
	data := `
addr: ":7070"
source: remote
remoteUrl: https://platform.example.com
remoteToken: abc
rootProfile: BUILDING
supportedTypes: [ASSET]
sessionTTL: 5m
logFormat: json
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEVICETREE_CONFIG", path)
	t.Setenv("DEVICETREE_ADDR", ":6060")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":6060" {
		t.Errorf("Addr = %q, env should win over file", cfg.Addr)
	}
	if cfg.Source != config.SourceRemote || cfg.RemoteURL != "https://platform.example.com" {
		t.Errorf("remote settings not loaded: %+v", cfg)
	}
	if cfg.RootProfile != "BUILDING" {
		t.Errorf("RootProfile = %q", cfg.RootProfile)
	}
	if len(cfg.SupportedTypes) != 1 {
		t.Errorf("SupportedTypes = %v", cfg.SupportedTypes)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
	if cfg.DBPath != "devicetree.db" {
		t.Errorf("DBPath = %q, default should survive", cfg.DBPath)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown source":      {"DEVICETREE_SOURCE": "mongo"},
		"remote without url":  {"DEVICETREE_SOURCE": "remote"},
		"bad url":             {"DEVICETREE_SOURCE": "remote", "DEVICETREE_REMOTE_URL": "not a url"},
		"bad duration":        {"DEVICETREE_FETCH_TIMEOUT": "soon"},
		"unknown type":        {"DEVICETREE_SUPPORTED_TYPES": "ASSET,CUSTOMER"},
		"duplicate type":      {"DEVICETREE_SUPPORTED_TYPES": "ASSET,ASSET"},
		"unknown log level":   {"DEVICETREE_LOG_LEVEL": "loud"},
		"missing config file": {"DEVICETREE_CONFIG": "/nonexistent/devicetree.yaml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateMessageNamesField(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "xml"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "LogFormat") {
		t.Fatalf("expected LogFormat error, got %v", err)
	}
}
