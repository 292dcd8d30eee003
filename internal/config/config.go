package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/johnwards/devicetree/internal/domain"
)

// Source values.
const (
	SourceSQLite = "sqlite"
	SourceRemote = "remote"
)

// Config holds application configuration. Values come from defaults, then
// the YAML file named by DEVICETREE_CONFIG, then environment variables.
type Config struct {
	// DEVICETREE_ADDR, default ":8080".
	Addr string `yaml:"addr" validate:"required"`
	// DEVICETREE_DB, default "devicetree.db".
	DBPath string `yaml:"db" validate:"required"`
	// DEVICETREE_AUTH_TOKEN, optional.
	AuthToken string `yaml:"authToken"`

	// DEVICETREE_SOURCE selects where the hierarchy is read from: the local
	// SQLite store or a remote platform.
	Source string `yaml:"source" validate:"oneof=sqlite remote"`
	// DEVICETREE_REMOTE_URL, required when Source is remote.
	RemoteURL string `yaml:"remoteUrl" validate:"required_if=Source remote,omitempty,url"`
	// DEVICETREE_REMOTE_TOKEN.
	RemoteToken string `yaml:"remoteToken"`

	// DEVICETREE_ROOT_PROFILE, default "HOME".
	RootProfile string `yaml:"rootProfile" validate:"required"`
	// DEVICETREE_SUPPORTED_TYPES, default "ASSET,DEVICE". Order decides
	// sibling grouping.
	SupportedTypes []domain.EntityType `yaml:"supportedTypes" validate:"min=1,unique,dive,oneof=ASSET DEVICE"`

	// DEVICETREE_FETCH_TIMEOUT, default 10s.
	FetchTimeout time.Duration `yaml:"fetchTimeout" validate:"gte=0"`
	// DEVICETREE_SESSION_TTL, default 30m.
	SessionTTL time.Duration `yaml:"sessionTTL" validate:"gte=0"`

	// DEVICETREE_LOG_LEVEL, default "info".
	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	// DEVICETREE_LOG_FORMAT, default "text".
	LogFormat string `yaml:"logFormat" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:           ":8080",
		DBPath:         "devicetree.db",
		Source:         SourceSQLite,
		RootProfile:    "HOME",
		SupportedTypes: []domain.EntityType{domain.EntityTypeAsset, domain.EntityTypeDevice},
		FetchTimeout:   10 * time.Second,
		SessionTTL:     30 * time.Minute,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds the configuration and validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("DEVICETREE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Addr = envOr("DEVICETREE_ADDR", c.Addr)
	c.DBPath = envOr("DEVICETREE_DB", c.DBPath)
	c.AuthToken = envOr("DEVICETREE_AUTH_TOKEN", c.AuthToken)
	c.Source = envOr("DEVICETREE_SOURCE", c.Source)
	c.RemoteURL = envOr("DEVICETREE_REMOTE_URL", c.RemoteURL)
	c.RemoteToken = envOr("DEVICETREE_REMOTE_TOKEN", c.RemoteToken)
	c.RootProfile = envOr("DEVICETREE_ROOT_PROFILE", c.RootProfile)
	c.LogLevel = envOr("DEVICETREE_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("DEVICETREE_LOG_FORMAT", c.LogFormat)

	if v := os.Getenv("DEVICETREE_SUPPORTED_TYPES"); v != "" {
		types, err := parseTypes(v)
		if err != nil {
			return fmt.Errorf("DEVICETREE_SUPPORTED_TYPES: %w", err)
		}
		c.SupportedTypes = types
	}
	var err error
	if c.FetchTimeout, err = envDuration("DEVICETREE_FETCH_TIMEOUT", c.FetchTimeout); err != nil {
		return err
	}
	if c.SessionTTL, err = envDuration("DEVICETREE_SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func parseTypes(v string) ([]domain.EntityType, error) {
	var types []domain.EntityType
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := domain.ParseEntityType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
