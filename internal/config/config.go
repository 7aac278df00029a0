// Package config loads server settings. Values come from an optional YAML
// file, then GYMFLOOR_* environment variables, then built-in defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "GYMFLOOR_"

// Default values.
const (
	DefaultAddr               = ":8080"
	DefaultEnv                = "development"
	DefaultDBPath             = "gymfloor.db"
	DefaultTimezone           = "Pacific/Auckland"
	DefaultLogLevel           = "info"
	DefaultSlowQueryMs        = 50
	DefaultSlowRequestMs      = 200
	DefaultRateLimitPerSecond = 20
)

// Config holds all server settings.
type Config struct {
	Addr               string `koanf:"addr"`
	Env                string `koanf:"env"`
	DBPath             string `koanf:"db_path"`
	Timezone           string `koanf:"timezone"`
	LogLevel           string `koanf:"log_level"`
	SlowQueryMs        int    `koanf:"slow_query_ms"`
	SlowRequestMs      int    `koanf:"slow_request_ms"`
	RateLimitPerSecond int    `koanf:"rate_limit_per_second"`
	CSRFKey            string `koanf:"csrf_key"` // 64 hex characters
	SeedSynthetic      bool   `koanf:"seed_synthetic"`
}

// Configuration validation errors.
var (
	ErrInvalidInt       = errors.New("value must be a positive integer")
	ErrInvalidBool      = errors.New("value must be true or false")
	ErrUnknownTimezone  = errors.New("timezone is not a known IANA zone")
	ErrUnknownLogLevel  = errors.New("log_level must be one of debug, info, warn, error")
	ErrInvalidCSRFKey   = errors.New("csrf_key must be 64 hex characters (32 bytes)")
	ErrMissingCSRFKey   = errors.New("csrf_key is required in production")
	ErrMissingDBPath    = errors.New("db_path is required")
	ErrSeedInProduction = errors.New("seed_synthetic cannot be enabled in production")
)

// Load reads an optional config file, then the environment.
// Returns the config and every problem found; the config is nil only when
// the file could not be read.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	var errs []error
	intSetting := func(key string, def int) int {
		n, err := envIntOrDefault(key, k, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}
	seed, err := envBoolOrDefault("seed_synthetic", k, false)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Addr:               envOrDefault("addr", k, DefaultAddr),
		Env:                envOrDefault("env", k, DefaultEnv),
		DBPath:             envOrDefault("db_path", k, DefaultDBPath),
		Timezone:           envOrDefault("timezone", k, DefaultTimezone),
		LogLevel:           strings.ToLower(envOrDefault("log_level", k, DefaultLogLevel)),
		SlowQueryMs:        intSetting("slow_query_ms", DefaultSlowQueryMs),
		SlowRequestMs:      intSetting("slow_request_ms", DefaultSlowRequestMs),
		RateLimitPerSecond: intSetting("rate_limit_per_second", DefaultRateLimitPerSecond),
		CSRFKey:            envOrDefault("csrf_key", k, ""),
		SeedSynthetic:      seed,
	}
	return cfg, append(errs, cfg.Validate()...)
}

// Validate checks every field and returns all problems found.
func (c *Config) Validate() []error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, ErrMissingDBPath)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownTimezone, c.Timezone))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.CSRFKey != "" {
		if b, err := hex.DecodeString(c.CSRFKey); err != nil || len(b) != 32 {
			errs = append(errs, ErrInvalidCSRFKey)
		}
	} else if c.IsProduction() {
		errs = append(errs, ErrMissingCSRFKey)
	}
	if c.SeedSynthetic && c.IsProduction() {
		errs = append(errs, ErrSeedInProduction)
	}
	return errs
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the zone that anchors calendar windows.
// PRE: Validate returned no errors
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel returns the configured log level, info when unparseable.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// SlowQuery returns the slow-query threshold.
func (c *Config) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryMs) * time.Millisecond
}

// SlowRequest returns the slow-request threshold.
func (c *Config) SlowRequest() time.Duration {
	return time.Duration(c.SlowRequestMs) * time.Millisecond
}

// CSRFKeyBytes decodes the configured key. Without one, a random key is
// generated, so form tokens do not survive a restart.
// PRE: Validate returned no errors
func (c *Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey != "" {
		return hex.DecodeString(c.CSRFKey)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("csrf_key_generated", "hint", "set "+EnvName("csrf_key")+" to keep tokens across restarts")
	return key, nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, s)
}

// envOrDefault returns the environment value if set, else the file value,
// else def.
func envOrDefault(key string, k *koanf.Koanf, def string) string {
	if v := os.Getenv(EnvName(key)); v != "" {
		return v
	}
	if v := k.String(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, k *koanf.Koanf, def int) (int, error) {
	if v := os.Getenv(EnvName(key)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return def, fmt.Errorf("%s: %w", EnvName(key), ErrInvalidInt)
		}
		return n, nil
	}
	if k.Exists(key) {
		n := k.Int(key)
		if n <= 0 {
			return def, fmt.Errorf("%s: %w", key, ErrInvalidInt)
		}
		return n, nil
	}
	return def, nil
}

func envBoolOrDefault(key string, k *koanf.Koanf, def bool) (bool, error) {
	if v := os.Getenv(EnvName(key)); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
		return def, fmt.Errorf("%s: %w", EnvName(key), ErrInvalidBool)
	}
	if k.Exists(key) {
		return k.Bool(key), nil
	}
	return def, nil
}
