// Package config loads the service configuration. Precedence, lowest to
// highest: built-in defaults, yaml file, CARDAMOM_* environment variables,
// command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/cardamom-srs/cardamom/internal/srs"
)

// SRS mirrors srs.Params. The original deployment's constants are unknown,
// so every one of them is configurable.
type SRS struct {
	InitialEase         float64 `koanf:"initial_ease" validate:"gt=1"`
	MinEase             float64 `koanf:"min_ease" validate:"gte=1"`
	LapsePenalty        float64 `koanf:"lapse_penalty" validate:"gte=0"`
	FirstIntervalDays   int     `koanf:"first_interval_days" validate:"gte=1"`
	SecondIntervalDays  int     `koanf:"second_interval_days" validate:"gte=1"`
	RelearnIntervalDays int     `koanf:"relearn_interval_days" validate:"gte=1"`
	MaxIntervalDays     int     `koanf:"max_interval_days" validate:"gte=0"`
}

// User is an account seeded at startup.
type User struct {
	Username string `koanf:"username" validate:"required"`
	Name     string `koanf:"name"`
}

// Source registers a card origin feeding one deck of one user.
type Source struct {
	User string `koanf:"user" validate:"required"`
	Deck string `koanf:"deck" validate:"required"`
	Path string `koanf:"path" validate:"required"`
	Kind string `koanf:"kind" validate:"oneof=local git"`
}

// Config is the full service configuration.
type Config struct {
	Addr         string        `koanf:"addr" validate:"required"`
	DBPath       string        `koanf:"db_path" validate:"required"`
	ReposDir     string        `koanf:"repos_dir" validate:"required"`
	SyncInterval time.Duration `koanf:"sync_interval"`
	// UserHeader names the trusted header carrying the authenticated
	// username (reverse-proxy auth model).
	UserHeader string   `koanf:"user_header" validate:"required"`
	SRS        SRS      `koanf:"srs"`
	Users      []User   `koanf:"users" validate:"dive"`
	Sources    []Source `koanf:"sources" validate:"dive"`
}

func defaults() map[string]any {
	return map[string]any{
		"addr":          ":8080",
		"db_path":       "cardamom.db",
		"repos_dir":     "repos",
		"sync_interval": time.Hour,
		"user_header":   "X-Cardamom-User",

		"srs.initial_ease":          2.5,
		"srs.min_ease":              1.3,
		"srs.lapse_penalty":         0.2,
		"srs.first_interval_days":   1,
		"srs.second_interval_days":  6,
		"srs.relearn_interval_days": 1,
		"srs.max_interval_days":     365,
	}
}

// Load builds the configuration. path may be empty or point at a missing
// file; both fall back to defaults. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// Double underscore nests: CARDAMOM_SRS__INITIAL_EASE -> srs.initial_ease,
	// CARDAMOM_DB_PATH -> db_path.
	if err := k.Load(env.Provider("CARDAMOM_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CARDAMOM_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load config from flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Params converts the SRS section into scheduler parameters.
func (c *Config) Params() srs.Params {
	return srs.Params{
		InitialEase:         c.SRS.InitialEase,
		MinEase:             c.SRS.MinEase,
		LapsePenalty:        c.SRS.LapsePenalty,
		FirstIntervalDays:   c.SRS.FirstIntervalDays,
		SecondIntervalDays:  c.SRS.SecondIntervalDays,
		RelearnIntervalDays: c.SRS.RelearnIntervalDays,
		MaxIntervalDays:     c.SRS.MaxIntervalDays,
	}
}
