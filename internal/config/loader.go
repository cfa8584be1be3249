package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "DRAFT_"
	envFile   = "DRAFT_CONFIG"
)

// Load layers, lowest precedence first: defaults, the YAML file named by
// DRAFT_CONFIG if set, then DRAFT_* environment variables.
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// DRAFT_ORACLE_URL -> oracle_url
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RankWorkers <= 0:
		return fmt.Errorf("%w: rank_workers must be positive", ErrInvalidConfig)
	case c.OracleRetries < 0:
		return fmt.Errorf("%w: oracle_retries must not be negative", ErrInvalidConfig)
	case c.OracleTimeout <= 0:
		return fmt.Errorf("%w: oracle_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
