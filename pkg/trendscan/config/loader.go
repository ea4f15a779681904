package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: TRENDSCAN_CLUSTER__THRESHOLD=0.7.
const EnvPrefix = "TRENDSCAN_"

// EnvConfigPath names the variable consulted when Load gets no path
const EnvConfigPath = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, an optional YAML file and
// environment variables. Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) at path, or at $TRENDSCAN_CONFIG when path is empty
//  3. env (prefix TRENDSCAN_)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: load %s: %w", internalerr.ErrInvalidConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		if s == "CONFIG" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", internalerr.ErrInvalidConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YAML renders the configuration as YAML
func (c *Config) YAML() ([]byte, error) {
	return yamlv3.Marshal(c)
}
