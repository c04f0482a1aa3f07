package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/xerrors"
)

const (
	// EnvPrefix prefixes every environment variable read into the configuration.
	EnvPrefix = "SPARKIFY_"

	// ConfigPathEnvVar names the config file when --config is not given.
	ConfigPathEnvVar = "SPARKIFY_CONFIG"
)

// DefaultConfigPaths are searched in order when no config file is given.
var DefaultConfigPaths = []string{"sparkify.yaml", "sparkify.yml"}

// Load reads the configuration. path may be empty.
//
// Environment variables use "__" between section and key, so
// SPARKIFY_DATABASE__HOST sets database.host.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, xerrors.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, xerrors.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, xerrors.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, xerrors.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(cfg.Log); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}

	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// envTransformFunc maps SPARKIFY_LAKE__UPLOAD to lake.upload.
// SPARKIFY_CONFIG is not a setting and is skipped.
func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}

	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	return strings.ReplaceAll(key, "__", ".")
}
