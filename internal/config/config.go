package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type CacheConfig struct {
	MaxResidentCrates   int `mapstructure:"max_resident_crates"`
	MaxConcurrentBuilds int `mapstructure:"max_concurrent_builds"`
}

type DocgenConfig struct {
	Toolchain string `mapstructure:"toolchain"`
}

type SearchConfig struct {
	Limit int `mapstructure:"limit"`
}

type Config struct {
	// Workspace overrides the Cargo workspace root; empty means the
	// current directory.
	Workspace string       `mapstructure:"workspace"`
	Cache     CacheConfig  `mapstructure:"cache"`
	Docgen    DocgenConfig `mapstructure:"docgen"`
	Search    SearchConfig `mapstructure:"search"`
}

// cacheBase returns the base cache directory for cratedex.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/cratedex as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "cratedex")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "cratedex")
	}
	return filepath.Join(os.TempDir(), "cratedex")
}

// ByteCacheDir returns the directory holding compressed rustdoc JSON.
func ByteCacheDir() string {
	return filepath.Join(cacheBase(), "json")
}

// LogPath returns the path to the server's log file. Logs go to a file
// because stdout carries the MCP stream.
func LogPath() string {
	return filepath.Join(cacheBase(), "server.log")
}

func InitializeViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "cratedex"))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "cratedex"))
	}

	viper.SetDefault("cache.max_resident_crates", 8)
	viper.SetDefault("cache.max_concurrent_builds", 2)
	viper.SetDefault("docgen.toolchain", "nightly")
	viper.SetDefault("search.limit", 20)

	viper.SetEnvPrefix("CRATEDEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}

	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Workspace == "" {
		if wd, err := os.Getwd(); err == nil {
			config.Workspace = wd
		}
	}

	return &config, nil
}
