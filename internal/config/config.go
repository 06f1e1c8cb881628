// Package config resolves configuration for both binaries, grounded on
// the teacher's internal/config/config.go: Viper-backed TOML discovery,
// environment override, and mapstructure decoding into typed structs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// APILinkConfig mirrors the API-link resolver's option set, spec.md §6.
type APILinkConfig struct {
	ManifestDir          string   `mapstructure:"manifest-dir"`
	ServerCommand        []string `mapstructure:"server-command"`
	CargoFeatures        []string `mapstructure:"cargo-features"`
	CacheDir             string   `mapstructure:"cache-dir"`
	ServerTimeoutSeconds int      `mapstructure:"rust-analyzer-timeout"`
	FailOnWarnings       bool     `mapstructure:"fail-on-warnings"`
}

// PermalinkConfig mirrors the permalink resolver's option set, spec.md §6.
type PermalinkConfig struct {
	AlwaysLink      []string `mapstructure:"always-link"`
	BookURL         string   `mapstructure:"book-url"`
	RepoURLTemplate string   `mapstructure:"repo-url-template"`
	FailOnWarnings  bool     `mapstructure:"fail-on-warnings"`
}

// InitializeViper sets up config file discovery and environment override,
// mirroring the teacher's InitializeViper: a `linkfix.toml` in the current
// directory, then the XDG/HOME config directories, with
// `MDBOOK_LINKFIX_`-prefixed environment variables overriding file values.
func InitializeViper() error {
	viper.SetConfigName("linkfix")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "mdbook-linkfix"))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "mdbook-linkfix"))
	}

	viper.SetDefault("rust-analyzer-timeout", 300)
	viper.SetDefault("fail-on-warnings", os.Getenv("CI") != "")

	viper.SetEnvPrefix("MDBOOK_LINKFIX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// LoadAPILinkConfig decodes viper's resolved settings into an
// APILinkConfig, then layers the host-provided book-mode config table (the
// `[preprocessor.*]` entry mdbook sends on stdin) over it — the
// host-provided table always wins, file/env act as fallback defaults.
func LoadAPILinkConfig(hostConfig map[string]interface{}) (*APILinkConfig, error) {
	var cfg APILinkConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding api-link config: %w", err)
	}
	if err := overlay(&cfg, hostConfig); err != nil {
		return nil, fmt.Errorf("overlaying host config: %w", err)
	}
	return &cfg, nil
}

// LoadPermalinkConfig is LoadAPILinkConfig's counterpart for the
// permalink resolver.
func LoadPermalinkConfig(hostConfig map[string]interface{}) (*PermalinkConfig, error) {
	var cfg PermalinkConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding permalink config: %w", err)
	}
	if err := overlay(&cfg, hostConfig); err != nil {
		return nil, fmt.Errorf("overlaying host config: %w", err)
	}
	return &cfg, nil
}

func overlay(cfg interface{}, hostConfig map[string]interface{}) error {
	if len(hostConfig) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(hostConfig)
}
