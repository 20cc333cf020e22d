// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package config loads MusFuse's runtime configuration. Precedence is
// flags > environment > file > defaults, the same ordering demlo
// documents for its own Options ("Precedence: flags > config >
// defaults.") generalized with one more layer for container/env
// deployments, using viper the way Bparsons0904-waugzee and
// oshokin-zvuk-grabber do.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backend selects the KV implementation behind the C1 contract.
type Backend string

const (
	BackendEmbedded Backend = "embedded"
	BackendExternal Backend = "external"
)

// Config holds every option the core consumes (spec §6).
type Config struct {
	SourceDirs           []string `mapstructure:"source_dirs"`
	KVBackend            Backend  `mapstructure:"kv_backend"`
	KVPath               string   `mapstructure:"kv_path"`
	KVAddr               string   `mapstructure:"kv_addr"`
	PolicyProfile        string   `mapstructure:"policy_profile"`
	TranscodeConcurrency int      `mapstructure:"transcode_concurrency"`
	CaseSensitiveNames   bool     `mapstructure:"case_sensitive_names"`
	CacheArtwork         bool     `mapstructure:"cache_artwork"`

	// Ambient, not part of spec §6 but required to run.
	LogLevel   string `mapstructure:"log_level"`
	FFmpegPath string `mapstructure:"ffmpeg_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kv_backend", string(BackendEmbedded))
	v.SetDefault("kv_path", "musfuse.db")
	v.SetDefault("policy_profile", "default")
	v.SetDefault("transcode_concurrency", runtime.NumCPU())
	v.SetDefault("case_sensitive_names", false)
	v.SetDefault("cache_artwork", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("ffmpeg_path", "ffmpeg")
}

// Load builds a Config from (in ascending precedence) built-in defaults,
// an optional config file, environment variables prefixed MUSFUSE_, and
// CLI flags already parsed into fs.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("musfuse")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.TranscodeConcurrency < 1 {
		return nil, fmt.Errorf("config: transcode_concurrency must be >= 1, got %d", cfg.TranscodeConcurrency)
	}
	if cfg.KVBackend != BackendEmbedded && cfg.KVBackend != BackendExternal {
		return nil, fmt.Errorf("config: kv_backend must be %q or %q, got %q", BackendEmbedded, BackendExternal, cfg.KVBackend)
	}

	return &cfg, nil
}
