// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the process configuration from a settings file, an
// optional settings.local overlay, and batch_proxy-prefixed environment
// variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// BatchConfig bounds how the proxy coalesces requests.
type BatchConfig struct {
	// MaxBatchSize is the maximum aggregate data-item count admitted into a
	// single backend call.
	MaxBatchSize int `mapstructure:"max_batch_size"`
	// MaxWaitingTimeMs is how long a worker lets a batch sit before it
	// flushes regardless of size.
	MaxWaitingTimeMs int64 `mapstructure:"max_waiting_time_ms"`
}

// APIConfig configures the public HTTP entry point.
type APIConfig struct {
	TargetPort int `mapstructure:"target_port"`
}

// InferenceAPIConfig configures the backend embedding HTTP client.
type InferenceAPIConfig struct {
	TargetURL string `mapstructure:"target_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// MetricsConfig holds the metrics.addr setting. Nothing reads it: metrics
// are served only on the public listener's /metrics route.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the fully resolved, immutable process configuration. It is
// loaded exactly once at startup and passed down explicitly; nothing in
// this codebase reads from a global config singleton.
type Config struct {
	Env          string             `mapstructure:"env"`
	API          APIConfig          `mapstructure:"api"`
	InferenceAPI InferenceAPIConfig `mapstructure:"inference_api"`
	Batch        BatchConfig        `mapstructure:"batch"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// Load reads "settings" (any viper-supported format) plus an optional
// "settings.local" overlay from searchPaths, then applies BATCH_PROXY_
// prefixed, double-underscore-nested environment overrides, e.g.
// BATCH_PROXY_BATCH__MAX_BATCH_SIZE overrides batch.max_batch_size.
func Load(searchPaths ...string) (Config, error) {
	v := viper.New()
	v.SetDefault("env", "production")
	v.SetDefault("api.target_port", 8080)
	v.SetDefault("inference_api.timeout_ms", 30000)
	v.SetDefault("metrics.addr", "")

	v.SetConfigName("settings")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if len(searchPaths) == 0 {
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("loading settings: %w", err)
	}

	local := viper.New()
	local.SetConfigName("settings.local")
	for _, p := range searchPaths {
		local.AddConfigPath(p)
	}
	if len(searchPaths) == 0 {
		local.AddConfigPath(".")
	}
	if err := local.ReadInConfig(); err == nil {
		if err := v.MergeConfigMap(local.AllSettings()); err != nil {
			return Config{}, fmt.Errorf("merging settings.local: %w", err)
		}
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
		return Config{}, fmt.Errorf("loading settings.local: %w", err)
	}

	v.SetEnvPrefix("batch_proxy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling settings: %w", err)
	}
	if cfg.Batch.MaxBatchSize <= 0 {
		return Config{}, fmt.Errorf("batch.max_batch_size must be > 0")
	}
	if cfg.InferenceAPI.TargetURL == "" {
		return Config{}, fmt.Errorf("inference_api.target_url is required")
	}
	return cfg, nil
}
