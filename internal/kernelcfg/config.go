// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kernelcfg decodes the kernel's configuration: a YAML file at
// .kernel/project.yaml, overridable by command-line flags. Recognized
// options are exactly spec.md §6's list (max_taint_depth,
// pointer_context_k, parallel, thread_count, snapshot_dir) plus the
// ambient options every CLI in this pool carries (data dir, log level,
// color, glob excludes).
package kernelcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
)

const (
	defaultConfigDir  = ".kernel"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"
)

// Config is the decoded .kernel/project.yaml file, merged with any
// CLI-flag or environment-variable overrides.
type Config struct {
	Version string       `yaml:"version"`
	Kernel  KernelConfig `yaml:"kernel"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// KernelConfig holds the options spec.md §6 names directly.
type KernelConfig struct {
	MaxTaintDepth    uint32   `yaml:"max_taint_depth"`
	PointerContextK  uint32   `yaml:"pointer_context_k"`
	Parallel         bool     `yaml:"parallel"`
	ThreadCount      uint32   `yaml:"thread_count"`
	SnapshotDir      string   `yaml:"snapshot_dir"`
	DataDir          string   `yaml:"data_dir"`
	Exclude          []string `yaml:"exclude"`
}

// LoggingConfig controls the ambient structured-logging surface.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Color bool   `yaml:"color"`
}

// DefaultConfig returns a config with spec.md §6's stated defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: configVersion,
		Kernel: KernelConfig{
			MaxTaintDepth:   10,
			PointerContextK: 3,
			Parallel:        false,
			ThreadCount:     0,
			SnapshotDir:     filepath.Join(defaultConfigDir, "snapshots"),
			DataDir:         defaultConfigDir,
			Exclude: []string{
				".git/**",
				"node_modules/**",
				"vendor/**",
				"**/*.generated.go",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			Color: true,
		},
	}
}

// LoadConfig loads configuration from configPath (or CPGK_CONFIG_PATH), or
// auto-discovers .kernel/project.yaml in the current or a parent directory
// when neither is set. When no file is discovered, DefaultConfig is
// returned without error so a bare invocation with no project file still
// runs; an explicit path that cannot be read is a FileUnavailable error.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		if env := os.Getenv("CPGK_CONFIG_PATH"); env != "" {
			configPath = env
		}
	}
	if configPath == "" {
		found, err := findConfigFile()
		if err != nil {
			return DefaultConfig(), nil
		}
		configPath = found
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: path is user-supplied or discovered, not attacker-controlled input
	if err != nil {
		return nil, kernelerr.NewFileUnavailable(configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, kernelerr.Wrap(kernelerr.InvariantViolation, fmt.Sprintf("config: invalid yaml in %s", configPath), err)
	}

	if cfg.Version != configVersion {
		return nil, kernelerr.NewSchemaVersionMismatch(configVersion, cfg.Version)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// SaveConfig writes cfg to configPath as YAML, creating the parent
// directory if necessary.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return kernelerr.Wrap(kernelerr.InvariantViolation, "config: marshal failed", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return kernelerr.NewFileUnavailable(filepath.Dir(configPath), err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return kernelerr.NewFileUnavailable(configPath, err)
	}
	return nil
}

// ConfigPath returns the path to the config file under dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		p := ConfigPath(dir)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// applyEnvOverrides lets environment variables override file-based
// configuration, the same precedence order the teacher applies before
// CLI flags get the final word.
func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("CPGK_SNAPSHOT_DIR"); dir != "" {
		cfg.Kernel.SnapshotDir = dir
	}
	if dir := os.Getenv("CPGK_DATA_DIR"); dir != "" {
		cfg.Kernel.DataDir = dir
	}
}
