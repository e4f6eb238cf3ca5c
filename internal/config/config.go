// Package config loads daemon settings from a YAML file. A missing file is
// not an error; every field has a usable default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.yaml.in/yaml/v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// NotifyConfig names an external command that delivers desktop notifications.
// The command is invoked with Args followed by the title and body. Empty
// command means notifications are written to the log instead.
type NotifyConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "linkflow.db"},
		Logging:  LoggingConfig{Level: "info", Console: true},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Database.Path == "" {
		return Config{}, fmt.Errorf("config %s: database.path must not be empty", path)
	}
	return cfg, nil
}
