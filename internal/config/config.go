// Package config loads application configuration from an optional YAML file
// with environment-variable overrides on top.
//
// PRECEDENCE (lowest to highest):
//  1. Built-in defaults — the server starts with no config file at all
//  2. YAML file (CONFIG_PATH, default "config.yaml" if present)
//  3. Environment variables (PORT, DB_PATH, JWT_SECRET, LOG_LEVEL)
//
// Keeping env vars on top means a containerised deployment can override a
// baked-in config file without rebuilding the image.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds the SQLite file location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level string to a slog.Level.
// Unknown values fall back to Info rather than erroring — a typo in the
// log level should not keep the server from starting.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaults returns the built-in baseline configuration.
func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, Host: ""},
		Database: DatabaseConfig{Path: "data/returo.db"},
		// Development fallback. Deployments must set JWT_SECRET, e.g.
		//   JWT_SECRET=$(openssl rand -hex 32)
		JWT: JWTConfig{Secret: "dev-only-insecure-secret"},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from the YAML file at path (skipped if the file
// does not exist), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file is fine — defaults plus env carry the day.
		case err != nil:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}
