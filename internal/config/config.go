// Package config resolves runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Config carries the resolved settings for one application run.
type Config struct {
	// TemplateDir is the read-only library of assessment PDF templates.
	TemplateDir string
	// DataDir holds application state such as the operation log database.
	DataDir string
}

// Load resolves configuration from the environment, falling back to a
// "files" directory next to the working directory for templates and the
// user cache dir for application data.
func Load() (Config, error) {
	cfg := Config{
		TemplateDir: GetEnv("HOSPITALPDF_TEMPLATE_DIR", "files"),
		DataDir:     GetEnv("HOSPITALPDF_DATA_DIR", ""),
	}

	if cfg.DataDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to resolve user cache dir: %w", err)
		}
		cfg.DataDir = filepath.Join(base, "hospitalpdf")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("failed to create data dir %s: %w", cfg.DataDir, err)
	}
	return cfg, nil
}

// OperationLogPath returns the location of the operation log database.
func (c Config) OperationLogPath() string {
	return filepath.Join(c.DataDir, "operations.db")
}
