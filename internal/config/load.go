package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
//
// Environment overrides (optionally seeded from a .env file next to the
// config file) are applied last, and validation warnings describe the
// overridden result.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	if err := loadDotenv(filepath.Join(filepath.Dir(resolvedPath), ".env")); err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := decode(string(content), loaded.Config)
		if err == nil {
			_, err = Validate(cfg)
		}
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	}

	if err := applyEnv(&loaded.Config); err != nil {
		return Loaded{}, err
	}
	validated, err := Validate(loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("environment override: %w", err)
	}
	loaded.Warnings = append(loaded.Warnings, validated...)
	return loaded, nil
}
