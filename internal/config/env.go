package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverrides are the environment variables that take precedence over the file.
type envOverrides struct {
	APIBaseURL    string `env:"MOCKINTERVIEW_API_URL"`
	AuthToken     string `env:"MOCKINTERVIEW_AUTH_TOKEN"`
	ASREndpoint   string `env:"MOCKINTERVIEW_ASR_ENDPOINT"`
	LogLevel      string `env:"MOCKINTERVIEW_LOG_LEVEL"`
	SettleDelayMS int    `env:"MOCKINTERVIEW_SETTLE_DELAY_MS"`
}

// loadDotenv populates unset environment variables from path when it exists.
func loadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if overrides.APIBaseURL != "" {
		cfg.API.BaseURL = overrides.APIBaseURL
	}
	if overrides.AuthToken != "" {
		cfg.API.AuthToken = overrides.AuthToken
	}
	if overrides.ASREndpoint != "" {
		cfg.ASR.Endpoint = overrides.ASREndpoint
	}
	if overrides.LogLevel != "" {
		cfg.Log.Level = overrides.LogLevel
	}
	if overrides.SettleDelayMS != 0 {
		cfg.Interview.SettleDelayMS = overrides.SettleDelayMS
	}
	return nil
}
