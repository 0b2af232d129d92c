package config

import (
	"fmt"
	"net/url"
	"strings"
)

// InterviewTypes are the interview types the remote service understands.
var InterviewTypes = []string{"HR", "Technical", "Both"}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := validateURL("api.base_url", cfg.API.BaseURL, "http", "https"); err != nil {
		return nil, err
	}
	if cfg.API.TimeoutMS <= 0 {
		return nil, fmt.Errorf("api.timeout_ms must be > 0")
	}
	if cfg.API.Retries < 0 {
		return nil, fmt.Errorf("api.retries must be >= 0")
	}
	if cfg.API.RequireAuth && strings.TrimSpace(cfg.API.AuthToken) == "" {
		warnings = append(warnings, Warning{Message: "api.require_auth is set but no auth token is configured; sessions will be refused"})
	}

	if cfg.Interview.SettleDelayMS <= 0 {
		return nil, fmt.Errorf("interview.settle_delay_ms must be > 0")
	}
	if !validInterviewType(cfg.Interview.DefaultType) {
		return nil, fmt.Errorf("interview.default_type must be one of: %s", strings.Join(InterviewTypes, ", "))
	}

	if err := validateURL("asr.endpoint", cfg.ASR.Endpoint, "ws", "wss"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ASR.LanguageCode) == "" {
		return nil, fmt.Errorf("asr.language_code must not be empty")
	}
	if cfg.ASR.SampleRate != 16000 {
		return nil, fmt.Errorf("asr.sample_rate must be 16000")
	}
	if cfg.ASR.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("asr.dial_timeout_ms must be > 0")
	}

	if len(cfg.TTS.Command.Argv) == 0 {
		return nil, fmt.Errorf("tts.command must not be empty")
	}
	if cfg.TTS.Rate <= 0 {
		return nil, fmt.Errorf("tts.rate must be > 0")
	}
	if strings.TrimSpace(cfg.TTS.DefaultLanguage) == "" {
		warnings = append(warnings, Warning{Message: "tts.default_language is empty; falling back to the first available voice"})
	}

	switch strings.ToLower(cfg.Audio.EchoCancellation) {
	case "auto", "on", "off":
	default:
		return nil, fmt.Errorf("audio.echo_cancellation must be one of: auto, on, off")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Report.Copy && len(cfg.Report.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("report.clipboard_cmd must not be empty when report.copy=true")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validInterviewType(value string) bool {
	for _, t := range InterviewTypes {
		if value == t {
			return true
		}
	}
	return false
}

func validateURL(key, raw string, schemes ...string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL", key, strings.Join(schemes, "/"))
}
