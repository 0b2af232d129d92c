package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	API       *jsoncAPI       `json:"api"`
	Interview *jsoncInterview `json:"interview"`
	ASR       *jsoncASR       `json:"asr"`
	TTS       *jsoncTTS       `json:"tts"`
	Audio     *jsoncAudio     `json:"audio"`
	Indicator *jsoncIndicator `json:"indicator"`
	Report    *jsoncReport    `json:"report"`
	Metrics   *jsoncMetrics   `json:"metrics"`
	Log       *jsoncLog       `json:"log"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncAPI struct {
	BaseURL     *string `json:"base_url"`
	TimeoutMS   *int    `json:"timeout_ms"`
	Retries     *int    `json:"retries"`
	AuthToken   *string `json:"auth_token"`
	RequireAuth *bool   `json:"require_auth"`
}

type jsoncInterview struct {
	SettleDelayMS *int    `json:"settle_delay_ms"`
	DefaultType   *string `json:"default_type"`
}

type jsoncASR struct {
	Endpoint      *string `json:"endpoint"`
	LanguageCode  *string `json:"language_code"`
	SampleRate    *int    `json:"sample_rate"`
	DialTimeoutMS *int    `json:"dial_timeout_ms"`
}

type jsoncTTS struct {
	Command            *string          `json:"command"`
	PreferredLanguages *jsoncStringList `json:"preferred_languages"`
	DefaultLanguage    *string          `json:"default_language"`
	Rate               *int             `json:"rate"`
}

type jsoncAudio struct {
	Input            *string `json:"input"`
	Fallback         *string `json:"fallback"`
	EchoCancellation *string `json:"echo_cancellation"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	TextListening  *string `json:"text_listening"`
	TextProcessing *string `json:"text_processing"`
	TextError      *string `json:"text_error"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncReport struct {
	Dir          *string `json:"dir"`
	ClipboardCmd *string `json:"clipboard_cmd"`
	Copy         *bool   `json:"copy"`
}

type jsoncMetrics struct {
	Textfile *string `json:"textfile"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
	ASRDump   *bool `json:"asr_dump"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if p := payload.API; p != nil {
		setString(&cfg.API.BaseURL, p.BaseURL)
		setInt(&cfg.API.TimeoutMS, p.TimeoutMS)
		setInt(&cfg.API.Retries, p.Retries)
		setString(&cfg.API.AuthToken, p.AuthToken)
		setBool(&cfg.API.RequireAuth, p.RequireAuth)
		if p.AuthToken != nil && *p.AuthToken != "" {
			warnings = append(warnings, Warning{Message: "api.auth_token is stored in plain text; prefer MOCKINTERVIEW_AUTH_TOKEN"})
		}
	}

	if p := payload.Interview; p != nil {
		setInt(&cfg.Interview.SettleDelayMS, p.SettleDelayMS)
		setString(&cfg.Interview.DefaultType, p.DefaultType)
	}

	if p := payload.ASR; p != nil {
		setString(&cfg.ASR.Endpoint, p.Endpoint)
		setString(&cfg.ASR.LanguageCode, p.LanguageCode)
		setInt(&cfg.ASR.SampleRate, p.SampleRate)
		setInt(&cfg.ASR.DialTimeoutMS, p.DialTimeoutMS)
	}

	if p := payload.TTS; p != nil {
		if p.Command != nil {
			cmd, err := parseCommand(*p.Command)
			if err != nil {
				return nil, fmt.Errorf("invalid tts.command: %w", err)
			}
			cfg.TTS.Command = cmd
		}
		if p.PreferredLanguages != nil {
			cfg.TTS.PreferredLanguages = append([]string(nil), (*p.PreferredLanguages)...)
		}
		setString(&cfg.TTS.DefaultLanguage, p.DefaultLanguage)
		setInt(&cfg.TTS.Rate, p.Rate)
	}

	if p := payload.Audio; p != nil {
		setString(&cfg.Audio.Input, p.Input)
		setString(&cfg.Audio.Fallback, p.Fallback)
		setString(&cfg.Audio.EchoCancellation, p.EchoCancellation)
	}

	if p := payload.Indicator; p != nil {
		setBool(&cfg.Indicator.Enable, p.Enable)
		setString(&cfg.Indicator.Backend, p.Backend)
		setString(&cfg.Indicator.DesktopAppName, p.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, p.SoundEnable)
		setString(&cfg.Indicator.TextListening, p.TextListening)
		setString(&cfg.Indicator.TextProcessing, p.TextProcessing)
		setString(&cfg.Indicator.TextError, p.TextError)
		setInt(&cfg.Indicator.ErrorTimeoutMS, p.ErrorTimeoutMS)
	}

	if p := payload.Report; p != nil {
		setString(&cfg.Report.Dir, p.Dir)
		setBool(&cfg.Report.Copy, p.Copy)
		if p.ClipboardCmd != nil {
			cmd, err := parseCommand(*p.ClipboardCmd)
			if err != nil {
				return nil, fmt.Errorf("invalid report.clipboard_cmd: %w", err)
			}
			cfg.Report.Clipboard = cmd
		}
	}

	if payload.Metrics != nil {
		setString(&cfg.Metrics.Textfile, payload.Metrics.Textfile)
	}
	if payload.Log != nil {
		setString(&cfg.Log.Level, payload.Log.Level)
	}

	if p := payload.Debug; p != nil {
		setBool(&cfg.Debug.EnableAudioDump, p.AudioDump)
		setBool(&cfg.Debug.EnableASRDump, p.ASRDump)
	}

	return warnings, nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func setInt(dst *int, value *int) {
	if value != nil {
		*dst = *value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
