// Package config resolves, parses, validates, and defaults mockinterview configuration.
package config

// Config is the fully materialized runtime configuration.
type Config struct {
	API       APIConfig
	Interview InterviewConfig
	ASR       ASRConfig
	TTS       TTSConfig
	Audio     AudioConfig
	Indicator IndicatorConfig
	Report    ReportConfig
	Metrics   MetricsConfig
	Log       LogConfig
	Debug     DebugConfig
}

// APIConfig points at the remote question and feedback service.
type APIConfig struct {
	BaseURL     string
	TimeoutMS   int
	Retries     int
	AuthToken   string
	RequireAuth bool
}

// InterviewConfig controls session pacing and request defaults.
type InterviewConfig struct {
	SettleDelayMS int
	DefaultType   string
}

// ASRConfig controls the streaming recognizer connection.
type ASRConfig struct {
	Endpoint      string
	LanguageCode  string
	SampleRate    int
	DialTimeoutMS int
}

// TTSConfig controls question announcement.
type TTSConfig struct {
	Command            CommandConfig
	PreferredLanguages []string
	DefaultLanguage    string
	Rate               int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input            string
	Fallback         string
	EchoCancellation string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	TextListening  string
	TextProcessing string
	TextError      string
	ErrorTimeoutMS int
}

// ReportConfig controls where rendered feedback goes after a session.
type ReportConfig struct {
	Dir       string
	Clipboard CommandConfig
	Copy      bool
}

// MetricsConfig controls the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string
}

// LogConfig controls the JSONL runtime log.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	EnableASRDump   bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
