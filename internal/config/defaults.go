package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:5000",
			TimeoutMS: 60000,
			Retries:   2,
		},
		Interview: InterviewConfig{
			SettleDelayMS: 4000,
			DefaultType:   "Technical",
		},
		ASR: ASRConfig{
			Endpoint:      "ws://127.0.0.1:2700",
			LanguageCode:  "en-US",
			SampleRate:    16000,
			DialTimeoutMS: 3000,
		},
		TTS: TTSConfig{
			Command:            mustCommand("espeak-ng"),
			PreferredLanguages: []string{"en-IN", "en-US"},
			DefaultLanguage:    "en-US",
			Rate:               165,
		},
		Audio: AudioConfig{
			Input:            "default",
			Fallback:         "default",
			EchoCancellation: "auto",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "mockinterview",
			SoundEnable:    true,
			ErrorTimeoutMS: 2400,
		},
		Report: ReportConfig{
			Clipboard: mustCommand("wl-copy --trim-newline"),
		},
		Log: LogConfig{Level: "info"},
	}
}
