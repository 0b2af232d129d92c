package doctor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rbright/mockinterview/internal/config"
	"github.com/rbright/mockinterview/internal/media"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	sources []media.Device
	sinks   []media.OutputDevice
	err     error
}

func (b fakeBackend) Sources(context.Context) ([]media.Device, error) { return b.sources, b.err }

func (b fakeBackend) Sinks(context.Context) ([]media.OutputDevice, error) { return b.sinks, b.err }

func (fakeBackend) Open(context.Context, media.Device, int, media.Sink) (media.Stream, error) {
	return nil, errors.New("capture is not used by doctor")
}

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "report.clipboard")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-bin")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-bin", "--arg"}, "report.clipboard")
	require.True(t, check.Pass)
	require.Equal(t, "report.clipboard", check.Name)
	require.Contains(t, check.Message, "report.clipboard command is available")
}

func TestRunAllChecksPass(t *testing.T) {
	cfg := healthyConfig(t)
	backend := fakeBackend{
		sources: []media.Device{{ID: "alsa_input.usb", Description: "USB Mic", Available: true, Default: true}},
		sinks:   []media.OutputDevice{{ID: "alsa_output.usb", Description: "USB Headset", Default: true}},
	}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true}, backend, zerolog.Nop())
	require.True(t, report.OK(), report.String())

	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{"config", "api", "asr", "tts", "audio.input", "audio.output"}, names)

	text := report.String()
	require.Contains(t, text, `config: loaded "/tmp/config.jsonc"`)
	require.Contains(t, text, "using en-us (en-US)")
	require.Contains(t, text, "selected USB Mic (alsa_input.usb)")
	require.Contains(t, text, "echo cancellation off")
}

func TestRunReportsFailures(t *testing.T) {
	cfg := healthyConfig(t)
	cfg.ASR.Endpoint = ""
	cfg.API.RequireAuth = true
	cfg.API.AuthToken = ""
	cfg.TTS.Command = config.CommandConfig{Raw: "definitely-not-espeak", Argv: []string{"definitely-not-espeak"}}
	cfg.Report.Copy = true
	cfg.Report.Clipboard = config.CommandConfig{}
	backend := fakeBackend{err: media.ErrUnavailable}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/missing.jsonc", Config: cfg}, backend, zerolog.Nop())
	require.False(t, report.OK())

	byName := map[string]Check{}
	for _, check := range report.Checks {
		byName[check.Name] = check
	}
	require.True(t, byName["config"].Pass)
	require.Contains(t, byName["config"].Message, "using defaults")
	require.False(t, byName["api"].Pass)
	require.Contains(t, byName["api"].Message, "auth_token is empty")
	require.False(t, byName["asr"].Pass)
	require.Equal(t, "asr.endpoint is empty", byName["asr"].Message)
	require.False(t, byName["tts"].Pass)
	require.False(t, byName["audio.input"].Pass)
	require.Contains(t, byName["audio.input"].Message, "audio server unavailable")
	require.False(t, byName["audio.output"].Pass)
	require.False(t, byName["report.clipboard"].Pass)
}

func TestRunChecksHyprlandWhenIndicatorUsesIt(t *testing.T) {
	cfg := healthyConfig(t)
	cfg.Indicator.Enable = true
	cfg.Indicator.Backend = "hypr"
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	backend := fakeBackend{
		sources: []media.Device{{ID: "mic", Available: true, Default: true}},
	}

	report := Run(context.Background(), config.Loaded{Config: cfg, Exists: true}, backend, zerolog.Nop())
	last := report.Checks[len(report.Checks)-1]
	require.Equal(t, "hyprland", last.Name)
	require.False(t, last.Pass)
}

func healthyConfig(t *testing.T) config.Config {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(api.Close)

	upgrader := websocket.Upgrader{}
	asr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(asr.Close)

	dir := t.TempDir()
	espeak := filepath.Join(dir, "fake-espeak")
	script := "#!/bin/sh\ncat <<'EOF'\n" +
		"Pty Language       Age/Gender VoiceName          File        Other Languages\n" +
		" 5  en-us           --/M      English_(America)  gmw/en-US   (en 10)\n" +
		"EOF\n"
	require.NoError(t, os.WriteFile(espeak, []byte(script), 0o755))

	cfg := config.Default()
	cfg.API.BaseURL = api.URL
	cfg.API.RequireAuth = false
	cfg.ASR.Endpoint = "ws://" + strings.TrimPrefix(asr.URL, "http://")
	cfg.TTS.Command = config.CommandConfig{Raw: espeak, Argv: []string{espeak}}
	cfg.Indicator.Enable = false
	cfg.Report.Copy = false
	cfg.Audio.EchoCancellation = "auto"
	return cfg
}
