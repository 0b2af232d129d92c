// Package doctor runs readiness diagnostics for config, the interview service,
// speech recognition, speech synthesis, and audio devices.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/mockinterview/internal/announcer"
	"github.com/rbright/mockinterview/internal/coach"
	"github.com/rbright/mockinterview/internal/config"
	"github.com/rbright/mockinterview/internal/hypr"
	"github.com/rbright/mockinterview/internal/media"
	"github.com/rbright/mockinterview/internal/pipeline"
	"github.com/rbright/mockinterview/internal/recognizer"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

const checkTimeout = 5 * time.Second

type probe func(ctx context.Context) Check

// Run executes every check concurrently and reports them in a stable order.
func Run(ctx context.Context, loaded config.Loaded, backend media.Backend, logger zerolog.Logger) Report {
	cfg := loaded.Config
	probes := []probe{
		func(context.Context) Check { return checkConfig(loaded) },
		func(ctx context.Context) Check { return checkService(ctx, cfg, logger) },
		func(ctx context.Context) Check { return checkRecognizer(ctx, cfg, logger) },
		func(ctx context.Context) Check { return checkVoices(ctx, cfg) },
		func(ctx context.Context) Check { return checkInput(ctx, cfg, backend, logger) },
		func(ctx context.Context) Check { return checkOutputs(ctx, cfg, backend, logger) },
	}
	if cfg.Indicator.Enable && strings.EqualFold(cfg.Indicator.Backend, "hypr") {
		probes = append(probes, checkHyprland)
	}
	if cfg.Report.Copy {
		probes = append(probes, func(context.Context) Check {
			return checkCommand(cfg.Report.Clipboard.Argv, "report.clipboard")
		})
	}

	checks := make([]Check, len(probes))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, p := range probes {
		i, p := i, p
		group.Go(func() error {
			checkCtx, cancel := context.WithTimeout(groupCtx, checkTimeout)
			defer cancel()
			checks[i] = p(checkCtx)
			return nil
		})
	}
	_ = group.Wait()
	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func checkService(ctx context.Context, cfg config.Config, logger zerolog.Logger) Check {
	client := coach.New(coach.Config{BaseURL: cfg.API.BaseURL}, logger, nil)
	if err := client.Ping(ctx); err != nil {
		return Check{Name: "api", Pass: false, Message: fmt.Sprintf("%s unreachable: %v", cfg.API.BaseURL, err)}
	}
	message := fmt.Sprintf("reachable at %s", cfg.API.BaseURL)
	if cfg.API.RequireAuth && strings.TrimSpace(cfg.API.AuthToken) == "" {
		return Check{Name: "api", Pass: false, Message: message + " but api.auth_token is empty"}
	}
	return Check{Name: "api", Pass: true, Message: message}
}

func checkRecognizer(ctx context.Context, cfg config.Config, logger zerolog.Logger) Check {
	client := recognizer.New(pipeline.Recognizer(cfg), logger)
	err := client.Probe(ctx)
	switch {
	case errors.Is(err, recognizer.ErrUnsupported):
		return Check{Name: "asr", Pass: false, Message: "asr.endpoint is empty"}
	case err != nil:
		return Check{Name: "asr", Pass: false, Message: fmt.Sprintf("%s: %v", cfg.ASR.Endpoint, err)}
	}
	return Check{Name: "asr", Pass: true, Message: fmt.Sprintf("accepting streams at %s", cfg.ASR.Endpoint)}
}

func checkVoices(ctx context.Context, cfg config.Config) Check {
	voices, err := pipeline.Synthesizer(cfg).Voices(ctx)
	if err != nil {
		return Check{Name: "tts", Pass: false, Message: err.Error()}
	}
	voice, ok := announcer.SelectVoice(voices, pipeline.Voices(cfg))
	if !ok {
		return Check{Name: "tts", Pass: false, Message: "no voices installed"}
	}
	return Check{Name: "tts", Pass: true, Message: fmt.Sprintf("%d voices; using %s (%s)", len(voices), voice.ID, voice.Language)}
}

func checkInput(ctx context.Context, cfg config.Config, backend media.Backend, logger zerolog.Logger) Check {
	manager := media.NewManager(backend, mediaOptions(cfg), logger)
	selection, err := manager.Select(ctx)
	if err != nil {
		return Check{Name: "audio.input", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", pipeline.DescribeDevice(selection.Device))
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.input", Pass: true, Message: message}
}

func checkOutputs(ctx context.Context, cfg config.Config, backend media.Backend, logger zerolog.Logger) Check {
	manager := media.NewManager(backend, mediaOptions(cfg), logger)
	constraints, err := manager.Probe(ctx)
	if err != nil {
		return Check{Name: "audio.output", Pass: false, Message: err.Error()}
	}
	echo := "off"
	if constraints.EchoCancellation {
		echo = "on"
	}
	return Check{Name: "audio.output", Pass: true, Message: fmt.Sprintf("echo cancellation %s (audio.echo_cancellation=%s)", echo, cfg.Audio.EchoCancellation)}
}

func checkHyprland(ctx context.Context) Check {
	version, err := hypr.Version(ctx)
	if err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprland", Pass: true, Message: version}
}

func mediaOptions(cfg config.Config) media.Options {
	return media.Options{
		Input:            cfg.Audio.Input,
		Fallback:         cfg.Audio.Fallback,
		EchoCancellation: cfg.Audio.EchoCancellation,
		SampleRate:       cfg.ASR.SampleRate,
	}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	check := checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
	check.Name = name
	return check
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
