// Package pipeline assembles the audio path of an interview: microphone
// capture feeding the speech recognizer, the question announcer, and the
// optional debug dumps.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rbright/mockinterview/internal/announcer"
	"github.com/rbright/mockinterview/internal/config"
	"github.com/rbright/mockinterview/internal/media"
	"github.com/rbright/mockinterview/internal/recognizer"
	"github.com/rs/zerolog"
)

// Pipeline owns the capture, recognition and announcement engines for one
// process run.
type Pipeline struct {
	Media      *media.Manager
	Recognizer *recognizer.Client
	Announcer  *announcer.Announcer

	logger  zerolog.Logger
	closers []io.Closer
}

// Build wires engines from cfg over the given audio backend.
func Build(cfg config.Config, backend media.Backend, logger zerolog.Logger) (*Pipeline, error) {
	p := &Pipeline{logger: logger.With().Str("component", "pipeline").Logger()}

	recCfg := Recognizer(cfg)
	if cfg.Debug.EnableASRDump {
		file, err := createDebugFile("asr", "jsonl")
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, file)
		recCfg.Dump = file
	}
	p.Recognizer = recognizer.New(recCfg, logger)

	p.Media = media.NewManager(backend, media.Options{
		Input:            cfg.Audio.Input,
		Fallback:         cfg.Audio.Fallback,
		EchoCancellation: cfg.Audio.EchoCancellation,
		SampleRate:       cfg.ASR.SampleRate,
	}, logger)

	var sink media.Sink = p.Recognizer
	if cfg.Debug.EnableAudioDump {
		file, err := createDebugFile("audio", "wav")
		if err != nil {
			_ = p.closeDumps()
			return nil, err
		}
		wav := media.NewWAVRecorder(file, cfg.ASR.SampleRate)
		p.closers = append(p.closers, wav)
		sink = media.Tee(p.Recognizer, wav)
	}
	p.Media.Bind(sink)

	p.Announcer = announcer.New(Synthesizer(cfg), Voices(cfg), logger)
	return p, nil
}

// Recognizer maps config onto recognizer settings.
func Recognizer(cfg config.Config) recognizer.Config {
	return recognizer.Config{
		Endpoint:     cfg.ASR.Endpoint,
		LanguageCode: cfg.ASR.LanguageCode,
		SampleRate:   cfg.ASR.SampleRate,
		DialTimeout:  time.Duration(cfg.ASR.DialTimeoutMS) * time.Millisecond,
	}
}

// Synthesizer maps config onto the speech synthesizer command.
func Synthesizer(cfg config.Config) announcer.Espeak {
	return announcer.Espeak{Argv: cfg.TTS.Command.Argv, Rate: cfg.TTS.Rate}
}

// Voices maps config onto the voice selection policy.
func Voices(cfg config.Config) announcer.VoicePolicy {
	return announcer.VoicePolicy{
		Preferred: cfg.TTS.PreferredLanguages,
		Default:   cfg.TTS.DefaultLanguage,
	}
}

// Close stops every engine and flushes debug dumps.
func (p *Pipeline) Close() error {
	var result *multierror.Error
	if err := p.Announcer.Cancel(); err != nil {
		result = multierror.Append(result, fmt.Errorf("cancel announcement: %w", err))
	}
	if err := p.Recognizer.Stop(context.Background()); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop recognizer: %w", err))
	}
	if err := p.Media.Release(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := p.closeDumps(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (p *Pipeline) closeDumps() error {
	var result *multierror.Error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close debug dump: %w", err))
		}
	}
	p.closers = nil
	return result.ErrorOrNil()
}

// DescribeDevice formats device metadata for logs and listings.
func DescribeDevice(device media.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

// createDebugFile creates a timestamped artifact under the state debug dir.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}
