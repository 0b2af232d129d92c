// Package announcer speaks interview questions through a speech synthesizer,
// one utterance at a time.
package announcer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoVoices means the synthesizer reported no voices at all.
var ErrNoVoices = errors.New("no suitable voices found")

// Hooks observe one utterance.
type Hooks interface {
	Started()
	Ended(err error)
}

// Synthesizer produces speech.
type Synthesizer interface {
	Voices(ctx context.Context) ([]Voice, error)
	Say(ctx context.Context, voice Voice, text string, started func()) error
}

// Announcer plays at most one utterance at a time.
type Announcer struct {
	synth  Synthesizer
	policy VoicePolicy
	logger zerolog.Logger

	voicesMu sync.Mutex
	voices   []Voice
	loaded   bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	speaking bool
}

// New builds an Announcer over synth.
func New(synth Synthesizer, policy VoicePolicy, logger zerolog.Logger) *Announcer {
	return &Announcer{
		synth:  synth,
		policy: policy,
		logger: logger.With().Str("component", "announcer").Logger(),
	}
}

// LoadVoices fetches and caches the voice list.
func (a *Announcer) LoadVoices(ctx context.Context) ([]Voice, error) {
	a.voicesMu.Lock()
	defer a.voicesMu.Unlock()
	if a.loaded {
		return a.voices, nil
	}
	voices, err := a.synth.Voices(ctx)
	if err != nil {
		return nil, err
	}
	a.voices = voices
	a.loaded = true
	return voices, nil
}

// Speak cancels any current utterance and starts speaking text. It returns
// once playback has been scheduled; hooks report progress.
func (a *Announcer) Speak(ctx context.Context, text string, hooks Hooks) error {
	if err := a.Cancel(); err != nil {
		return err
	}

	voices, err := a.LoadVoices(ctx)
	if err != nil {
		return fmt.Errorf("load voices: %w", err)
	}
	voice, ok := SelectVoice(voices, a.policy)
	if !ok {
		a.logger.Warn().Msg("No suitable voices found.")
		return ErrNoVoices
	}

	clean := Sanitize(text)
	uctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.speaking = true
	a.mu.Unlock()

	a.logger.Debug().Str("voice", voice.ID).Int("chars", len(clean)).Msg("speaking")

	go func() {
		err := a.synth.Say(uctx, voice, clean, hooks.Started)
		if uctx.Err() != nil {
			err = context.Canceled
		}
		cancel()

		a.mu.Lock()
		if a.done == done {
			a.cancel = nil
			a.done = nil
			a.speaking = false
		}
		a.mu.Unlock()
		close(done)

		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("speech synthesis failed")
		}
		hooks.Ended(err)
	}()
	return nil
}

// Cancel stops the current utterance and waits for the synthesizer to exit.
func (a *Announcer) Cancel() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.done = nil
	a.speaking = false
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Speaking reports whether an utterance is playing.
func (a *Announcer) Speaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaking
}
