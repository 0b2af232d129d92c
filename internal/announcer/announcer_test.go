package announcer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	voices   []Voice
	voiceErr error
	hold     bool

	voiceCalls atomic.Int32
	active     atomic.Int32
	maxActive  atomic.Int32

	mu     sync.Mutex
	spoken []string
	used   []Voice
}

func (f *fakeSynth) Voices(context.Context) ([]Voice, error) {
	f.voiceCalls.Add(1)
	return f.voices, f.voiceErr
}

func (f *fakeSynth) Say(ctx context.Context, voice Voice, text string, started func()) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxActive.Load()
		if n <= max || f.maxActive.CompareAndSwap(max, n) {
			break
		}
	}

	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.used = append(f.used, voice)
	f.mu.Unlock()

	started()
	if f.hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

type recordingHooks struct {
	started atomic.Int32
	ended   chan error
}

func newHooks() *recordingHooks {
	return &recordingHooks{ended: make(chan error, 1)}
}

func (h *recordingHooks) Started()        { h.started.Add(1) }
func (h *recordingHooks) Ended(err error) { h.ended <- err }

func (h *recordingHooks) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.ended:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("utterance did not end")
		return nil
	}
}

var englishVoices = []Voice{
	{ID: "de", Name: "German", Language: "de", Local: true},
	{ID: "en-us", Name: "English America", Language: "en-US", Local: true},
}

func TestSpeakSanitizesAndReportsLifecycle(t *testing.T) {
	synth := &fakeSynth{voices: englishVoices}
	a := New(synth, VoicePolicy{Preferred: []string{"en-IN", "en-US"}, Default: "en-US"}, zerolog.Nop())
	hooks := newHooks()

	require.NoError(t, a.Speak(testContext(t), "**What** is a `race` condition?", hooks))
	require.NoError(t, hooks.wait(t))
	require.Equal(t, int32(1), hooks.started.Load())
	require.False(t, a.Speaking())

	synth.mu.Lock()
	defer synth.mu.Unlock()
	require.Equal(t, []string{"What is a race condition?"}, synth.spoken)
	require.Equal(t, "en-us", synth.used[0].ID)
}

func TestSpeakCancelsPreviousUtterance(t *testing.T) {
	synth := &fakeSynth{voices: englishVoices, hold: true}
	a := New(synth, VoicePolicy{Default: "en-US"}, zerolog.Nop())

	first := newHooks()
	require.NoError(t, a.Speak(testContext(t), "first", first))
	require.Eventually(t, func() bool { return first.started.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, a.Speaking())

	second := newHooks()
	require.NoError(t, a.Speak(testContext(t), "second", second))
	require.ErrorIs(t, first.wait(t), context.Canceled)
	require.Eventually(t, func() bool { return second.started.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, a.Cancel())
	require.NoError(t, a.Cancel())
	require.ErrorIs(t, second.wait(t), context.Canceled)
	require.Equal(t, int32(1), synth.maxActive.Load())
	require.False(t, a.Speaking())
}

func TestSpeakWithoutVoicesSkips(t *testing.T) {
	synth := &fakeSynth{}
	a := New(synth, VoicePolicy{Default: "en-US"}, zerolog.Nop())
	hooks := newHooks()

	err := a.Speak(testContext(t), "hello", hooks)
	require.ErrorIs(t, err, ErrNoVoices)
	require.Equal(t, int32(0), hooks.started.Load())
	require.Empty(t, hooks.ended)
}

func TestLoadVoicesCaches(t *testing.T) {
	synth := &fakeSynth{voices: englishVoices}
	a := New(synth, VoicePolicy{}, zerolog.Nop())

	_, err := a.LoadVoices(testContext(t))
	require.NoError(t, err)
	_, err = a.LoadVoices(testContext(t))
	require.NoError(t, err)
	require.Equal(t, int32(1), synth.voiceCalls.Load())

	failing := New(&fakeSynth{voiceErr: errors.New("boom")}, VoicePolicy{}, zerolog.Nop())
	require.Error(t, failing.Speak(testContext(t), "hi", newHooks()))
}

func TestSelectVoice(t *testing.T) {
	policy := VoicePolicy{Preferred: []string{"en-IN", "en-US"}, Default: "en-US"}

	tests := []struct {
		name   string
		voices []Voice
		want   string
		ok     bool
	}{
		{
			name: "local preferred non-compact wins",
			voices: []Voice{
				{ID: "fr", Language: "fr-FR", Local: true},
				{ID: "compact", Name: "Rishi Compact", Language: "en-IN", Local: true},
				{ID: "rishi", Name: "Rishi", Language: "en-IN", Local: true},
			},
			want: "rishi", ok: true,
		},
		{
			name: "remote preferred falls back to default language",
			voices: []Voice{
				{ID: "fr", Language: "fr-FR", Local: true},
				{ID: "cloud", Name: "Cloud", Language: "en-US", Local: false},
			},
			want: "cloud", ok: true,
		},
		{
			name:   "first voice as last resort",
			voices: []Voice{{ID: "fr", Language: "fr-FR"}, {ID: "de", Language: "de"}},
			want:   "fr", ok: true,
		},
		{name: "no voices", voices: nil, ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SelectVoice(tc.voices, policy)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got.ID)
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "**Bold** and *italic*", want: "Bold and italic"},
		{in: "_under_ ~strike~", want: "under strike"},
		{in: "## Heading\n- item one", want: "Heading\nitem one"},
		{in: "Explain ```code``` please", want: "Explain  please"},
		{in: "What's 2+2? (approx.)", want: "What's ? approx."},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Sanitize(tc.in), tc.in)
	}
}
