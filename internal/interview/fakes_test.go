package interview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rbright/mockinterview/internal/announcer"
	"github.com/rbright/mockinterview/internal/coach"
	"github.com/rbright/mockinterview/internal/fsm"
	"github.com/rbright/mockinterview/internal/media"
	"github.com/rbright/mockinterview/internal/recognizer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// audioTracker records any instant where recognition and synthesis overlap.
type audioTracker struct {
	mu         sync.Mutex
	listening  bool
	speaking   bool
	violations int
}

func (a *audioTracker) set(listening, speaking *bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if listening != nil {
		a.listening = *listening
	}
	if speaking != nil {
		a.speaking = *speaking
	}
	if a.listening && a.speaking {
		a.violations++
	}
}

func (a *audioTracker) snapshot() (listening, speaking bool, violations int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening, a.speaking, a.violations
}

func ptr(b bool) *bool { return &b }

type fakeMedia struct {
	probeErr   error
	acquireErr error
	gate       chan struct{}

	probes   atomic.Int32
	acquires atomic.Int32
	releases atomic.Int32
	live     atomic.Bool
}

func (m *fakeMedia) Probe(context.Context) (media.Constraints, error) {
	m.probes.Add(1)
	return media.Constraints{SampleRate: 16000, EchoCancellation: true}, m.probeErr
}

func (m *fakeMedia) Acquire(ctx context.Context, _ media.Constraints) error {
	m.acquires.Add(1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.acquireErr != nil {
		return m.acquireErr
	}
	m.live.Store(true)
	return nil
}

func (m *fakeMedia) Release() error {
	m.releases.Add(1)
	m.live.Store(false)
	return nil
}

type fakeRecognizer struct {
	tracker  *audioTracker
	startErr error
	// gate holds Start until closed, like a slow dial.
	gate    chan struct{}
	entered atomic.Int32

	mu       sync.Mutex
	listener recognizer.Listener
	starts   atomic.Int32
	stops    atomic.Int32
}

func (r *fakeRecognizer) Start(ctx context.Context, l recognizer.Listener) error {
	r.entered.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.startErr != nil {
		return r.startErr
	}
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
	r.tracker.set(ptr(true), nil)
	r.starts.Add(1)
	return nil
}

func (r *fakeRecognizer) Stop(context.Context) error {
	r.stops.Add(1)
	r.tracker.set(ptr(false), nil)
	return nil
}

func (r *fakeRecognizer) current() recognizer.Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener
}

func (r *fakeRecognizer) final(text string)   { r.current().Final(text) }
func (r *fakeRecognizer) interim(text string) { r.current().Interim(text) }
func (r *fakeRecognizer) fail(err error)      { r.current().Failed(err) }

// fakeAnnouncer finishes every utterance right away on its own goroutine.
type fakeAnnouncer struct {
	tracker  *audioTracker
	speakErr error

	mu      sync.Mutex
	spoken  []string
	cancels atomic.Int32
	voices  atomic.Int32
}

func (a *fakeAnnouncer) LoadVoices(context.Context) ([]announcer.Voice, error) {
	a.voices.Add(1)
	return []announcer.Voice{{ID: "en-us", Language: "en-US", Local: true}}, nil
}

func (a *fakeAnnouncer) Speak(_ context.Context, text string, hooks announcer.Hooks) error {
	if a.speakErr != nil {
		return a.speakErr
	}
	a.mu.Lock()
	a.spoken = append(a.spoken, text)
	a.mu.Unlock()

	a.tracker.set(nil, ptr(true))
	go func() {
		hooks.Started()
		a.tracker.set(nil, ptr(false))
		hooks.Ended(nil)
	}()
	return nil
}

func (a *fakeAnnouncer) Cancel() error {
	a.cancels.Add(1)
	a.tracker.set(nil, ptr(false))
	return nil
}

func (a *fakeAnnouncer) said() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.spoken...)
}

type fakeService struct {
	questions    []string
	questionsErr error
	feedback     string
	feedbackErr  error

	mu        sync.Mutex
	request   coach.InterviewRequest
	payload   map[string]string
	conducts  atomic.Int32
	feedbacks atomic.Int32
}

func (s *fakeService) ConductInterview(_ context.Context, req coach.InterviewRequest) ([]string, error) {
	s.conducts.Add(1)
	s.mu.Lock()
	s.request = req
	s.mu.Unlock()
	return s.questions, s.questionsErr
}

func (s *fakeService) GetFeedback(_ context.Context, answers map[string]string) (string, error) {
	s.feedbacks.Add(1)
	s.mu.Lock()
	s.payload = answers
	s.mu.Unlock()
	return s.feedback, s.feedbackErr
}

func (s *fakeService) requested() coach.InterviewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

func (s *fakeService) sent() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}

type fakeIndicator struct {
	questions atomic.Int32
	listening atomic.Int32
	errors    atomic.Int32
	completes atomic.Int32
	cancels   atomic.Int32
	hides     atomic.Int32
}

func (i *fakeIndicator) ShowQuestion(context.Context, int, int, string) { i.questions.Add(1) }
func (i *fakeIndicator) ShowListening(context.Context)                  { i.listening.Add(1) }
func (i *fakeIndicator) ShowProcessing(context.Context)                 {}
func (i *fakeIndicator) ShowError(context.Context, string)              { i.errors.Add(1) }
func (i *fakeIndicator) CueComplete(context.Context)                    { i.completes.Add(1) }
func (i *fakeIndicator) CueCancel(context.Context)                      { i.cancels.Add(1) }
func (i *fakeIndicator) Hide(context.Context)                           { i.hides.Add(1) }

type fakeMetrics struct {
	asked     atomic.Int32
	advances  atomic.Int32
	recFails  atomic.Int32
	submitted atomic.Int32
	finished  atomic.Int32
}

func (m *fakeMetrics) QuestionAsked()         { m.asked.Add(1) }
func (m *fakeMetrics) Advanced(string)        { m.advances.Add(1) }
func (m *fakeMetrics) RecognizerFailed()      { m.recFails.Add(1) }
func (m *fakeMetrics) AnswersSubmitted(n int) { m.submitted.Add(int32(n)) }
func (m *fakeMetrics) SessionFinished(string) { m.finished.Add(1) }

type harness struct {
	ctrl      *Controller
	clock     *clock.Mock
	tracker   *audioTracker
	media     *fakeMedia
	rec       *fakeRecognizer
	announcer *fakeAnnouncer
	service   *fakeService
	indicator *fakeIndicator
	metrics   *fakeMetrics
	resume    string

	cancel context.CancelFunc
	done   chan error
}

func newHarness(t *testing.T, service *fakeService, opts ...func(*harness)) *harness {
	t.Helper()

	tracker := &audioTracker{}
	h := &harness{
		clock:     clock.NewMock(),
		tracker:   tracker,
		media:     &fakeMedia{},
		rec:       &fakeRecognizer{tracker: tracker},
		announcer: &fakeAnnouncer{tracker: tracker},
		service:   service,
		indicator: &fakeIndicator{},
		metrics:   &fakeMetrics{},
		resume:    writeResume(t),
		done:      make(chan error, 1),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.ctrl = New(Deps{
		Media:      h.media,
		Recognizer: h.rec,
		Announcer:  h.announcer,
		Service:    h.service,
		Indicator:  h.indicator,
		Metrics:    h.metrics,
		Clock:      h.clock,
		Logger:     zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.ctrl.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("controller loop did not exit")
		}
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background(), StartRequest{
		ResumePath:    h.resume,
		JobRole:       "Backend Engineer",
		InterviewType: "Technical",
	}))
}

// waitListening blocks until the recognizer has been started n times and
// owns the microphone.
func (h *harness) waitListening(t *testing.T, n int32) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.rec.starts.Load() == n && h.ctrl.Snapshot().Mic == MicRecognizer
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *harness) waitAnswer(t *testing.T, index int, text string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().Answers[index] == text
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *harness) waitState(t *testing.T, state fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.ctrl.State() == state
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *harness) outcome(t *testing.T) Outcome {
	t.Helper()
	select {
	case out := <-h.ctrl.Outcomes():
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome published")
		return Outcome{}
	}
}

func writeResume(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 resume"), 0o600))
	return path
}

var errBoom = errors.New("boom")
