// Package interview runs one voice mock interview: questions are fetched,
// spoken, answered by speech, and the answers are sent off for feedback.
package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"github.com/rbright/mockinterview/internal/coach"
	"github.com/rbright/mockinterview/internal/feedback"
	"github.com/rbright/mockinterview/internal/fsm"
	"github.com/rbright/mockinterview/internal/media"
	"github.com/rbright/mockinterview/internal/recognizer"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultSettleDelay is the quiet period after a final transcript before the
// next question is asked.
const DefaultSettleDelay = 4 * time.Second

// User-facing messages.
const (
	MessageQuestionsFailed = "Failed to fetch interview question. Please try again."
	MessageNoQuestions     = "No interview questions were returned. Please try again."
	MessageFeedbackFailed  = "Failed to end interview and retrieve feedback. Please try again."
	MessageRecognizer      = "Speech recognition error. Please try again."
	MessageUnsupported     = "Speech recognition is not supported on this system."
	MessageMedia           = "Unable to access the microphone. Check the input device and try again."
)

// Advance reasons reported to Metrics.
const (
	ReasonSettle   = "settle"
	ReasonUserStop = "user_stop"
)

// Mic names who may use audio right now.
type Mic string

const (
	MicNone       Mic = "none"
	MicRecognizer Mic = "recognizer"
	MicAnnouncer  Mic = "announcer"
)

// Outcome is published once per session when it reaches showing_feedback or
// error.
type Outcome struct {
	State     fsm.State
	SessionID string
	JobRole   string
	Type      string
	Questions []string
	Answers   map[string]string
	Report    feedback.Report
	Message   string
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	State     fsm.State
	SessionID string
	Question  string
	Index     int
	Total     int
	Answered  int
	Answers   map[int]string
	Buffer    string
	Message   string
	Mic       Mic
}

// Deps are the collaborators of a Controller. Media, Recognizer, Announcer
// and Service are required.
type Deps struct {
	Media      Media
	Recognizer Recognizer
	Announcer  Announcer
	Service    Service
	Indicator  Indicator
	Metrics    Metrics
	Clock      clock.Clock
	Logger     zerolog.Logger

	// Authorized gates Start; nil allows every session.
	Authorized  func() bool
	SettleDelay time.Duration
}

// Controller owns the interview session state machine. All state changes
// happen on the Run loop; other methods post commands to it.
type Controller struct {
	media      Media
	recognizer Recognizer
	announcer  Announcer
	service    Service
	indicator  Indicator
	metrics    Metrics
	clock      clock.Clock
	logger     zerolog.Logger
	authorized func() bool
	settleTime time.Duration

	inbox    *mailbox
	outcomes chan Outcome

	mu      sync.RWMutex
	state   fsm.State
	session *Session
	message string
	mic     Mic

	// Loop-owned.
	runCtx        context.Context
	gen           uint64
	turn          uint64
	settleSeq     uint64
	settle        *clock.Timer
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	acquireCancel context.CancelFunc
	acquiring     sync.WaitGroup
}

// New builds a Controller in the idle state.
func New(deps Deps) *Controller {
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Authorized == nil {
		deps.Authorized = func() bool { return true }
	}
	if deps.SettleDelay <= 0 {
		deps.SettleDelay = DefaultSettleDelay
	}

	return &Controller{
		media:      deps.Media,
		recognizer: deps.Recognizer,
		announcer:  deps.Announcer,
		service:    deps.Service,
		indicator:  deps.Indicator,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		logger:     deps.Logger.With().Str("component", "interview").Logger(),
		authorized: deps.Authorized,
		settleTime: deps.SettleDelay,
		inbox:      newMailbox(),
		outcomes:   make(chan Outcome, 4),
		state:      fsm.StateIdle,
		mic:        MicNone,
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{State: c.state, Message: c.message, Mic: c.mic}
	if s := c.session; s != nil {
		snap.SessionID = s.ID
		snap.Question = s.Current()
		snap.Index = s.Index
		snap.Total = len(s.Questions)
		snap.Answers = s.Answers()
		snap.Answered = len(snap.Answers)
		snap.Buffer = s.Buffer
	}
	return snap
}

// Outcomes delivers terminal session results.
func (c *Controller) Outcomes() <-chan Outcome { return c.outcomes }

// Start begins a session. Invalid input returns a *ValidationError and the
// controller stays idle.
func (c *Controller) Start(ctx context.Context, req StartRequest) error {
	reply := make(chan error, 1)
	c.inbox.post(startCmd{req: req, reply: reply})
	return awaitReply(ctx, reply)
}

// Stop ends the interview early, keeping any answer in progress.
func (c *Controller) Stop(ctx context.Context) error {
	reply := make(chan error, 1)
	c.inbox.post(stopCmd{reply: reply})
	return awaitReply(ctx, reply)
}

// Reset clears a finished or failed session back to idle.
func (c *Controller) Reset(ctx context.Context) error {
	reply := make(chan error, 1)
	c.inbox.post(resetCmd{reply: reply})
	return awaitReply(ctx, reply)
}

func awaitReply(ctx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is cancelled, then releases everything the
// session holds.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	for {
		select {
		case <-ctx.Done():
			for _, ev := range c.inbox.drain() {
				rejectCommand(ev, ctx.Err())
			}
			c.cancelSettle()
			err := c.teardown()
			if c.sessionCancel != nil {
				c.sessionCancel()
			}
			c.indicator.Hide(context.Background())
			return err
		case <-c.inbox.signal:
			for _, ev := range c.inbox.drain() {
				c.dispatch(ev)
			}
		}
	}
}

func rejectCommand(ev event, err error) {
	switch ev := ev.(type) {
	case startCmd:
		ev.reply <- err
	case stopCmd:
		respond(ev.reply, err)
	case resetCmd:
		respond(ev.reply, err)
	}
}

// respond delivers a command result. Fire-and-forget commands have no reply
// channel.
func respond(reply chan<- error, err error) {
	if reply != nil {
		reply <- err
	}
}

func (c *Controller) dispatch(ev event) {
	switch ev := ev.(type) {
	case startCmd:
		ev.reply <- c.handleStart(ev.req)
		return
	case stopCmd:
		err := c.handleStop()
		if err != nil && ev.reply == nil {
			c.logger.Info().Err(err).Msg("requested stop no longer applies")
		}
		respond(ev.reply, err)
		return
	case resetCmd:
		err := c.handleReset()
		if err != nil && ev.reply == nil {
			c.logger.Info().Err(err).Msg("requested reset no longer applies")
		}
		respond(ev.reply, err)
		return
	}

	if ev.generation() != c.gen {
		c.logger.Debug().Type("event", ev).Msg("dropping event from previous session")
		return
	}

	switch ev := ev.(type) {
	case questionsEvent:
		c.onQuestions(ev)
	case probedEvent:
		c.onProbed(ev)
	case mediaEvent:
		c.onMedia(ev)
	case speechStarted:
		if ev.turn == c.turn {
			c.logger.Debug().Uint64("turn", ev.turn).Msg("question playback started")
		}
	case speechEnded:
		c.onSpeechEnded(ev)
	case interimEvent:
		c.onInterim(ev)
	case finalEvent:
		c.onFinal(ev)
	case recognizerFailed:
		if ev.turn == c.turn && c.State() == fsm.StateRecording {
			c.recognitionFailed(ev.err)
		}
	case settleEvent:
		c.onSettle(ev)
	case feedbackEvent:
		c.onFeedback(ev)
	}
}

func (c *Controller) handleStart(req StartRequest) error {
	state := c.State()
	if state != fsm.StateIdle {
		return fmt.Errorf("cannot start from state %s", state)
	}
	if !c.authorized() {
		return ErrUnauthorized
	}
	if err := req.Validate(); err != nil {
		c.logger.Info().Err(err).Msg("start rejected")
		return err
	}

	next, err := fsm.Transition(state, fsm.EventStart)
	if err != nil {
		return err
	}

	c.gen++
	c.sessionCtx, c.sessionCancel = context.WithCancel(c.runCtx)
	session := newSession(req, c.clock.Now())

	c.mu.Lock()
	c.state = next
	c.session = session
	c.message = ""
	c.mu.Unlock()

	c.logger.Info().
		Str("session_id", session.ID).
		Str("job_role", session.JobRole).
		Str("interview_type", session.InterviewType).
		Msg("interview started")
	c.indicator.ShowProcessing(c.sessionCtx)

	gen, ctx := c.gen, c.sessionCtx
	go func() {
		questions, err := c.service.ConductInterview(ctx, coach.InterviewRequest{
			ResumePath:    req.ResumePath,
			InterviewType: req.InterviewType,
			JobRole:       req.JobRole,
		})
		c.inbox.post(questionsEvent{scoped{gen}, questions, err})
	}()
	return nil
}

func (c *Controller) onQuestions(ev questionsEvent) {
	if c.State() != fsm.StateAwaitingQuestions {
		return
	}
	if ev.err == nil && len(ev.questions) == 0 {
		ev.err = coach.ErrNoQuestions
	}
	if ev.err != nil {
		message := MessageQuestionsFailed
		if errors.Is(ev.err, coach.ErrNoQuestions) {
			message = MessageNoQuestions
		}
		c.fail(message, ev.err)
		return
	}

	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventQuestionsReceived)
	if err == nil {
		c.state = next
		c.session.setQuestions(ev.questions)
	}
	c.mu.Unlock()
	if err != nil {
		c.fail(MessageQuestionsFailed, err)
		return
	}

	c.logger.Info().Int("questions", len(ev.questions)).Msg("questions received")

	gen, ctx := c.gen, c.sessionCtx
	go func() {
		constraints, err := c.probe(ctx)
		c.inbox.post(probedEvent{scoped{gen}, constraints, err})
	}()
}

// probe inspects output devices and warms the voice list concurrently.
func (c *Controller) probe(ctx context.Context) (media.Constraints, error) {
	var constraints media.Constraints
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		constraints, err = c.media.Probe(gctx)
		return err
	})
	if loader, ok := c.announcer.(voiceLoader); ok {
		g.Go(func() error {
			if _, err := loader.LoadVoices(gctx); err != nil {
				c.logger.Warn().Err(err).Msg("load voices")
			}
			return nil
		})
	}
	err := g.Wait()
	return constraints, err
}

func (c *Controller) onProbed(ev probedEvent) {
	if c.State() != fsm.StateRecording {
		return
	}
	constraints := ev.constraints
	if ev.err != nil {
		c.logger.Warn().Err(ev.err).Msg("capability probe failed; keeping echo cancellation on")
		constraints.EchoCancellation = true
	}

	acquireCtx, cancel := context.WithCancel(c.sessionCtx)
	c.acquireCancel = cancel
	c.acquiring.Add(1)
	gen := c.gen
	go func() {
		defer c.acquiring.Done()
		err := c.media.Acquire(acquireCtx, constraints)
		c.inbox.post(mediaEvent{scoped{gen}, err})
	}()

	c.announce()
}

func (c *Controller) onMedia(ev mediaEvent) {
	if ev.err == nil || c.State() != fsm.StateRecording {
		return
	}
	c.fail(MessageMedia, ev.err)
}

// announce speaks the current question. The recognizer is stopped first so
// it never hears the synthesizer.
func (c *Controller) announce() {
	c.stopListening()
	c.turn++

	c.mu.RLock()
	index, total, question := c.session.Index, len(c.session.Questions), c.session.Current()
	c.mu.RUnlock()

	c.setMic(MicAnnouncer)
	c.indicator.ShowQuestion(c.sessionCtx, index+1, total, question)
	c.metrics.QuestionAsked()
	c.logger.Info().Int("index", index).Int("total", total).Msg("asking question")

	if err := c.announcer.Speak(c.sessionCtx, question, hooks{c, c.gen, c.turn}); err != nil {
		c.logger.Warn().Err(err).Int("index", index).Msg("question not spoken")
		c.setMic(MicNone)
		c.listen()
	}
}

func (c *Controller) onSpeechEnded(ev speechEnded) {
	if ev.turn != c.turn || c.State() != fsm.StateRecording || c.micOwner() != MicAnnouncer {
		return
	}
	if ev.err != nil && !errors.Is(ev.err, context.Canceled) {
		c.logger.Warn().Err(ev.err).Msg("question playback failed")
	}
	c.setMic(MicNone)
	c.listen()
}

// listen starts recognition for the current turn.
func (c *Controller) listen() {
	if c.micOwner() == MicAnnouncer {
		return
	}
	if err := c.recognizer.Start(c.sessionCtx, listener{c, c.gen, c.turn}); err != nil {
		c.recognitionFailed(err)
		return
	}
	c.setMic(MicRecognizer)
	c.indicator.ShowListening(c.sessionCtx)
}

func (c *Controller) stopListening() {
	if c.micOwner() != MicRecognizer {
		return
	}
	if err := c.recognizer.Stop(context.Background()); err != nil {
		c.logger.Warn().Err(err).Msg("stop recognizer")
	}
	c.setMic(MicNone)
}

// recognitionFailed halts recognition for the turn. The session stays in
// recording; a pending settle timer or the user moves it on.
func (c *Controller) recognitionFailed(err error) {
	message := MessageRecognizer
	if errors.Is(err, recognizer.ErrUnsupported) {
		message = MessageUnsupported
	}
	c.logger.Error().Err(err).Uint64("turn", c.turn).Msg("speech recognition halted for this question")
	c.metrics.RecognizerFailed()
	c.stopListening()

	c.mu.Lock()
	c.message = message
	c.mu.Unlock()
	c.indicator.ShowError(c.sessionCtx, message)
}

func (c *Controller) onInterim(ev interimEvent) {
	if ev.turn != c.turn || c.State() != fsm.StateRecording {
		return
	}
	c.mu.Lock()
	c.session.Buffer = ev.text
	c.mu.Unlock()
}

func (c *Controller) onFinal(ev finalEvent) {
	if ev.turn != c.turn || c.State() != fsm.StateRecording {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.appendFinal(ev.text) {
		return
	}
	c.session.Buffer = ""
	c.armSettle()
}

// armSettle restarts the quiet-period timer.
func (c *Controller) armSettle() {
	if c.settle != nil {
		c.settle.Stop()
	}
	c.settleSeq++
	gen, seq := c.gen, c.settleSeq
	c.settle = c.clock.AfterFunc(c.settleTime, func() {
		c.inbox.post(settleEvent{scoped{gen}, seq})
	})
}

func (c *Controller) cancelSettle() {
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}
	c.settleSeq++
}

func (c *Controller) onSettle(ev settleEvent) {
	if ev.seq != c.settleSeq || c.State() != fsm.StateRecording {
		return
	}
	c.settle = nil
	c.advance()
}

// advance moves to the next question or, after the last one, requests
// feedback.
func (c *Controller) advance() {
	c.metrics.Advanced(ReasonSettle)
	c.stopListening()

	c.mu.Lock()
	moved := c.session.next()
	if moved {
		c.state, _ = fsm.Transition(c.state, fsm.EventAdvance)
	}
	c.mu.Unlock()

	if moved {
		c.announce()
		return
	}
	c.finish(fsm.EventComplete)
}

func (c *Controller) handleStop() error {
	state := c.State()
	if !canStop(state) {
		return fmt.Errorf("cannot stop from state %s", state)
	}
	c.metrics.Advanced(ReasonUserStop)
	c.finish(fsm.EventUserStop)
	return nil
}

// finish releases every engine and asks for feedback on the answers.
func (c *Controller) finish(ev fsm.Event) {
	c.cancelSettle()
	if err := c.teardown(); err != nil {
		c.logger.Warn().Err(err).Msg("interview teardown")
	}

	c.mu.Lock()
	if ev == fsm.EventUserStop {
		c.session.commitBuffer()
	}
	next, err := fsm.Transition(c.state, ev)
	if err == nil {
		c.state = next
	}
	c.session.FinishedAt = c.clock.Now()
	payload := c.session.Payload()
	answered := c.session.Answered()
	c.mu.Unlock()
	if err != nil {
		c.fail(MessageFeedbackFailed, err)
		return
	}

	c.logger.Info().
		Str("event", string(ev)).
		Int("answered", answered).
		Int("submitted", len(payload)).
		Msg("interview finished; requesting feedback")
	c.indicator.ShowProcessing(c.sessionCtx)
	c.metrics.AnswersSubmitted(answered)

	gen, ctx := c.gen, c.sessionCtx
	go func() {
		raw, err := c.service.GetFeedback(ctx, payload)
		c.inbox.post(feedbackEvent{scoped{gen}, raw, err})
	}()
}

func (c *Controller) onFeedback(ev feedbackEvent) {
	if c.State() != fsm.StateAwaitingFeedback {
		return
	}
	if ev.err != nil {
		c.fail(MessageFeedbackFailed, ev.err)
		return
	}

	report := feedback.ParseAny(ev.raw)

	c.mu.Lock()
	c.state, _ = fsm.Transition(c.state, fsm.EventFeedbackReceived)
	outcome := c.outcomeLocked()
	c.mu.Unlock()
	outcome.Report = report

	c.logger.Info().Str("session_id", outcome.SessionID).Msg("feedback received")
	c.indicator.CueComplete(c.sessionCtx)
	c.indicator.Hide(c.sessionCtx)
	c.metrics.SessionFinished("feedback")
	c.publish(outcome)
}

// fail releases everything and moves to the error state.
func (c *Controller) fail(message string, cause error) {
	c.cancelSettle()
	if err := c.teardown(); err != nil {
		c.logger.Warn().Err(err).Msg("interview teardown")
	}

	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventFail)
	if err == nil {
		c.state = next
	}
	c.message = message
	if c.session != nil {
		c.session.FinishedAt = c.clock.Now()
	}
	outcome := c.outcomeLocked()
	c.mu.Unlock()
	outcome.Err = cause

	c.logger.Error().Err(cause).Str("message", message).Msg("interview failed")
	c.indicator.CueCancel(context.Background())
	c.indicator.ShowError(context.Background(), message)
	c.metrics.SessionFinished("error")
	c.publish(outcome)
}

func (c *Controller) handleReset() error {
	state := c.State()
	if !canReset(state) {
		return fmt.Errorf("cannot reset from state %s", state)
	}

	c.cancelSettle()
	teardownErr := c.teardown()
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
	c.gen++

	c.mu.Lock()
	c.state, _ = fsm.Transition(c.state, fsm.EventReset)
	c.session = nil
	c.message = ""
	c.mu.Unlock()

	c.indicator.Hide(context.Background())
	c.logger.Info().Msg("interview reset")
	if teardownErr != nil {
		c.logger.Warn().Err(teardownErr).Msg("interview teardown")
	}
	return nil
}

// teardown stops recognition, cancels speech and releases media. Pending
// turn callbacks are invalidated.
func (c *Controller) teardown() error {
	var result *multierror.Error

	if err := c.recognizer.Stop(context.Background()); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop recognizer: %w", err))
	}
	if err := c.announcer.Cancel(); err != nil {
		result = multierror.Append(result, fmt.Errorf("cancel announcement: %w", err))
	}
	if c.acquireCancel != nil {
		c.acquireCancel()
		c.acquireCancel = nil
	}
	c.acquiring.Wait()
	if err := c.media.Release(); err != nil {
		result = multierror.Append(result, fmt.Errorf("release media: %w", err))
	}

	c.setMic(MicNone)
	c.turn++
	return result.ErrorOrNil()
}

func canStop(state fsm.State) bool {
	return state == fsm.StateRecording
}

func canReset(state fsm.State) bool {
	return state == fsm.StateShowingFeedback || state == fsm.StateError
}

func (c *Controller) outcomeLocked() Outcome {
	out := Outcome{State: c.state, Message: c.message}
	if s := c.session; s != nil {
		out.SessionID = s.ID
		out.JobRole = s.JobRole
		out.Type = s.InterviewType
		out.Questions = append([]string(nil), s.Questions...)
		out.Answers = s.Payload()
		out.StartedAt = s.StartedAt
		out.EndedAt = s.FinishedAt
	}
	return out
}

func (c *Controller) publish(outcome Outcome) {
	select {
	case c.outcomes <- outcome:
	default:
		c.logger.Warn().Str("state", string(outcome.State)).Msg("outcome dropped; no reader")
	}
}

func (c *Controller) setMic(m Mic) {
	c.mu.Lock()
	c.mic = m
	c.mu.Unlock()
}

func (c *Controller) micOwner() Mic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mic
}
