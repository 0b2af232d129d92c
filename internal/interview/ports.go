package interview

import (
	"context"

	"github.com/rbright/mockinterview/internal/announcer"
	"github.com/rbright/mockinterview/internal/coach"
	"github.com/rbright/mockinterview/internal/media"
	"github.com/rbright/mockinterview/internal/recognizer"
)

// Media is the capture surface the controller drives.
type Media interface {
	Probe(ctx context.Context) (media.Constraints, error)
	Acquire(ctx context.Context, c media.Constraints) error
	Release() error
}

// Recognizer is the speech-to-text surface the controller drives.
type Recognizer interface {
	Start(ctx context.Context, l recognizer.Listener) error
	Stop(ctx context.Context) error
}

// Announcer speaks questions.
type Announcer interface {
	Speak(ctx context.Context, text string, hooks announcer.Hooks) error
	Cancel() error
}

// voiceLoader is implemented by announcers that can warm their voice list
// during capability probing.
type voiceLoader interface {
	LoadVoices(ctx context.Context) ([]announcer.Voice, error)
}

// Service is the remote question and feedback service.
type Service interface {
	ConductInterview(ctx context.Context, req coach.InterviewRequest) ([]string, error)
	GetFeedback(ctx context.Context, answers map[string]string) (string, error)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowQuestion(ctx context.Context, index, total int, text string)
	ShowListening(ctx context.Context)
	ShowProcessing(ctx context.Context)
	ShowError(ctx context.Context, message string)
	CueComplete(ctx context.Context)
	CueCancel(ctx context.Context)
	Hide(ctx context.Context)
}

// Metrics receives session counters.
type Metrics interface {
	QuestionAsked()
	Advanced(reason string)
	RecognizerFailed()
	AnswersSubmitted(n int)
	SessionFinished(outcome string)
}

type noopIndicator struct{}

func (noopIndicator) ShowQuestion(context.Context, int, int, string) {}
func (noopIndicator) ShowListening(context.Context)                  {}
func (noopIndicator) ShowProcessing(context.Context)                 {}
func (noopIndicator) ShowError(context.Context, string)              {}
func (noopIndicator) CueComplete(context.Context)                    {}
func (noopIndicator) CueCancel(context.Context)                      {}
func (noopIndicator) Hide(context.Context)                           {}

type noopMetrics struct{}

func (noopMetrics) QuestionAsked()         {}
func (noopMetrics) Advanced(string)        {}
func (noopMetrics) RecognizerFailed()      {}
func (noopMetrics) AnswersSubmitted(int)   {}
func (noopMetrics) SessionFinished(string) {}
