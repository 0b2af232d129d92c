// Package fsm holds the interview session state table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle              State = "idle"
	StateAwaitingQuestions State = "awaiting_questions"
	StateRecording         State = "recording"
	StateAwaitingFeedback  State = "awaiting_feedback"
	StateShowingFeedback   State = "showing_feedback"
	StateError             State = "error"
)

const (
	EventStart             Event = "start"
	EventQuestionsReceived Event = "questions_received"
	EventAdvance           Event = "advance"
	EventComplete          Event = "complete"
	EventUserStop          Event = "user_stop"
	EventFeedbackReceived  Event = "feedback_received"
	EventFail              Event = "fail"
	EventReset             Event = "reset"
)

// Transition returns the next state for event, or current plus an error when
// the event is not accepted there.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		switch current {
		case StateIdle, StateAwaitingQuestions, StateRecording, StateAwaitingFeedback, StateShowingFeedback, StateError:
			return StateError, nil
		default:
			return current, fmt.Errorf("unknown state %q", current)
		}
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateAwaitingQuestions, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingQuestions:
		switch event {
		case EventQuestionsReceived:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventAdvance:
			return StateRecording, nil
		case EventComplete, EventUserStop:
			return StateAwaitingFeedback, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingFeedback:
		switch event {
		case EventFeedbackReceived:
			return StateShowingFeedback, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateShowingFeedback, StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Terminal reports whether state ends a session run.
func Terminal(state State) bool {
	return state == StateShowingFeedback || state == StateError
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
