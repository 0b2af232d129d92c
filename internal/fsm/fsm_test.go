package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingQuestions, next)

	next, err = Transition(next, EventQuestionsReceived)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventAdvance)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventComplete)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingFeedback, next)

	next, err = Transition(next, EventFeedbackReceived)
	require.NoError(t, err)
	require.Equal(t, StateShowingFeedback, next)

	next, err = Transition(next, EventReset)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionUserStopEndsRecording(t *testing.T) {
	next, err := Transition(StateRecording, EventUserStop)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingFeedback, next)
}

func TestTransitionFailFromAnyStateGoesError(t *testing.T) {
	states := []State{
		StateIdle,
		StateAwaitingQuestions,
		StateRecording,
		StateAwaitingFeedback,
		StateShowingFeedback,
		StateError,
	}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventUserStop, want: StateIdle, wantErr: true},
		{name: "idle reset invalid", state: StateIdle, event: EventReset, want: StateIdle, wantErr: true},
		{name: "awaiting questions start invalid", state: StateAwaitingQuestions, event: EventStart, want: StateAwaitingQuestions, wantErr: true},
		{name: "awaiting questions stop invalid", state: StateAwaitingQuestions, event: EventUserStop, want: StateAwaitingQuestions, wantErr: true},
		{name: "recording start invalid", state: StateRecording, event: EventStart, want: StateRecording, wantErr: true},
		{name: "recording reset invalid", state: StateRecording, event: EventReset, want: StateRecording, wantErr: true},
		{name: "awaiting feedback advance invalid", state: StateAwaitingFeedback, event: EventAdvance, want: StateAwaitingFeedback, wantErr: true},
		{name: "showing feedback start invalid", state: StateShowingFeedback, event: EventStart, want: StateShowingFeedback, wantErr: true},
		{name: "error start invalid", state: StateError, event: EventStart, want: StateError, wantErr: true},
		{name: "error reset valid", state: StateError, event: EventReset, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	_, err := Transition(State("bogus"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")

	_, err = Transition(State("bogus"), EventFail)
	require.Error(t, err)
}

func TestTerminal(t *testing.T) {
	require.True(t, Terminal(StateShowingFeedback))
	require.True(t, Terminal(StateError))
	require.False(t, Terminal(StateRecording))
	require.False(t, Terminal(StateIdle))
}
