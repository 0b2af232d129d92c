// Package ipc is the unix-socket control channel for a running interview.
package ipc

import (
	"fmt"
	"time"
)

// Command is a control request understood by a running interview.
type Command string

const (
	CommandStatus Command = "status"
	CommandStop   Command = "stop"
	CommandReset  Command = "reset"
)

// Round-trip budgets. Status is also the liveness probe.
const (
	StatusTimeout  = 220 * time.Millisecond
	ControlTimeout = 2 * time.Second
)

// ParseCommand validates a wire command name.
func ParseCommand(name string) (Command, error) {
	switch cmd := Command(name); cmd {
	case CommandStatus, CommandStop, CommandReset:
		return cmd, nil
	case "":
		return "", fmt.Errorf("missing command")
	default:
		return "", fmt.Errorf("unknown command: %s", name)
	}
}

// Timeout is the round-trip budget for c.
func (c Command) Timeout() time.Duration {
	if c == CommandStatus {
		return StatusTimeout
	}
	return ControlTimeout
}

type Request struct {
	Command Command `json:"command"`
}

// Progress describes where a running interview is.
type Progress struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question,omitempty"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	Answered  int    `json:"answered"`
}

// Asking reports whether a question is currently on screen.
func (p *Progress) Asking() bool {
	return p != nil && p.Total > 0 && p.Index < p.Total
}

type Response struct {
	OK       bool      `json:"ok"`
	State    string    `json:"state,omitempty"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	Progress *Progress `json:"progress,omitempty"`
}

// RefusedError is a command the running interview declined in its current
// state.
type RefusedError struct {
	Command Command
	State   string
	Reason  string
}

func (e *RefusedError) Error() string {
	return e.Reason
}
