package interview

import (
	"context"
	"fmt"

	"github.com/rbright/mockinterview/internal/fsm"
	"github.com/rbright/mockinterview/internal/ipc"
)

// Handle serves IPC commands for the running interview. Stop and reset are
// acknowledged once the state allows them; the Run loop performs the work.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		snap := c.Snapshot()
		return ipc.Response{OK: true, State: string(snap.State), Message: snap.Message, Progress: progress(snap)}
	case ipc.CommandStop:
		state := c.State()
		if !canStop(state) {
			return refuse(state, fmt.Errorf("cannot stop from state %s", state))
		}
		c.inbox.post(stopCmd{})
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	case ipc.CommandReset:
		state := c.State()
		if !canReset(state) {
			return refuse(state, fmt.Errorf("cannot reset from state %s", state))
		}
		c.inbox.post(resetCmd{})
		return ipc.Response{OK: true, State: string(state), Message: "reset requested"}
	default:
		return refuse(c.State(), fmt.Errorf("unknown command: %s", req.Command))
	}
}

func refuse(state fsm.State, err error) ipc.Response {
	return ipc.Response{OK: false, State: string(state), Error: err.Error()}
}

func progress(snap Snapshot) *ipc.Progress {
	if snap.SessionID == "" {
		return nil
	}
	return &ipc.Progress{
		SessionID: snap.SessionID,
		Question:  snap.Question,
		Index:     snap.Index,
		Total:     snap.Total,
		Answered:  snap.Answered,
	}
}
