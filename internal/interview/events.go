package interview

import (
	"github.com/rbright/mockinterview/internal/media"
)

// event is one input to the controller loop. gen identifies the session the
// event belongs to; events from an earlier session are dropped.
type event interface {
	generation() uint64
}

type scoped struct{ gen uint64 }

func (s scoped) generation() uint64 { return s.gen }

// Commands carry a reply channel and are never stale.
type startCmd struct {
	scoped
	req   StartRequest
	reply chan error
}

type stopCmd struct {
	scoped
	reply chan error
}

type resetCmd struct {
	scoped
	reply chan error
}

type questionsEvent struct {
	scoped
	questions []string
	err       error
}

type probedEvent struct {
	scoped
	constraints media.Constraints
	err         error
}

type mediaEvent struct {
	scoped
	err error
}

// Turn events also carry the turn they were issued for.
type speechStarted struct {
	scoped
	turn uint64
}

type speechEnded struct {
	scoped
	turn uint64
	err  error
}

type interimEvent struct {
	scoped
	turn uint64
	text string
}

type finalEvent struct {
	scoped
	turn uint64
	text string
}

type recognizerFailed struct {
	scoped
	turn uint64
	err  error
}

type settleEvent struct {
	scoped
	seq uint64
}

type feedbackEvent struct {
	scoped
	raw string
	err error
}

// hooks adapts announcer callbacks for one utterance into events.
type hooks struct {
	c    *Controller
	gen  uint64
	turn uint64
}

func (h hooks) Started() {
	h.c.inbox.post(speechStarted{scoped{h.gen}, h.turn})
}

func (h hooks) Ended(err error) {
	h.c.inbox.post(speechEnded{scoped{h.gen}, h.turn, err})
}

// listener adapts recognizer callbacks for one turn into events.
type listener struct {
	c    *Controller
	gen  uint64
	turn uint64
}

func (l listener) Interim(text string) {
	l.c.inbox.post(interimEvent{scoped{l.gen}, l.turn, text})
}

func (l listener) Final(text string) {
	l.c.inbox.post(finalEvent{scoped{l.gen}, l.turn, text})
}

func (l listener) Failed(err error) {
	l.c.inbox.post(recognizerFailed{scoped{l.gen}, l.turn, err})
}
