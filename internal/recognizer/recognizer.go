// Package recognizer streams captured audio to a Vosk-protocol speech
// recognition server over websocket and reports interim and final results.
package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rbright/mockinterview/internal/transcript"
	"github.com/rs/zerolog"
)

// ErrUnsupported means no recognizer is available on this machine.
var ErrUnsupported = errors.New("speech recognition is not supported: no recognizer endpoint configured")

// EngineError wraps a failure reported while recognition was running.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("speech recognition error: %v", e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Listener receives recognition results for one Start call.
type Listener interface {
	Interim(text string)
	Final(text string)
	Failed(err error)
}

// Config describes the recognizer endpoint.
type Config struct {
	Endpoint     string
	LanguageCode string
	SampleRate   int
	DialTimeout  time.Duration

	// Dump receives every raw server message as one line when set.
	Dump io.Writer
}

// Client runs at most one recognition stream at a time.
type Client struct {
	cfg    Config
	logger zerolog.Logger
	dialer *websocket.Dialer

	dumpMu sync.Mutex

	mu     sync.Mutex
	active *stream
}

// New builds a Client. It does not connect until Start.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With().Str("component", "recognizer").Logger(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
	}
}

type configMessage struct {
	Config struct {
		SampleRate      int  `json:"sample_rate"`
		MaxAlternatives int  `json:"max_alternatives"`
		Words           bool `json:"words"`
	} `json:"config"`
}

type resultMessage struct {
	Partial *string `json:"partial"`
	Text    *string `json:"text"`
}

var eofMessage = []byte(`{"eof" : 1}`)

// Start opens a continuous recognition stream delivering results to l.
// A running stream is stopped first.
func (c *Client) Start(ctx context.Context, l Listener) error {
	if c.cfg.Endpoint == "" {
		return ErrUnsupported
	}
	if err := c.Stop(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("stop previous stream")
	}

	target, err := c.streamURL()
	if err != nil {
		return &EngineError{Err: err}
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	conn, resp, err := c.dialer.DialContext(dialCtx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return &EngineError{Err: fmt.Errorf("dial %s: %w", c.cfg.Endpoint, err)}
	}

	var msg configMessage
	msg.Config.SampleRate = c.cfg.SampleRate
	if err := conn.WriteJSON(msg); err != nil {
		_ = conn.Close()
		return &EngineError{Err: fmt.Errorf("send stream config: %w", err)}
	}

	s := &stream{conn: conn, listener: l, done: make(chan struct{})}

	c.mu.Lock()
	c.active = s
	c.mu.Unlock()

	go c.receiveLoop(s)
	c.logger.Debug().Str("endpoint", c.cfg.Endpoint).Msg("recognition started")
	return nil
}

// Stop ends the running stream. Results that arrive afterwards are dropped.
func (c *Client) Stop(_ context.Context) error {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	s.stopped.Store(true)

	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
	_ = s.conn.WriteMessage(websocket.TextMessage, eofMessage)
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	err := s.conn.Close()
	c.logger.Debug().Msg("recognition stopped")
	return err
}

// Active reports whether a stream is running.
func (c *Client) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// WriteChunk forwards captured PCM to the running stream or drops it.
func (c *Client) WriteChunk(chunk []byte) {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s == nil || s.stopped.Load() {
		return
	}

	s.writeMu.Lock()
	err := s.conn.WriteMessage(websocket.BinaryMessage, chunk)
	s.writeMu.Unlock()
	if err != nil && !s.stopped.Load() {
		c.logger.Debug().Err(err).Msg("write audio chunk")
	}
}

// Probe checks that the endpoint accepts websocket connections.
func (c *Client) Probe(ctx context.Context) error {
	if c.cfg.Endpoint == "" {
		return ErrUnsupported
	}
	target, err := c.streamURL()
	if err != nil {
		return err
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	conn, resp, err := c.dialer.DialContext(dialCtx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse recognizer endpoint: %w", err)
	}
	if c.cfg.LanguageCode != "" {
		q := u.Query()
		q.Set("lang", c.cfg.LanguageCode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

type stream struct {
	conn     *websocket.Conn
	listener Listener
	writeMu  sync.Mutex
	stopped  atomic.Bool
	done     chan struct{}
}

func (c *Client) receiveLoop(s *stream) {
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.stopped.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = errors.New("server closed the stream")
			}
			c.detach(s)
			s.listener.Failed(&EngineError{Err: err})
			return
		}
		c.dump(data)
		if s.stopped.Load() {
			continue
		}

		var msg resultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug().Err(err).Msg("decode recognizer message")
			continue
		}
		switch {
		case msg.Text != nil:
			if text := transcript.Clean(*msg.Text); text != "" {
				s.listener.Final(text)
			}
		case msg.Partial != nil:
			if text := transcript.Clean(*msg.Partial); text != "" {
				s.listener.Interim(text)
			}
		}
	}
}

// detach clears s as the active stream after a server-side failure.
func (c *Client) detach(s *stream) {
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
	s.stopped.Store(true)
	_ = s.conn.Close()
}

func (c *Client) dump(data []byte) {
	if c.cfg.Dump == nil {
		return
	}
	c.dumpMu.Lock()
	defer c.dumpMu.Unlock()
	_, _ = c.cfg.Dump.Write(append(append([]byte(nil), data...), '\n'))
}
