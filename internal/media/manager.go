package media

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Constraints are the capture parameters decided by Probe.
type Constraints struct {
	Input            string
	Fallback         string
	EchoCancellation bool
	SampleRate       int
}

// Stream is one live capture.
type Stream interface {
	Device() Device
	BytesCaptured() int64
	Stop() error
}

// Backend is the audio server surface the Manager needs.
type Backend interface {
	Sources(ctx context.Context) ([]Device, error)
	Sinks(ctx context.Context) ([]OutputDevice, error)
	Open(ctx context.Context, device Device, sampleRate int, sink Sink) (Stream, error)
}

// Options configure a Manager.
type Options struct {
	Input            string
	Fallback         string
	EchoCancellation string // auto, on, off
	SampleRate       int
}

// Manager owns at most one live capture stream.
type Manager struct {
	backend Backend
	opts    Options
	logger  zerolog.Logger

	bound binding

	mu       sync.Mutex
	consumer Sink
	stream   Stream
}

// NewManager builds a Manager over backend.
func NewManager(backend Backend, opts Options, logger zerolog.Logger) *Manager {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	return &Manager{
		backend: backend,
		opts:    opts,
		logger:  logger.With().Str("component", "media").Logger(),
	}
}

// Bind sets the consumer of captured audio. It is attached while a stream
// is live and takes effect at once if one is.
func (m *Manager) Bind(sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumer = sink
	if m.stream != nil {
		m.bound.attach(sink)
	}
}

// Probe inspects output devices and decides capture constraints. Echo
// cancellation is turned off when headphones are present.
func (m *Manager) Probe(ctx context.Context) (Constraints, error) {
	c := Constraints{
		Input:      m.opts.Input,
		Fallback:   m.opts.Fallback,
		SampleRate: m.opts.SampleRate,
	}

	switch strings.ToLower(m.opts.EchoCancellation) {
	case "on":
		c.EchoCancellation = true
		return c, nil
	case "off":
		return c, nil
	}

	sinks, err := m.backend.Sinks(ctx)
	if err != nil {
		return c, deviceError("probe", err)
	}
	headphones := false
	for _, sink := range sinks {
		if sink.Headphones() {
			headphones = true
			break
		}
	}
	c.EchoCancellation = !headphones
	m.logger.Debug().
		Int("outputs", len(sinks)).
		Bool("headphones", headphones).
		Bool("echo_cancellation", c.EchoCancellation).
		Msg("output devices probed")
	return c, nil
}

// Acquire starts a capture stream, releasing any existing one first.
func (m *Manager) Acquire(ctx context.Context, c Constraints) error {
	if err := m.Release(); err != nil {
		m.logger.Warn().Err(err).Msg("release previous stream")
	}

	devices, err := m.backend.Sources(ctx)
	if err != nil {
		return deviceError("acquire", err)
	}
	selection, err := selectDeviceFromList(devices, c.Input, c.Fallback)
	if err != nil {
		return deviceError("acquire", err)
	}
	if c.EchoCancellation {
		selection = preferEchoCancel(devices, selection, c.Input)
	}
	if selection.Warning != "" {
		m.logger.Warn().Str("device", selection.Device.ID).Msg(selection.Warning)
	}

	sampleRate := c.SampleRate
	if sampleRate <= 0 {
		sampleRate = m.opts.SampleRate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		// Raced with another Acquire; keep the single-stream invariant.
		_ = m.stream.Stop()
		m.stream = nil
	}
	m.bound.attach(m.consumer)
	stream, err := m.backend.Open(ctx, selection.Device, sampleRate, &m.bound)
	if err != nil {
		m.bound.detach()
		return deviceError("acquire", err)
	}
	m.stream = stream
	m.logger.Info().
		Str("device", selection.Device.ID).
		Str("description", selection.Device.Description).
		Bool("echo_cancellation", c.EchoCancellation).
		Msg("capture started")
	return nil
}

// Release detaches the consumer and stops the live stream if any. Safe to
// call repeatedly.
func (m *Manager) Release() error {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.bound.detach()
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	if err := stream.Stop(); err != nil {
		return deviceError("release", err)
	}
	m.logger.Info().
		Str("device", stream.Device().ID).
		Int64("bytes", stream.BytesCaptured()).
		Msg("capture released")
	return nil
}

// Live reports whether a capture stream is running.
func (m *Manager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil
}

// Devices lists input sources.
func (m *Manager) Devices(ctx context.Context) ([]Device, error) {
	devices, err := m.backend.Sources(ctx)
	return devices, deviceError("list sources", err)
}

// Outputs lists output sinks.
func (m *Manager) Outputs(ctx context.Context) ([]OutputDevice, error) {
	sinks, err := m.backend.Sinks(ctx)
	return sinks, deviceError("list sinks", err)
}

// Select resolves the configured input against live devices without capturing.
func (m *Manager) Select(ctx context.Context) (Selection, error) {
	devices, err := m.backend.Sources(ctx)
	if err != nil {
		return Selection{}, deviceError("select", err)
	}
	selection, err := selectDeviceFromList(devices, m.opts.Input, m.opts.Fallback)
	return selection, deviceError("select", err)
}
