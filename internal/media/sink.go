package media

import (
	"sync"
)

// Sink receives captured PCM chunks (s16le mono).
type Sink interface {
	WriteChunk(chunk []byte)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func([]byte)

func (f SinkFunc) WriteChunk(chunk []byte) { f(chunk) }

// Tee fans chunks out to every non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	out := make(teeSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type teeSink []Sink

func (t teeSink) WriteChunk(chunk []byte) {
	for _, s := range t {
		s.WriteChunk(chunk)
	}
}

// binding is the attach point between a live stream and its consumer. A
// detached binding drops chunks.
type binding struct {
	mu   sync.RWMutex
	sink Sink
}

func (b *binding) attach(s Sink) {
	b.mu.Lock()
	b.sink = s
	b.mu.Unlock()
}

func (b *binding) detach() {
	b.attach(nil)
}

func (b *binding) attached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sink != nil
}

func (b *binding) WriteChunk(chunk []byte) {
	b.mu.RLock()
	s := b.sink
	b.mu.RUnlock()
	if s != nil {
		s.WriteChunk(chunk)
	}
}
