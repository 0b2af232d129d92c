package media

import (
	"encoding/binary"
	"io"
	"sync"
)

// WAVRecorder buffers captured PCM and writes it as a WAV file on Close.
type WAVRecorder struct {
	w          io.WriteCloser
	sampleRate int

	mu  sync.Mutex
	pcm []byte
}

// NewWAVRecorder records into w, which is closed by Close.
func NewWAVRecorder(w io.WriteCloser, sampleRate int) *WAVRecorder {
	return &WAVRecorder{w: w, sampleRate: sampleRate}
}

func (r *WAVRecorder) WriteChunk(chunk []byte) {
	r.mu.Lock()
	r.pcm = append(r.pcm, chunk...)
	r.mu.Unlock()
}

// Close flushes the WAV header and samples.
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	pcm := r.pcm
	r.pcm = nil
	r.mu.Unlock()

	if err := writePCM16WAV(r.w, pcm, r.sampleRate, 1); err != nil {
		_ = r.w.Close()
		return err
	}
	return r.w.Close()
}

func writePCM16WAV(w io.Writer, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
