package media

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevices means the audio server reported no input sources.
	ErrNoDevices = errors.New("no audio input devices found")
	// ErrUnavailable means the audio server could not be reached.
	ErrUnavailable = errors.New("audio server unavailable")
)

// DeviceError reports a failed media operation.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("media %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func deviceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return err
	}
	return &DeviceError{Op: op, Err: err}
}
