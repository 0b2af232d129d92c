package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrAlreadyRunning means another interview owns the control socket.
var ErrAlreadyRunning = errors.New("an interview session is already running")

const socketName = "mockinterview.sock"

// RuntimeSocketPath places the control socket under $XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// AcquireOptions tune socket ownership.
type AcquireOptions struct {
	// ProbeTimeout bounds the liveness check of an existing socket.
	ProbeTimeout time.Duration
	// Retries is how many times a reclaimed stale socket is re-listened.
	Retries int
	// OnStale runs after a stale socket is removed.
	OnStale func(context.Context) error
}

var errStaleSocket = errors.New("stale socket reclaimed")

// Acquire listens on path so that only one interview runs per user. A socket
// left behind by a dead owner is removed and the listen retried; a live owner
// yields ErrAlreadyRunning.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = StatusTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	var listener net.Listener
	attempt := func() error {
		l, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			listener = l
			return nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return backoff.Permanent(fmt.Errorf("listen unix %s: %w", path, err))
		}

		alive, probeErr := Probe(ctx, path, opts.ProbeTimeout)
		if alive {
			return backoff.Permanent(ErrAlreadyRunning)
		}
		if probeErr != nil {
			return backoff.Permanent(fmt.Errorf("probe existing socket %s: %w", path, probeErr))
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return backoff.Permanent(fmt.Errorf("remove stale socket %s: %w", path, err))
		}
		if opts.OnStale != nil {
			_ = opts.OnStale(ctx)
		}
		return errStaleSocket
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(25*time.Millisecond), uint64(max(opts.Retries, 0))),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		if errors.Is(err, errStaleSocket) {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, opts.Retries)
		}
		return nil, err
	}
	return listener, nil
}
