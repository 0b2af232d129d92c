package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// Client sends control commands to the interview owning Path.
type Client struct {
	Path string
}

func NewClient(path string) *Client {
	return &Client{Path: path}
}

// Do sends cmd within its round-trip budget. A refusal from the session is
// returned as a *RefusedError alongside the response.
func (c *Client) Do(ctx context.Context, cmd Command) (Response, error) {
	resp, err := roundTrip(ctx, c.Path, Request{Command: cmd}, cmd.Timeout())
	if err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, &RefusedError{Command: cmd, State: resp.State, Reason: resp.Error}
	}
	return resp, nil
}

// Status asks the running interview where it is.
func (c *Client) Status(ctx context.Context) (Response, error) {
	return c.Do(ctx, CommandStatus)
}

func roundTrip(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode %s request: %w", req.Command, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", req.Command, err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode %s response: %w", req.Command, err)
	}
	return resp, nil
}

// Probe checks whether a responsive owner is currently listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := roundTrip(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case Unreachable(err):
		return false, nil
	default:
		return false, fmt.Errorf("probe socket: %w", err)
	}
}

// Unreachable reports whether err means nobody owns the socket: the socket
// file is missing or nothing accepts on it.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
