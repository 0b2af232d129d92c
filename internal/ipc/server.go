package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const requestReadTimeout = 2 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Server answers one request per connection.
type Server struct {
	Handler Handler
	Logger  zerolog.Logger
}

func NewServer(handler Handler, logger zerolog.Logger) *Server {
	return &Server{
		Handler: handler,
		Logger:  logger.With().Str("component", "ipc").Logger(),
	}
}

// Serve accepts clients until ctx is cancelled or listener is closed, then
// waits for in-flight requests.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	reply := func(resp Response) {
		if err := json.NewEncoder(conn).Encode(resp); err != nil {
			s.Logger.Debug().Err(err).Msg("write IPC response")
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		reply(Response{Error: fmt.Sprintf("read request: %v", err)})
		return
	}

	var raw struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		reply(Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	cmd, err := ParseCommand(raw.Command)
	if err != nil {
		reply(Response{Error: err.Error()})
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, cmd.Timeout())
	defer cancel()
	deadline, _ := handleCtx.Deadline()
	_ = conn.SetDeadline(deadline)

	started := time.Now()
	resp := s.Handler.Handle(handleCtx, Request{Command: cmd})
	s.Logger.Debug().
		Str("command", string(cmd)).
		Bool("ok", resp.OK).
		Str("state", resp.State).
		Dur("took", time.Since(started)).
		Msg("ipc request")
	reply(resp)
}
