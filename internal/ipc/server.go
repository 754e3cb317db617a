// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/walrus-wm/walrus/internal/playlist"
	"github.com/walrus-wm/walrus/internal/scheduler"
)

const (
	socketMode      = 0o600
	maxRequestBytes = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// ErrSocketInUse is returned by Start when another live daemon answers on
// the socket path.
var ErrSocketInUse = errors.New("control socket is in use by another daemon")

type (
	// Controller is the playback surface the socket drives.
	// *scheduler.Scheduler implements it.
	Controller interface {
		Advance(ctx context.Context, d playlist.Direction) error
		Pause()
		Resume()
		Toggle() scheduler.State
		Reshuffle()
		Categorise(name string) (string, error)
		Status() scheduler.Status
	}

	// ServerOptions configures a Server.
	ServerOptions struct {
		// Socket is the unix socket path. Its directory is created 0700.
		Socket     string
		Controller Controller
		// Reload re-reads the configuration and rebuilds the playlist.
		Reload func(ctx context.Context) error
		// Shutdown asks the daemon to exit. It is called after the reply
		// has been written.
		Shutdown func()
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Server answers control requests over a unix socket with JSON over
	// HTTP.
	Server struct {
		*lifecycle
		opts     ServerOptions
		logger   *log.Logger
		http     *http.Server
		listener net.Listener
	}
)

// NewServer creates a Server. Nothing is bound until Start.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{lifecycle: newLifecycle(), opts: opts, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathCommand, s.handleCommand)
	mux.HandleFunc("GET "+PathStatus, s.handleStatus)
	mux.HandleFunc("GET "+PathHealth, s.handleHealth)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return s
}

// State returns the lifecycle state.
func (s *Server) State() State { return s.current() }

// Err delivers a fatal serving error.
func (s *Server) Err() <-chan error { return s.errCh }

// Socket returns the socket path.
func (s *Server) Socket() string { return s.opts.Socket }

// Start binds the socket and serves in the background. A stale socket
// file left by a crashed daemon is replaced; a live one is an error.
func (s *Server) Start(ctx context.Context) error {
	if err := s.starting(ctx); err != nil {
		return err
	}

	ln, err := listen(ctx, s.opts.Socket)
	if err != nil {
		s.failed(err)
		return err
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.failed(fmt.Errorf("control socket: %w", err))
		}
	}()

	s.running()
	s.logger.Debug("control socket listening", "socket", s.opts.Socket)
	return nil
}

// Stop drains in-flight requests and removes the socket file.
func (s *Server) Stop(ctx context.Context) error {
	if !s.stopping() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(ctx)
	s.wg.Wait()

	if rmErr := os.Remove(s.opts.Socket); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	s.stopped()
	return err
}

func listen(ctx context.Context, socket string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}

	if _, err := os.Lstat(socket); err == nil {
		var d net.Dialer
		conn, dialErr := d.DialContext(ctx, "unix", socket)
		if dialErr == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: %s", ErrSocketInUse, socket)
		}
		if err := os.Remove(socket); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socket, err)
	}
	if err := os.Chmod(socket, socketMode); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return ln, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.opts.Controller.Status()
	writeJSON(w, http.StatusOK, Response{OK: true, Status: &st})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "failed to read request body"})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{ID: req.ID, Error: err.Error()})
		return
	}

	s.logger.Debug("control command", "id", req.ID, "command", req.Command, "argument", req.Argument)

	// Commands outlive the HTTP request: a client that gives up must not
	// abort a transition halfway.
	result, err := s.dispatch(s.ctx, req)
	st := s.opts.Controller.Status()
	resp := Response{ID: req.ID, OK: err == nil, Result: result, Status: &st}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)

	if err == nil && req.Command == CommandShutdown && s.opts.Shutdown != nil {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		go s.opts.Shutdown()
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) (string, error) {
	c := s.opts.Controller
	switch req.Command {
	case CommandNext:
		return "", c.Advance(ctx, playlist.Forward)
	case CommandPrevious:
		return "", c.Advance(ctx, playlist.Backward)
	case CommandPause:
		c.Pause()
	case CommandResume:
		c.Resume()
	case CommandToggle:
		return c.Toggle().String(), nil
	case CommandReshuffle:
		c.Reshuffle()
	case CommandCategorise:
		return c.Categorise(req.Argument)
	case CommandReload:
		if s.opts.Reload == nil {
			return "", errors.New("reload is not supported")
		}
		return "", s.opts.Reload(ctx)
	case CommandShutdown:
		if s.opts.Shutdown == nil {
			return "", errors.New("shutdown is not supported")
		}
	}
	return "", nil
}

func writeJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
