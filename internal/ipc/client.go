// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/walrus-wm/walrus/internal/scheduler"
)

// baseURL is a placeholder host; the transport always dials the socket.
const baseURL = "http://walrus"

var (
	// ErrDaemonNotRunning is returned when nothing listens on the socket.
	ErrDaemonNotRunning = errors.New("walrus daemon is not running")
	// ErrCommandFailed is wrapped by CommandError.
	ErrCommandFailed = errors.New("command failed")
)

type (
	// Client sends control requests to a running daemon.
	Client struct {
		socket string
		http   *http.Client
	}

	// CommandError is a failure reported by the daemon.
	CommandError struct {
		Command Command
		Message string
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// Unwrap returns ErrCommandFailed.
func (e *CommandError) Unwrap() error { return ErrCommandFailed }

// NewClient returns a Client for the daemon listening on socket. Requests
// have no overall timeout because a command can queue behind a running
// transition; bound them with the context.
func NewClient(socket string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
		MaxIdleConns:    1,
		IdleConnTimeout: 5 * time.Second,
	}
	return &Client{socket: socket, http: &http.Client{Transport: transport}}
}

// Socket returns the socket path.
func (c *Client) Socket() string { return c.socket }

// Ping checks that the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+PathHealth, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// Status returns the daemon's playback status.
func (c *Client) Status(ctx context.Context) (*scheduler.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+PathStatus, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, errors.New("daemon returned no status")
	}
	return resp.Status, nil
}

// Send runs cmd on the daemon. A daemon-side failure is a *CommandError;
// the response is returned alongside it so callers can still show status.
func (c *Client) Send(ctx context.Context, cmd Command, arg string) (*Response, error) {
	in := Request{ID: uuid.NewString(), Command: cmd, Argument: arg}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+PathCommand, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.roundTrip(req)
	if resp == nil {
		return nil, err
	}
	if resp.ID != in.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, in.ID)
	}
	if !resp.OK {
		return resp, &CommandError{Command: cmd, Message: resp.Error}
	}
	return resp, nil
}

// roundTrip decodes the JSON body. The Response is returned for any
// well-formed reply, with an error when the status code is not 200.
func (c *Client) roundTrip(req *http.Request) (*Response, error) {
	httpResp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("daemon error (%d): %s", httpResp.StatusCode, bytes.TrimSpace(data))
	}
	if httpResp.StatusCode != http.StatusOK {
		return &resp, fmt.Errorf("daemon rejected request (%d): %s", httpResp.StatusCode, resp.Error)
	}
	return &resp, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if isNotListening(err) {
			return nil, fmt.Errorf("%w (socket %s)", ErrDaemonNotRunning, c.socket)
		}
		return nil, fmt.Errorf("contact daemon: %w", err)
	}
	return resp, nil
}

func isNotListening(err error) bool {
	return errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED)
}
