// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/walrus-wm/walrus/internal/playlist"
	"github.com/walrus-wm/walrus/internal/scheduler"
)

type fakeController struct {
	mu         sync.Mutex
	state      scheduler.State
	index      int
	calls      []string
	advanceErr error
}

func (f *fakeController) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeController) Advance(_ context.Context, d playlist.Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(d.String())
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.index += int(d)
	return nil
}

func (f *fakeController) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pause")
	f.state = scheduler.Paused
}

func (f *fakeController) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("resume")
	f.state = scheduler.Playing
}

func (f *fakeController) Toggle() scheduler.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("toggle")
	if f.state == scheduler.Playing {
		f.state = scheduler.Paused
	} else {
		f.state = scheduler.Playing
	}
	return f.state
}

func (f *fakeController) Reshuffle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reshuffle")
}

func (f *fakeController) Categorise(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("categorise " + name)
	return "/walls/." + name + "/a.png", nil
}

func (f *fakeController) Status() scheduler.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return scheduler.Status{State: f.state, Index: f.index, Length: 3, Current: "/walls/a.png"}
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// socketPath returns a short path; unix socket paths are limited to about
// 100 bytes and t.TempDir() can exceed that.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "walrus-ipc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "run", "walrus.sock")
}

type harness struct {
	srv      *Server
	client   *Client
	ctrl     *fakeController
	reloads  atomic.Int32
	shutdown chan struct{}
}

func startServer(t *testing.T) *harness {
	t.Helper()

	h := &harness{ctrl: &fakeController{}, shutdown: make(chan struct{})}
	socket := socketPath(t)
	h.srv = NewServer(ServerOptions{
		Socket:     socket,
		Controller: h.ctrl,
		Reload: func(context.Context) error {
			h.reloads.Add(1)
			return nil
		},
		Shutdown: func() { close(h.shutdown) },
		Logger:   log.New(io.Discard),
	})
	if err := h.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		if err := h.srv.Stop(context.Background()); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	h.client = NewClient(socket)
	return h
}

func TestServer_Lifecycle(t *testing.T) {
	t.Parallel()

	socket := socketPath(t)
	srv := NewServer(ServerOptions{Socket: socket, Controller: &fakeController{}, Logger: log.New(io.Discard)})
	if srv.State() != StateCreated {
		t.Errorf("State() = %s, want created", srv.State())
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.State() != StateRunning {
		t.Errorf("State() = %s, want running", srv.State())
	}
	info, err := os.Stat(socket)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != socketMode {
		t.Errorf("socket mode = %o, want %o", perm, socketMode)
	}
	if err := NewClient(socket).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if srv.State() != StateStopped || !srv.State().IsTerminal() {
		t.Errorf("State() after Stop = %s", srv.State())
	}
	if _, err := os.Stat(socket); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("socket file left behind: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestServer_StartCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := NewServer(ServerOptions{Socket: socketPath(t), Controller: &fakeController{}})
	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() with cancelled context should fail")
	}
	if srv.State() != StateFailed {
		t.Errorf("State() = %s, want failed", srv.State())
	}
}

func TestServer_RejectsLiveSocketAndReplacesStale(t *testing.T) {
	t.Parallel()

	h := startServer(t)
	second := NewServer(ServerOptions{Socket: h.srv.Socket(), Controller: h.ctrl, Logger: log.New(io.Discard)})
	if err := second.Start(context.Background()); !errors.Is(err, ErrSocketInUse) {
		t.Errorf("Start() on a live socket error = %v, want ErrSocketInUse", err)
	}

	stale := socketPath(t)
	if err := os.MkdirAll(filepath.Dir(stale), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	third := NewServer(ServerOptions{Socket: stale, Controller: h.ctrl, Logger: log.New(io.Discard)})
	if err := third.Start(context.Background()); err != nil {
		t.Fatalf("Start() over a stale socket error = %v", err)
	}
	_ = third.Stop(context.Background())
}

func TestClient_Commands(t *testing.T) {
	t.Parallel()

	h := startServer(t)
	ctx := context.Background()

	tests := []struct {
		cmd    Command
		arg    string
		call   string
		result string
	}{
		{cmd: CommandNext, call: "next"},
		{cmd: CommandPrevious, call: "previous"},
		{cmd: CommandPause, call: "pause"},
		{cmd: CommandResume, call: "resume"},
		{cmd: CommandToggle, call: "toggle", result: "paused"},
		{cmd: CommandReshuffle, call: "reshuffle"},
		{cmd: CommandCategorise, arg: "like", call: "categorise like", result: "/walls/.like/a.png"},
	}
	for _, tt := range tests {
		resp, err := h.client.Send(ctx, tt.cmd, tt.arg)
		if err != nil {
			t.Fatalf("Send(%s) error = %v", tt.cmd, err)
		}
		if !resp.OK || resp.Status == nil || resp.Result != tt.result {
			t.Errorf("Send(%s) = %+v", tt.cmd, resp)
		}
		calls := h.ctrl.Calls()
		if calls[len(calls)-1] != tt.call {
			t.Errorf("Send(%s) called %q, want %q", tt.cmd, calls[len(calls)-1], tt.call)
		}
	}

	if _, err := h.client.Send(ctx, CommandReload, ""); err != nil || h.reloads.Load() != 1 {
		t.Errorf("reload: err %v, reloads %d", err, h.reloads.Load())
	}

	st, err := h.client.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.State != scheduler.Paused || st.Current != "/walls/a.png" || st.Length != 3 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestClient_CommandError(t *testing.T) {
	t.Parallel()

	h := startServer(t)
	h.ctrl.mu.Lock()
	h.ctrl.advanceErr = errors.New("swww exited with code 1")
	h.ctrl.mu.Unlock()

	resp, err := h.client.Send(context.Background(), CommandNext, "")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Send() error = %v, want *CommandError", err)
	}
	if !strings.Contains(cmdErr.Message, "code 1") {
		t.Errorf("CommandError.Message = %q", cmdErr.Message)
	}
	if resp == nil || resp.Status == nil {
		t.Error("failed command should still carry the status")
	}
}

func TestClient_Shutdown(t *testing.T) {
	t.Parallel()

	h := startServer(t)
	if _, err := h.client.Send(context.Background(), CommandShutdown, ""); err != nil {
		t.Fatalf("Send(shutdown) error = %v", err)
	}
	select {
	case <-h.shutdown:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not called")
	}
}

func TestClient_ValidatesBeforeSending(t *testing.T) {
	t.Parallel()

	c := NewClient(socketPath(t))
	if _, err := c.Send(context.Background(), "dance", ""); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Send(dance) error = %v, want ErrUnknownCommand", err)
	}
	if _, err := c.Send(context.Background(), CommandCategorise, ""); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Send(categorise) error = %v, want ErrMissingArgument", err)
	}
}

func TestClient_DaemonNotRunning(t *testing.T) {
	t.Parallel()

	c := NewClient(socketPath(t))
	if _, err := c.Send(context.Background(), CommandNext, ""); !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("Send() error = %v, want ErrDaemonNotRunning", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("Ping() error = %v, want ErrDaemonNotRunning", err)
	}
}

func TestServer_RejectsMalformedRequests(t *testing.T) {
	t.Parallel()

	h := startServer(t)
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "next please"},
		{name: "unknown command", body: `{"id":"1","command":"dance"}`},
		{name: "categorise without name", body: `{"id":"2","command":"categorise"}`},
	}
	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodPost, baseURL+PathCommand, bytes.NewBufferString(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		resp, err := h.client.roundTrip(req)
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
			continue
		}
		if resp == nil || resp.OK || resp.Error == "" {
			t.Errorf("%s: response = %+v", tt.name, resp)
		}
	}
	if calls := h.ctrl.Calls(); len(calls) != 0 {
		t.Errorf("malformed requests reached the controller: %v", calls)
	}
}
