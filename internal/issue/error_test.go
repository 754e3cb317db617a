// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"op only", Wrap(nil, "send next"), "failed to send next"},
		{
			"resource",
			Wrap(nil, "write config").On("/home/u/.config/walrus/config.toml"),
			"failed to write config: /home/u/.config/walrus/config.toml",
		},
		{
			"cause",
			Wrap(errors.New("general.interval: invalid value 0"), "check config"),
			"failed to check config: general.interval: invalid value 0",
		},
		{
			"resource and cause",
			Wrap(errors.New("walrus daemon is not running"), "send next").On("/run/user/1000/walrus/walrus.sock"),
			"failed to send next: /run/user/1000/walrus/walrus.sock: walrus daemon is not running",
		},
		{
			"hint and issue stay out of the message",
			Wrap(errors.New("locked"), "start daemon").See(DaemonAlreadyRunningId).Try("Run 'walrus status'"),
			"failed to start daemon: locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying")
	var err error = Wrap(fmt.Errorf("dial: %w", cause), "send next")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	var e *Error
	if !errors.As(fmt.Errorf("outer: %w", err), &e) || e.Op != "send next" {
		t.Errorf("errors.As() = %+v", e)
	}
	if Wrap(nil, "x").Unwrap() != nil {
		t.Error("Unwrap() without a cause should be nil")
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	sockErr := errors.New("connect: no such file or directory")
	notRunning := fmt.Errorf("walrus daemon is not running: %w", sockErr)

	tests := []struct {
		name     string
		err      *Error
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "plain",
			err:      Wrap(nil, "load config"),
			contains: []string{"failed to load config"},
			excludes: []string{"→", "caused by"},
		},
		{
			name:     "hint",
			err:      Wrap(nil, "write config").On("config.toml").Try("Use --force to overwrite it"),
			contains: []string{"failed to write config: config.toml", "\n  → Use --force to overwrite it"},
		},
		{
			name:     "causes hidden by default",
			err:      Wrap(notRunning, "send next"),
			excludes: []string{"caused by"},
		},
		{
			name:    "causes listed when verbose",
			err:     Wrap(notRunning, "send next").Try("Start it with 'walrus'"),
			verbose: true,
			contains: []string{
				"→ Start it with 'walrus'\n  caused by: walrus daemon is not running: connect",
				"\n  caused by: connect: no such file or directory",
			},
		},
		{
			name:    "repeated cause text printed once",
			err:     Wrap(&sameText{sockErr}, "send next"),
			verbose: true,
			excludes: []string{
				"caused by: connect: no such file or directory\n  caused by: connect: no such file or directory",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestError_Page(t *testing.T) {
	t.Parallel()

	err := Wrap(nil, "send next").See(DaemonNotRunningId)
	if got := err.Page(); got == nil || got.Id() != DaemonNotRunningId {
		t.Errorf("Page() = %v", got)
	}
	if Wrap(nil, "x").Page() != nil {
		t.Error("Page() without an issue should be nil")
	}
}

// sameText wraps an error without changing its message.
type sameText struct{ err error }

func (s *sameText) Error() string { return s.err.Error() }
func (s *sameText) Unwrap() error { return s.err }
