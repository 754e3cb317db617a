// SPDX-License-Identifier: MPL-2.0

package display

import (
	"context"
	"errors"
	"testing"
)

const wlrRandrJSON = `[
  {
    "name": "eDP-1",
    "enabled": true,
    "modes": [
      {"width": 1920, "height": 1080, "refresh": 60.002, "preferred": true, "current": false},
      {"width": 2880, "height": 1800, "refresh": 90.001, "preferred": false, "current": true}
    ]
  },
  {
    "name": "HDMI-A-1",
    "enabled": false,
    "modes": [
      {"width": 3840, "height": 2160, "refresh": 144.0, "preferred": true, "current": true}
    ]
  }
]`

const hyprctlJSON = `[
  {"id": 0, "name": "DP-1", "width": 2560, "height": 1440, "refreshRate": 143.97, "disabled": false},
  {"id": 1, "name": "DP-2", "width": 1920, "height": 1080, "refreshRate": 60.0, "disabled": true}
]`

func TestBest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		monitors []Monitor
		want     string
		wantOK   bool
	}{
		{name: "empty", wantOK: false},
		{
			name: "highest refresh wins",
			monitors: []Monitor{
				{Name: "big", Width: 3840, Height: 2160, Refresh: 60},
				{Name: "fast", Width: 1920, Height: 1080, Refresh: 144},
			},
			want:   "fast",
			wantOK: true,
		},
		{
			name: "tie broken by area",
			monitors: []Monitor{
				{Name: "small", Width: 1920, Height: 1080, Refresh: 60},
				{Name: "large", Width: 2560, Height: 1440, Refresh: 60},
			},
			want:   "large",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Best(tt.monitors)
			if ok != tt.wantOK {
				t.Fatalf("Best() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Name != tt.want {
				t.Errorf("Best() = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestDecodeWlrRandr(t *testing.T) {
	t.Parallel()

	monitors, err := DecodeWlrRandr([]byte(wlrRandrJSON))
	if err != nil {
		t.Fatalf("DecodeWlrRandr() error = %v", err)
	}
	if len(monitors) != 1 {
		t.Fatalf("DecodeWlrRandr() returned %d monitors, want 1 (disabled outputs skipped)", len(monitors))
	}
	m := monitors[0]
	if m.Name != "eDP-1" || m.Width != 2880 || m.Height != 1800 || m.FPS() != 90 {
		t.Errorf("DecodeWlrRandr() = %+v, want eDP-1 2880x1800@90", m)
	}
}

func TestDecodeHyprctl(t *testing.T) {
	t.Parallel()

	monitors, err := DecodeHyprctl([]byte(hyprctlJSON))
	if err != nil {
		t.Fatalf("DecodeHyprctl() error = %v", err)
	}
	if len(monitors) != 1 || monitors[0].Name != "DP-1" || monitors[0].FPS() != 144 {
		t.Errorf("DecodeHyprctl() = %+v, want only DP-1 at 144 fps", monitors)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	t.Parallel()

	if _, err := DecodeWlrRandr([]byte("not json")); err == nil {
		t.Error("DecodeWlrRandr() expected error for invalid JSON")
	}
	if _, err := DecodeHyprctl([]byte("{")); err == nil {
		t.Error("DecodeHyprctl() expected error for invalid JSON")
	}
}

func TestCommandLister_FallsBackToSecondBackend(t *testing.T) {
	t.Parallel()

	var calls []string
	p := NewCommandLister()
	p.run = func(_ context.Context, name string, _ ...string) ([]byte, error) {
		calls = append(calls, name)
		if name == "wlr-randr" {
			return nil, errors.New("executable file not found in $PATH")
		}
		return []byte(hyprctlJSON), nil
	}

	monitors, err := p.Monitors(context.Background())
	if err != nil {
		t.Fatalf("Monitors() error = %v", err)
	}
	if len(monitors) != 1 || monitors[0].Name != "DP-1" {
		t.Errorf("Monitors() = %+v, want DP-1 from hyprctl", monitors)
	}
	if len(calls) != 2 {
		t.Errorf("backends called = %v, want both", calls)
	}
}

func TestCommandLister_AllBackendsFail(t *testing.T) {
	t.Parallel()

	p := NewCommandLister()
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("[]"), nil
	}

	_, err := p.Monitors(context.Background())
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Monitors() error = %v, want *BackendError", err)
	}
	if !errors.Is(err, ErrNoMonitors) {
		t.Errorf("Monitors() error should wrap ErrNoMonitors, got %v", err)
	}
	if len(backendErr.Errs) != 2 {
		t.Errorf("BackendError.Errs has %d entries, want 2", len(backendErr.Errs))
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()

	if _, err := (Static{}).Monitors(context.Background()); !errors.Is(err, ErrNoMonitors) {
		t.Errorf("empty Static error = %v, want ErrNoMonitors", err)
	}
	got, err := Static{{Name: "a", Width: 1, Height: 1, Refresh: 60}}.Monitors(context.Background())
	if err != nil || len(got) != 1 {
		t.Errorf("Static.Monitors() = %v, %v", got, err)
	}
}
