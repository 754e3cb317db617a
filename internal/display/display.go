// SPDX-License-Identifier: MPL-2.0

// Package display discovers connected monitors so the configuration can infer
// a resolution and a frame rate when the user leaves them unset.
package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
)

// ErrNoMonitors is returned when no backend reports an enabled output.
var ErrNoMonitors = errors.New("no active monitors found")

type (
	// Monitor is an enabled output in its current mode.
	Monitor struct {
		Name    string
		Width   int
		Height  int
		Refresh float64
	}

	// Lister lists the connected monitors.
	Lister interface {
		Monitors(ctx context.Context) ([]Monitor, error)
	}

	// Static is a Lister that always returns the same monitors.
	Static []Monitor

	// Backend is one external command that can describe the outputs.
	Backend struct {
		Name   string
		Args   []string
		Decode func([]byte) ([]Monitor, error)
	}

	// CommandLister asks each backend in turn and returns the first
	// non-empty answer.
	CommandLister struct {
		Backends []Backend
		run      func(ctx context.Context, name string, args ...string) ([]byte, error)
	}

	// BackendError collects the failure of every backend that was tried.
	BackendError struct {
		Errs []error
	}

	wlrOutput struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
		Modes   []struct {
			Width   int     `json:"width"`
			Height  int     `json:"height"`
			Refresh float64 `json:"refresh"`
			Current bool    `json:"current"`
		} `json:"modes"`
	}

	hyprMonitor struct {
		Name        string  `json:"name"`
		Width       int     `json:"width"`
		Height      int     `json:"height"`
		RefreshRate float64 `json:"refreshRate"`
		Disabled    bool    `json:"disabled"`
	}
)

// Area returns the pixel count of the monitor's current mode.
func (m Monitor) Area() int {
	return m.Width * m.Height
}

// FPS returns the refresh rate rounded to a whole frame rate.
func (m Monitor) FPS() int {
	return int(math.Round(m.Refresh))
}

// Monitors implements Lister.
func (s Static) Monitors(context.Context) ([]Monitor, error) {
	if len(s) == 0 {
		return nil, ErrNoMonitors
	}
	return []Monitor(s), nil
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("list monitors: %v", errors.Join(e.Errs...))
}

// Unwrap returns every backend failure for errors.Is/As.
func (e *BackendError) Unwrap() []error {
	return e.Errs
}

// NewCommandLister returns a lister that tries wlr-randr and then hyprctl.
func NewCommandLister() *CommandLister {
	return &CommandLister{
		Backends: []Backend{
			{Name: "wlr-randr", Args: []string{"--json"}, Decode: DecodeWlrRandr},
			{Name: "hyprctl", Args: []string{"monitors", "-j"}, Decode: DecodeHyprctl},
		},
	}
}

// Monitors implements Lister.
func (p *CommandLister) Monitors(ctx context.Context) ([]Monitor, error) {
	run := p.run
	if run == nil {
		run = runCommand
	}

	var errs []error
	for _, b := range p.Backends {
		out, err := run(ctx, b.Name, b.Args...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			continue
		}
		monitors, err := b.Decode(out)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			continue
		}
		if len(monitors) == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, ErrNoMonitors))
			continue
		}
		return monitors, nil
	}
	if len(errs) == 0 {
		return nil, ErrNoMonitors
	}
	return nil, &BackendError{Errs: errs}
}

// Best picks the monitor with the highest refresh rate, breaking ties by
// the larger area. It reports false for an empty slice.
func Best(monitors []Monitor) (Monitor, bool) {
	if len(monitors) == 0 {
		return Monitor{}, false
	}
	best := monitors[0]
	for _, m := range monitors[1:] {
		switch {
		case m.Refresh > best.Refresh:
			best = m
		case m.Refresh == best.Refresh && m.Area() > best.Area():
			best = m
		}
	}
	return best, true
}

// DecodeWlrRandr parses `wlr-randr --json` output.
func DecodeWlrRandr(data []byte) ([]Monitor, error) {
	var outputs []wlrOutput
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, fmt.Errorf("decode wlr-randr output: %w", err)
	}

	var monitors []Monitor
	for _, o := range outputs {
		if !o.Enabled {
			continue
		}
		for _, mode := range o.Modes {
			if !mode.Current {
				continue
			}
			monitors = append(monitors, Monitor{
				Name:    o.Name,
				Width:   mode.Width,
				Height:  mode.Height,
				Refresh: mode.Refresh,
			})
			break
		}
	}
	return monitors, nil
}

// DecodeHyprctl parses `hyprctl monitors -j` output.
func DecodeHyprctl(data []byte) ([]Monitor, error) {
	var outputs []hyprMonitor
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, fmt.Errorf("decode hyprctl output: %w", err)
	}

	var monitors []Monitor
	for _, o := range outputs {
		if o.Disabled {
			continue
		}
		monitors = append(monitors, Monitor{
			Name:    o.Name,
			Width:   o.Width,
			Height:  o.Height,
			Refresh: o.RefreshRate,
		})
	}
	return monitors, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
