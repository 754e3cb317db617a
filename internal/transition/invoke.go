// SPDX-License-Identifier: MPL-2.0

// Package transition turns the transition configuration into a swww
// invocation and runs it.
package transition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/walrus-wm/walrus/internal/config"
)

// ErrInvocation is the sentinel wrapped by InvocationError.
var ErrInvocation = errors.New("swww invocation failed")

// ExitedMessage prefixes the exit code in an InvocationError message.
const ExitedMessage = "swww exited with code"

type (
	// Invoker sets a wallpaper. Implementations wait for completion and
	// never retry.
	Invoker interface {
		Invoke(ctx context.Context, path string, cfg *config.Config) (*Result, error)
	}

	// Result describes a finished invocation.
	Result struct {
		Args     []string
		Plan     Plan
		ExitCode int
		Stderr   string
		Elapsed  time.Duration
	}

	// InvocationError is returned when swww could not be started, timed
	// out, or exited non-zero.
	InvocationError struct {
		Path     string
		ExitCode int
		Stderr   string
		Err      error
	}

	// Exec runs swww as a child process.
	Exec struct {
		mu  sync.Mutex
		rnd Rand
	}
)

// Error implements the error interface.
func (e *InvocationError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "set wallpaper %s", e.Path)
	if e.Err != nil {
		fmt.Fprintf(&msg, ": %v", e.Err)
	} else {
		fmt.Fprintf(&msg, ": %s %d", ExitedMessage, e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&msg, ": %s", e.Stderr)
	}
	return msg.String()
}

// Unwrap returns the spawn error when there is one, otherwise ErrInvocation.
func (e *InvocationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvocation, e.Err}
	}
	return []error{ErrInvocation}
}

// Success reports whether swww exited cleanly.
func (r *Result) Success() bool { return r.ExitCode == 0 }

// NewExec returns an Exec drawing from rnd. A nil rnd is seeded from the clock.
func NewExec(rnd Rand) *Exec {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return &Exec{rnd: rnd}
}

// Invoke runs `swww img ... path` and waits for it to exit. The run is
// bounded by general.invoke_timeout when that is positive.
func (e *Exec) Invoke(ctx context.Context, path string, cfg *config.Config) (*Result, error) {
	e.mu.Lock()
	plan := NewPlan(cfg, e.rnd)
	e.mu.Unlock()

	args := Args(path, cfg, plan)
	res := &Result{Args: args, Plan: plan}

	if timeout := cfg.General.InvokeTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cfg.General.SwwwPath, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res.Elapsed = time.Since(start)
	res.Stderr = strings.TrimSpace(stderr.String())

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, &InvocationError{Path: path, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, ctx.Err())
		}
		res.ExitCode = -1
		return res, &InvocationError{Path: path, ExitCode: -1, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}
