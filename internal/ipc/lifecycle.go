// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	// StateCreated means Start has not been called.
	StateCreated State = iota
	// StateStarting means the socket is being bound.
	StateStarting
	// StateRunning means the server accepts requests.
	StateRunning
	// StateStopping means Stop is draining requests.
	StateStopping
	// StateStopped is terminal.
	StateStopped
	// StateFailed is terminal: binding failed or serving broke.
	StateFailed
)

type (
	// State is the lifecycle state of a Server.
	State int32

	// lifecycle tracks a single-use server: once stopped or failed, create
	// a new one.
	lifecycle struct {
		state   atomic.Int32
		mu      sync.Mutex
		lastErr error

		ctx    context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup
		errCh  chan error
	}
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is Stopped or Failed.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

func newLifecycle() *lifecycle {
	l := &lifecycle{errCh: make(chan error, 1)}
	l.state.Store(int32(StateCreated))
	return l
}

func (l *lifecycle) current() State {
	return State(l.state.Load())
}

// starting moves Created to Starting. A cancelled ctx fails the server
// before anything is bound.
func (l *lifecycle) starting(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		l.failed(fmt.Errorf("context cancelled before start: %w", err))
		return l.err()
	}
	if !l.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", l.current())
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return nil
}

func (l *lifecycle) running() {
	l.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
}

func (l *lifecycle) failed(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()

	l.state.Store(int32(StateFailed))
	if l.cancel != nil {
		l.cancel()
	}
	select {
	case l.errCh <- err:
	default:
	}
}

// stopping reports whether the caller won the right to shut down.
func (l *lifecycle) stopping() bool {
	for {
		cur := l.current()
		switch cur {
		case StateCreated:
			if l.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return false
			}
		case StateStarting, StateRunning:
			if l.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
				if l.cancel != nil {
					l.cancel()
				}
				return true
			}
		default:
			return false
		}
	}
}

func (l *lifecycle) stopped() {
	l.state.Store(int32(StateStopped))
}

func (l *lifecycle) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
