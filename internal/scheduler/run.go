// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/walrus-wm/walrus/internal/playlist"
)

// deadline is the time of the next automatic advance. The zero value is
// disarmed.
type deadline struct {
	at time.Time
}

func (d *deadline) set(t time.Time) { d.at = t }

func (d *deadline) clear() { d.at = time.Time{} }

func (d *deadline) armed() bool { return !d.at.IsZero() }

// Run drives automatic advances until ctx is cancelled. It sleeps until the
// deadline, or indefinitely while paused, and re-evaluates whenever another
// operation moves the deadline.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		armed := s.state == Playing && s.deadline.armed()
		at := s.deadline.at
		s.mu.Unlock()

		var fire <-chan time.Time
		if armed {
			fire = s.clock.After(at.Sub(s.clock.Now()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-fire:
			s.tickIfDue(ctx)
			// The advance woke us itself; the loop re-reads the deadline anyway.
			s.drainWake()
		}
	}
}

// tickIfDue advances unless a command moved the deadline while the loop
// was waiting for the operation lock.
func (s *Scheduler) tickIfDue(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	due := s.state == Playing && s.deadline.armed() && !s.clock.Now().Before(s.deadline.at)
	s.mu.Unlock()
	if !due {
		return
	}

	err := s.advance(ctx, playlist.Forward)
	if err != nil && !errors.Is(err, playlist.ErrEmpty) && ctx.Err() == nil {
		s.logger.Debug("automatic advance failed; retrying next interval")
	}
}

func (s *Scheduler) drainWake() {
	select {
	case <-s.wake:
	default:
	}
}
