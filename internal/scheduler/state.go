// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"fmt"
	"time"
)

const (
	// Playing means the scheduler advances on its own every interval.
	Playing State = iota
	// Paused means only manual commands change the wallpaper.
	Paused
)

type (
	// State is the playback state.
	State int32

	// Status is a point-in-time snapshot of the scheduler.
	Status struct {
		State State `json:"state"`
		// Current is the absolute path of the wallpaper on screen, empty
		// when the playlist is empty.
		Current string `json:"current,omitempty"`
		Index   int    `json:"index"`
		Length  int    `json:"length"`
		Shuffle bool   `json:"shuffle"`
		// Root is the wallpaper directory the playlist was built from.
		Root string `json:"root"`
		// Interval is the configured delay between automatic advances.
		Interval time.Duration `json:"interval"`
		// Next is the deadline of the next automatic advance. Zero while
		// paused.
		Next time.Time `json:"next,omitzero"`
		// LastError describes the most recent failed invocation, cleared by
		// the next success.
		LastError string `json:"last_error,omitempty"`
	}
)

// String returns "playing" or "paused".
func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	switch s {
	case Playing, Paused:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("invalid playback state %d", int32(s))
	}
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "playing":
		*s = Playing
	case "paused":
		*s = Paused
	default:
		return fmt.Errorf("invalid playback state %q", text)
	}
	return nil
}
