// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"errors"
	"fmt"

	"github.com/walrus-wm/walrus/internal/scheduler"
)

// Control commands understood by the daemon.
const (
	CommandNext       Command = "next"
	CommandPrevious   Command = "previous"
	CommandPause      Command = "pause"
	CommandResume     Command = "resume"
	CommandToggle     Command = "toggle"
	CommandReload     Command = "reload"
	CommandReshuffle  Command = "reshuffle"
	CommandCategorise Command = "categorise"
	CommandShutdown   Command = "shutdown"
)

// Endpoint paths served over the socket.
const (
	PathCommand = "/command"
	PathStatus  = "/status"
	PathHealth  = "/health"
)

var (
	// ErrUnknownCommand is returned for a Command value outside the set above.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMissingArgument is returned when categorise has no category name.
	ErrMissingArgument = errors.New("missing argument")
)

type (
	// Command names a control operation.
	Command string

	// UnknownCommandError wraps ErrUnknownCommand.
	UnknownCommandError struct {
		Value Command
	}

	// Request is the body of POST /command.
	Request struct {
		// ID correlates the response; clients send a UUID.
		ID      string  `json:"id"`
		Command Command `json:"command"`
		// Argument is the category name for categorise, unused otherwise.
		Argument string `json:"argument,omitempty"`
	}

	// Response answers a Request, and GET /status with an empty ID.
	Response struct {
		ID    string `json:"id,omitempty"`
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
		// Result carries command output, such as the link categorise made.
		Result string            `json:"result,omitempty"`
		Status *scheduler.Status `json:"status,omitempty"`
	}
)

// Commands returns every command in the order `walrus help` lists them.
func Commands() []Command {
	return []Command{
		CommandNext, CommandPrevious, CommandPause, CommandResume, CommandToggle,
		CommandReload, CommandReshuffle, CommandCategorise, CommandShutdown,
	}
}

// Error implements the error interface.
func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", string(e.Value))
}

// Unwrap returns ErrUnknownCommand.
func (e *UnknownCommandError) Unwrap() error { return ErrUnknownCommand }

// Validate reports whether c is a known command.
func (c Command) Validate() error {
	switch c {
	case CommandNext, CommandPrevious, CommandPause, CommandResume, CommandToggle,
		CommandReload, CommandReshuffle, CommandCategorise, CommandShutdown:
		return nil
	default:
		return &UnknownCommandError{Value: c}
	}
}

// Validate checks the command and its argument.
func (r Request) Validate() error {
	if err := r.Command.Validate(); err != nil {
		return err
	}
	if r.Command == CommandCategorise && r.Argument == "" {
		return fmt.Errorf("%w: categorise needs a category name", ErrMissingArgument)
	}
	return nil
}
