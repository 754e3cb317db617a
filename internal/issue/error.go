// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
)

// Error is a failed walrus operation as the CLI reports it: what was being
// attempted, on which socket or file, the catalog page explaining the
// failure and the next thing to try.
//
// Build one from the cause and chain the optional parts:
//
//	return issue.Wrap(err, "send next").
//		On(socket).
//		See(issue.DaemonNotRunningId).
//		Try("Start it with 'walrus'")
type Error struct {
	// Op is a verb phrase such as "send next" or "write config".
	Op string
	// Resource is the path the operation touched, if any.
	Resource string
	// Issue links the catalog page printed below the message.
	Issue Id
	// Hint is a one-line next step.
	Hint string
	Err  error
}

// Wrap starts an Error for a failed op. The cause may be nil for failures
// detected by walrus itself.
func Wrap(err error, op string) *Error {
	return &Error{Op: op, Err: err}
}

// On sets the resource.
func (e *Error) On(resource string) *Error {
	e.Resource = resource
	return e
}

// See links a catalog page.
func (e *Error) See(id Id) *Error {
	e.Issue = id
	return e
}

// Try sets the hint.
func (e *Error) Try(hint string) *Error {
	e.Hint = hint
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Op)
	if e.Resource != "" {
		b.WriteString(": ")
		b.WriteString(e.Resource)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Page returns the linked catalog entry, or nil.
func (e *Error) Page() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

// Format renders the message for the terminal. The hint goes on its own
// line; verbose output also lists every wrapped cause whose text differs
// from the one before it, which is where the daemon's reply and the
// underlying syscall error usually hide.
func (e *Error) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())
	if e.Hint != "" {
		b.WriteString("\n  → ")
		b.WriteString(e.Hint)
	}
	if !verbose {
		return b.String()
	}
	prev := ""
	for cause := e.Err; cause != nil; cause = errors.Unwrap(cause) {
		msg := cause.Error()
		if msg == prev {
			continue
		}
		b.WriteString("\n  caused by: ")
		b.WriteString(msg)
		prev = msg
	}
	return b.String()
}
