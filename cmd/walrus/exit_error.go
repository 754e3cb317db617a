// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/walrus-wm/walrus/internal/config"
	"github.com/walrus-wm/walrus/internal/daemon"
	"github.com/walrus-wm/walrus/internal/ipc"
	"github.com/walrus-wm/walrus/internal/issue"
	"github.com/walrus-wm/walrus/internal/playlist"
	"github.com/walrus-wm/walrus/internal/scheduler"
	"github.com/walrus-wm/walrus/internal/transition"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
	// Detail replaces Err's message when set.
	Detail string
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("exit status %d", e.Code)
	}
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// fail turns err into an exit status 1 carrying the formatted message and,
// when the failure is a known one, its troubleshooting page.
func fail(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	detail := formatErrorForDisplay(err, verbose)
	if id := classifyError(err); id != 0 {
		if page := issue.Get(id); page != nil {
			rendered, renderErr := page.Render("auto")
			if renderErr != nil {
				slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
			} else {
				detail += "\n" + strings.TrimRight(rendered, "\n")
			}
		}
	}
	return &ExitError{Code: 1, Err: err, Detail: detail}
}

// classifyError maps a failure to its issue catalog entry, or 0. Errors that
// come back from the daemon only carry their message, so those are matched
// by text.
func classifyError(err error) issue.Id {
	var ie *issue.Error
	if errors.As(err, &ie) && ie.Issue != 0 {
		return ie.Issue
	}

	switch {
	case errors.Is(err, ipc.ErrDaemonNotRunning):
		return issue.DaemonNotRunningId
	case errors.Is(err, daemon.ErrAlreadyRunning):
		return issue.DaemonAlreadyRunningId
	case errors.Is(err, ipc.ErrSocketInUse):
		return issue.SocketInUseId
	case errors.Is(err, config.ErrConfigExists):
		return issue.ConfigExistsId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigInvalidId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	}

	var cmdErr *ipc.CommandError
	if !errors.As(err, &cmdErr) {
		return 0
	}
	switch msg := cmdErr.Message; {
	case strings.Contains(msg, playlist.ErrEmpty.Error()):
		return issue.WallpaperDirEmptyId
	case strings.Contains(msg, scheduler.ErrCategoryConflict.Error()):
		return issue.CategoriseConflictId
	case strings.Contains(msg, "executable file not found"), strings.Contains(msg, "no such file or directory"):
		return issue.SwwwNotFoundId
	case strings.Contains(msg, transition.ExitedMessage):
		return issue.SwwwFailedId
	}
	return 0
}
