// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/walrus-wm/walrus/internal/daemon"
	"github.com/walrus-wm/walrus/internal/ipc"
	"github.com/walrus-wm/walrus/internal/issue"
)

func runDaemon(cmd *cobra.Command, _ []string) error {
	paths, configFile, err := resolvePaths()
	if err != nil {
		return fail(err)
	}

	err = daemon.Run(cmd.Context(), daemon.Options{
		Paths:      paths,
		ConfigFile: configFile,
		Verbose:    verbose,
		Console:    os.Stderr,
	})

	var running *daemon.AlreadyRunningError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &running):
		return fail(issue.Wrap(err, "start daemon").
			On(running.Lock).
			See(issue.DaemonAlreadyRunningId).
			Try("Stop it with '" + CmdStyle.Render("walrus shutdown") + "' first"))
	case errors.Is(err, ipc.ErrSocketInUse):
		return fail(issue.Wrap(err, "start daemon").On(paths.Socket()).See(issue.SocketInUseId))
	default:
		return fail(issue.Wrap(err, "start daemon"))
	}
}
