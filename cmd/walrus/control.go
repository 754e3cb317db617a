// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/walrus-wm/walrus/internal/ipc"
	"github.com/walrus-wm/walrus/internal/issue"
	"github.com/walrus-wm/walrus/internal/scheduler"
)

// controlTimeout bounds a control request. Commands queue behind a running
// transition, so this is generous.
const controlTimeout = 2 * time.Minute

// newControlCommands creates one subcommand per argument-less control
// command.
func newControlCommands() []*cobra.Command {
	specs := []struct {
		command ipc.Command
		short   string
		aliases []string
	}{
		{ipc.CommandNext, "Switch to the next wallpaper now", []string{"n"}},
		{ipc.CommandPrevious, "Switch back to the previous wallpaper", []string{"prev", "p"}},
		{ipc.CommandPause, "Stop changing wallpapers automatically", nil},
		{ipc.CommandResume, "Resume automatic changes", []string{"play"}},
		{ipc.CommandToggle, "Pause when playing, resume when paused", nil},
		{ipc.CommandReload, "Re-read the config and rescan the wallpaper directory", nil},
		{ipc.CommandReshuffle, "Draw a new random order", nil},
		{ipc.CommandShutdown, "Stop the daemon", []string{"quit"}},
	}

	cmds := make([]*cobra.Command, 0, len(specs)+1)
	for _, s := range specs {
		cmds = append(cmds, &cobra.Command{
			Use:     string(s.command),
			Short:   s.short,
			Aliases: s.aliases,
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runControl(cmd, s.command, "")
			},
		})
	}

	cmds = append(cmds, &cobra.Command{
		Use:     "categorise <name>",
		Short:   "Link the current wallpaper into the .<name> category directory",
		Aliases: []string{"categorize"},
		Long: `Link the current wallpaper into a hidden category directory.

The link is created at <wallpaper_path>/.<name>/<relative path> and points
at the wallpaper. Hidden directories are never played, so categories do
not change the playlist. Point wallpaper_path at a category directory to
play only that category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, ipc.CommandCategorise, args[0])
		},
	})
	return cmds
}

func runControl(cmd *cobra.Command, command ipc.Command, arg string) error {
	client, err := newClient()
	if err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), controlTimeout)
	defer cancel()

	resp, err := client.Send(ctx, command, arg)
	if err != nil {
		return fail(controlError(command, client.Socket(), err))
	}

	out := cmd.OutOrStdout()
	switch command {
	case ipc.CommandShutdown:
		fmt.Fprintf(out, "%s daemon stopping\n", SuccessStyle.Render("✓"))
	case ipc.CommandCategorise:
		fmt.Fprintf(out, "%s linked %s\n", SuccessStyle.Render("✓"), resp.Result)
	default:
		if resp.Status != nil {
			printStatusLine(out, resp.Status)
		}
	}
	return nil
}

func newClient() (*ipc.Client, error) {
	paths, _, err := resolvePaths()
	if err != nil {
		return nil, err
	}
	return ipc.NewClient(paths.Socket()), nil
}

func controlError(command ipc.Command, socket string, err error) error {
	e := issue.Wrap(err, "send "+string(command))
	if errors.Is(err, ipc.ErrDaemonNotRunning) {
		e.On(socket).
			See(issue.DaemonNotRunningId).
			Try("Start it with '" + CmdStyle.Render("walrus") + "'")
	}
	return e
}

// printStatusLine writes a one-line summary after a control command.
func printStatusLine(w io.Writer, st *scheduler.Status) {
	current := st.Current
	if current == "" {
		current = VerboseStyle.Render("(none)")
	}
	fmt.Fprintf(w, "%s %s  %s\n", stateBadge(st.State), current, SubtitleStyle.Render(position(st)))
}

func position(st *scheduler.Status) string {
	if st.Length == 0 {
		return "[0/0]"
	}
	return fmt.Sprintf("[%d/%d]", st.Index+1, st.Length)
}

func stateBadge(s scheduler.State) string {
	if s == scheduler.Paused {
		return WarningStyle.Render("⏸ " + s.String())
	}
	return SuccessStyle.Render("▶ " + s.String())
}
