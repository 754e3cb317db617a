// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/walrus-wm/walrus/internal/config"
	"github.com/walrus-wm/walrus/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging in the daemon and error chains in the CLI.
	verbose bool
	// cfgFile overrides the config file location.
	cfgFile string

	// rootCmd runs the daemon when called without a subcommand.
	rootCmd = &cobra.Command{
		Use:   "walrus",
		Short: "Cycle swww wallpapers with random transitions",
		Long: TitleStyle.Render("walrus") + SubtitleStyle.Render(" - a wallpaper cycler for swww") + `

Run without a subcommand to start the daemon. It picks the next image
from your wallpaper directory every interval and hands it to swww with a
randomly chosen transition. The other subcommands talk to the running
daemon over its control socket.

` + SubtitleStyle.Render("Quick Start:") + `
  1. walrus init            Write the default config
  2. walrus &               Start the daemon
  3. walrus next            Skip to the next wallpaper

` + SubtitleStyle.Render("Examples:") + `
  walrus pause              Keep the current wallpaper
  walrus categorise dark    Link the current wallpaper into .dark/
  walrus status             Show what is playing`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and full error chains")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/walrus/config.toml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(newCompletionCommand())
	for _, c := range newControlCommands() {
		rootCmd.AddCommand(c)
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// shutdownSignals cancel the command context. The daemon cleans up on
// either; SIGTERM is what service managers and session teardown send.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Execute runs the CLI and exits with its status. It is called by main.main().
func Execute() {
	os.Exit(Run())
}

// Run runs the CLI and returns the process exit code.
func Run() int {
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(shutdownSignals...),
		fang.WithErrorHandler(errorHandler),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// resolvePaths returns the per-user directories, honouring --config.
func resolvePaths() (paths config.Paths, configFile string, err error) {
	paths, err = config.ResolvePaths(os.Getenv)
	if err != nil {
		return config.Paths{}, "", issue.Wrap(err, "resolve walrus directories").
			Try("Set HOME, or XDG_CONFIG_HOME, XDG_STATE_HOME and XDG_RUNTIME_DIR")
	}
	configFile = paths.ConfigFile()
	if cfgFile != "" {
		configFile, err = config.ExpandPath(cfgFile, os.Getenv)
		if err == nil {
			configFile, err = filepath.Abs(configFile)
		}
		if err != nil {
			return config.Paths{}, "", fmt.Errorf("resolve --config: %w", err)
		}
	}
	return paths, configFile, nil
}

// errorHandler prints failures that were already formatted by fail as they
// are, and leaves usage errors to fang.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Detail != "" {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), exitErr.Detail)
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay renders an issue.Error with its hint, and any other
// error by its message.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ie *issue.Error
	if errors.As(err, &ie) {
		return ie.Format(verboseMode)
	}
	return err.Error()
}
