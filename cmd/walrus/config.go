// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/walrus-wm/walrus/internal/config"
	"github.com/walrus-wm/walrus/internal/display"
	"github.com/walrus-wm/walrus/internal/issue"
)

// newConfigCommand creates the `walrus config` command tree.
func newConfigCommand() *cobra.Command {
	var defaults bool

	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Long: `Print the configuration the daemon would use, as TOML.

Paths are expanded, and the resolution and frame rate are filled in from
the connected monitors when the file leaves them unset. An unusable file
is reported on stderr and the built-in defaults are printed instead.

Configuration is stored in $XDG_CONFIG_HOME/walrus/config.toml
(~/.config/walrus/config.toml by default).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *config.Config
			if defaults {
				cfg = config.DefaultConfig()
			} else {
				_, path, err := resolvePaths()
				if err != nil {
					return fail(err)
				}
				loader := &config.Loader{
					Path:   path,
					Lister: display.NewCommandLister(),
					Logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: config.AppName, Level: log.WarnLevel}),
				}
				cfg = loader.Load(cmd.Context())
			}

			body, err := config.Encode(cfg)
			if err != nil {
				return fail(err)
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cfgCmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults instead")

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, path, err := resolvePaths()
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, path, err := resolvePaths()
			if err != nil {
				return fail(err)
			}
			return checkConfig(cmd, path)
		},
	})

	return cfgCmd
}

func checkConfig(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	_, err := config.LoadFile(path)
	var loadErr *config.LoadError
	switch {
	case err == nil:
		fmt.Fprintf(out, "%s %s is valid\n", SuccessStyle.Render("✓"), path)
		return nil
	case errors.As(err, &loadErr) && loadErr.Missing():
		fmt.Fprintf(out, "%s %s does not exist, the built-in defaults apply\n", WarningStyle.Render("!"), path)
		fmt.Fprintf(out, "  Run '%s' to write them to disk\n", CmdStyle.Render("walrus init"))
		return nil
	default:
		return fail(issue.Wrap(errors.Unwrap(err), "check config").
			See(issue.ConfigInvalidId).
			Try("Fix the reported keys and run '" + CmdStyle.Render("walrus config check") + "' again"))
	}
}
