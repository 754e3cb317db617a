// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/walrus-wm/walrus/internal/config"
	"github.com/walrus-wm/walrus/internal/issue"
)

var (
	initForce    bool
	initInterval int

	// initCmd writes the default configuration
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration and create the wallpaper directory",
		Long: `Write the default configuration file and create the wallpaper directory.

An existing configuration file is left alone unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	initCmd.Flags().IntVarP(&initInterval, "interval", "i", 0, "seconds between wallpaper changes (default 300)")
}

func runInit(cmd *cobra.Command, _ []string) error {
	if initInterval < 0 {
		return fail(fmt.Errorf("--interval must be positive, got %d", initInterval))
	}
	_, path, err := resolvePaths()
	if err != nil {
		return fail(err)
	}

	if err := config.WriteDefault(path, initInterval, initForce); err != nil {
		e := issue.Wrap(err, "write config").On(path)
		if errors.Is(err, config.ErrConfigExists) {
			e.See(issue.ConfigExistsId).Try("Use --force to overwrite it")
		}
		return fail(e)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created %s\n", SuccessStyle.Render("✓"), path)

	walls, err := config.ExpandPath(config.DefaultWallpaperPath, os.Getenv)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(walls, 0o755); err != nil {
		return fail(issue.Wrap(err, "create wallpaper directory").On(walls))
	}
	fmt.Fprintf(out, "%s Wallpaper directory %s\n", SuccessStyle.Render("✓"), walls)

	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintln(out, "  1. Put some images into the wallpaper directory")
	fmt.Fprintf(out, "  2. Start the daemon with '%s'\n", CmdStyle.Render("walrus"))
	fmt.Fprintf(out, "  3. Run '%s' to skip ahead\n", CmdStyle.Render("walrus next"))
	return nil
}
