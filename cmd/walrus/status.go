// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/walrus-wm/walrus/internal/ipc"
	"github.com/walrus-wm/walrus/internal/scheduler"
)

var (
	statusJSON bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show what the daemon is playing",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the status as JSON")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return fail(err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	st, err := client.Status(ctx)
	if err != nil {
		return fail(controlError(ipc.Command("status"), client.Socket(), err))
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	printStatus(out, st, time.Now())
	return nil
}

func printStatus(w io.Writer, st *scheduler.Status, now time.Time) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", renderLabelStyle.Render(fmt.Sprintf("%-10s", label)), value)
	}

	row("State", stateBadge(st.State))
	current := st.Current
	if current == "" {
		current = VerboseStyle.Render("(none)")
	}
	row("Wallpaper", current)
	row("Position", position(st))
	row("Directory", st.Root)
	order := "in order"
	if st.Shuffle {
		order = "shuffled"
	}
	row("Order", order)
	row("Interval", st.Interval.String())
	if !st.Next.IsZero() {
		row("Next", "in "+st.Next.Sub(now).Round(time.Second).String())
	}
	if st.LastError != "" {
		row("Last error", ErrorStyle.Render(st.LastError))
	}
}
