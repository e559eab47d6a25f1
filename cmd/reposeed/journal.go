package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhavel/reposeed/internal/journal"
)

func newJournalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "List past provisioning runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.Open(cmd.Context(), filepath.Join(stateDir, "reposeed.db"))
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tLOOP DEVICE\tPACKAGES")
			for _, run := range runs {
				device := "-"
				if run.LoopDevice != nil {
					device = *run.LoopDevice
				}
				packages := run.Packages
				if packages == "" {
					packages = "-"
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.ID, run.Status, run.StartedAt.Format(time.RFC3339), device, packages)
			}

			return w.Flush()
		},
	}
}
