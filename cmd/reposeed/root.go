package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mhavel/reposeed/internal/journal"
	"github.com/mhavel/reposeed/internal/provision"
	"github.com/mhavel/reposeed/pkg/lock"
	"github.com/mhavel/reposeed/pkg/sysexec"
)

const stateDir = "/var/lib/reposeed"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reposeed [packages...]",
		Short: "One-shot provisioning of a loop-backed local package repository",
		Long: `reposeed prepares a host to serve a local package repository over HTTP:
it allocates a loop-backed ext4 filesystem under the web root, downloads the
given packages into it, builds repository metadata and starts the web server.

It runs once, fails fast on the first error and performs no rollback.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), args)
		},
	}

	cmd.AddCommand(newJournalCmd())

	return cmd
}

func runProvision(ctx context.Context, packages []string) error {
	locker := lock.NewFileLocker(stateDir)
	held, err := locker.Acquire(ctx, "reposeed")
	if err != nil {
		return err
	}
	defer func() { _ = held.Release() }()

	rec, closeJournal := openJournal(ctx)
	defer closeJournal()

	p := provision.New(provision.DefaultConfig(), sysexec.NewExecRunner(), rec)

	return p.Execute(ctx, os.Stdout, packages)
}

// openJournal falls back to a no-op recorder when the database cannot be
// opened; a broken journal must not block provisioning.
func openJournal(ctx context.Context) (journal.Recorder, func()) {
	j, err := journal.Open(ctx, filepath.Join(stateDir, "reposeed.db"))
	if err != nil {
		slog.Warn("run journal unavailable", "error", err)
		return journal.NewNoOpRecorder(), func() {}
	}

	return j, func() { _ = j.Close() }
}
