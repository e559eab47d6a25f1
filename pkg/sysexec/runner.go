// Package sysexec wraps invocation of external system tools so callers can
// be tested against a recording fake instead of a live host.
package sysexec

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// Runner executes one external command and reports only its exit status.
// Run blocks until the command exits; there is no timeout beyond ctx.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type ExecRunner struct {
	logger *slog.Logger
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{logger: slog.Default()}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	r.logger.DebugContext(ctx, "running command", "name", name, "args", args)

	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}
