// Package pipeline runs an ordered list of provisioning stages with
// fail-fast semantics and a numbered operator transcript.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Stage is one externally visible provisioning step. Run performs the
// action; Success and Failure are the operator-facing messages for the
// transcript.
type Stage struct {
	Name    string
	Success string
	Failure string
	Run     func(ctx context.Context) error
}

// Observer is notified after each attempted stage. seq is 1-based and
// matches the transcript numbering.
type Observer interface {
	StageDone(ctx context.Context, seq int, name string, err error)
}

// Driver executes stages in declaration order, writing the transcript to w.
// Each success prints "<n>) <message>" and a blank line; the first failure
// prints "ERROR: <message>", skips every remaining stage and is returned to
// the caller. There are no retries and no rollback: state mutated by earlier
// stages stays as it is.
type Driver struct {
	out      io.Writer
	observer Observer
	logger   *slog.Logger
}

func NewDriver(out io.Writer, observer Observer) *Driver {
	return &Driver{
		out:      out,
		observer: observer,
		logger:   slog.Default(),
	}
}

func (d *Driver) Execute(ctx context.Context, stages []Stage) error {
	for i, stage := range stages {
		seq := i + 1

		err := stage.Run(ctx)
		if d.observer != nil {
			d.observer.StageDone(ctx, seq, stage.Name, err)
		}

		if err != nil {
			d.logger.ErrorContext(ctx, "stage failed", "seq", seq, "stage", stage.Name, "error", err)
			fmt.Fprintf(d.out, "ERROR: %s\n\n", stage.Failure)

			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		d.logger.InfoContext(ctx, "stage completed", "seq", seq, "stage", stage.Name)
		fmt.Fprintf(d.out, "%d) %s\n\n", seq, stage.Success)
	}

	return nil
}
