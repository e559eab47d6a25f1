package provision

import (
	"context"
	"log/slog"

	"github.com/mhavel/reposeed/internal/journal"
)

// journalObserver mirrors every attempted stage into the run journal.
type journalObserver struct {
	rec    journal.Recorder
	runID  string
	logger *slog.Logger
}

func (o *journalObserver) StageDone(ctx context.Context, seq int, name string, err error) {
	if jerr := o.rec.RecordStep(ctx, o.runID, seq, name, err); jerr != nil {
		o.logger.WarnContext(ctx, "recording step failed", "seq", seq, "stage", name, "error", jerr)
	}
}
