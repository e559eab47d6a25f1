package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Recorder is what the pipeline needs from a journal. *Journal implements
// it; NoOpRecorder stands in when the database cannot be opened.
type Recorder interface {
	BeginRun(ctx context.Context, packages []string) (*Run, error)
	RecordStep(ctx context.Context, runID string, seq int, name string, stepErr error) error
	RecordArtifact(ctx context.Context, a Artifact) error
	SetLoopDevice(ctx context.Context, runID, device string) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

type NoOpRecorder struct{}

func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

// BeginRun still hands out a run id so logs stay correlated even without a
// database behind them.
func (r *NoOpRecorder) BeginRun(ctx context.Context, packages []string) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	return &Run{ID: id.String(), Status: StatusRunning, StartedAt: time.Now()}, nil
}

func (r *NoOpRecorder) RecordStep(ctx context.Context, runID string, seq int, name string, stepErr error) error {
	return nil
}

func (r *NoOpRecorder) RecordArtifact(ctx context.Context, a Artifact) error {
	return nil
}

func (r *NoOpRecorder) SetLoopDevice(ctx context.Context, runID, device string) error {
	return nil
}

func (r *NoOpRecorder) FinishRun(ctx context.Context, runID string, runErr error) error {
	return nil
}
