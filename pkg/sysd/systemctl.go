// Package sysd controls systemd units via systemctl.
package sysd

import (
	"context"
	"fmt"

	"github.com/mhavel/reposeed/pkg/sysexec"
)

type Systemctl struct {
	runner sysexec.Runner
}

func New(runner sysexec.Runner) *Systemctl {
	return &Systemctl{runner: runner}
}

func (s *Systemctl) Start(ctx context.Context, unit string) error {
	if err := s.runner.Run(ctx, "systemctl", "start", unit); err != nil {
		return fmt.Errorf("starting %s: %w", unit, err)
	}

	return nil
}

// Enable marks the unit for automatic start on boot. It does not start it.
func (s *Systemctl) Enable(ctx context.Context, unit string) error {
	if err := s.runner.Run(ctx, "systemctl", "enable", unit); err != nil {
		return fmt.Errorf("enabling %s: %w", unit, err)
	}

	return nil
}
