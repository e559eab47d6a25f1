// Package repomd builds package repository metadata over a directory of rpms.
package repomd

import (
	"context"
	"fmt"

	"github.com/mhavel/reposeed/pkg/sysexec"
)

type Generator struct {
	runner sysexec.Runner
}

func NewGenerator(runner sysexec.Runner) *Generator {
	return &Generator{runner: runner}
}

// Create generates the repodata index for every package under dir.
func (g *Generator) Create(ctx context.Context, dir string) error {
	if err := g.runner.Run(ctx, "createrepo_c", dir); err != nil {
		return fmt.Errorf("creating repository metadata in %s: %w", dir, err)
	}

	return nil
}

// RestoreLabels recursively resets SELinux file contexts under dir. Without
// this a confined web server process is denied access to freshly written
// repository content.
func (g *Generator) RestoreLabels(ctx context.Context, dir string) error {
	if err := g.runner.Run(ctx, "restorecon", "-R", dir); err != nil {
		return fmt.Errorf("restoring SELinux labels under %s: %w", dir, err)
	}

	return nil
}
