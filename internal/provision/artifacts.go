package provision

import (
	"context"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/mhavel/reposeed/internal/journal"
)

// recordArtifacts journals the sha256 digest and size of every rpm that
// appeared in the repository directory since the last download stage,
// attributing them to pkg. Best-effort: any trouble here is logged and the
// download stage still counts as succeeded.
func (p *Provisioner) recordArtifacts(ctx context.Context, run *Run, pkg string) {
	paths, err := filepath.Glob(filepath.Join(p.cfg.MountPoint, "*.rpm"))
	if err != nil {
		p.logger.WarnContext(ctx, "scanning for downloaded rpms failed", "error", err)
		return
	}

	for _, path := range paths {
		if run.seen[path] {
			continue
		}
		run.seen[path] = true

		dgst, size, err := digestFile(path)
		if err != nil {
			p.logger.WarnContext(ctx, "digesting rpm failed", "path", path, "error", err)
			continue
		}

		artifact := journal.Artifact{
			RunID:   run.ID,
			Package: pkg,
			Path:    path,
			Digest:  dgst.String(),
			Size:    size,
		}
		if err := p.journal.RecordArtifact(ctx, artifact); err != nil {
			p.logger.WarnContext(ctx, "recording artifact failed", "path", path, "error", err)
		}
	}
}

func digestFile(path string) (digest.Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	dgst, err := digest.FromReader(f)
	if err != nil {
		return "", 0, err
	}

	return dgst, info.Size(), nil
}
