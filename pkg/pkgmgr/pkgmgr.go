// Package pkgmgr drives the system package manager.
package pkgmgr

import (
	"context"
	"fmt"

	"github.com/mhavel/reposeed/pkg/sysexec"
)

// Manager is the subset of package manager operations the provisioner needs.
type Manager interface {
	// Install installs one package, answering yes to prompts.
	Install(ctx context.Context, pkg string) error
	// Download resolves one package and stores its artifacts under destDir
	// without installing anything.
	Download(ctx context.Context, destDir, pkg string) error
	// RepoList lists all configured repositories. The output is informational;
	// success is defined by the command's exit status alone.
	RepoList(ctx context.Context) error
	// RepoInfo lists available package information with every repository
	// disabled except repoID.
	RepoInfo(ctx context.Context, repoID string) error
}

// DNF shells out to dnf.
type DNF struct {
	runner sysexec.Runner
}

func NewDNF(runner sysexec.Runner) *DNF {
	return &DNF{runner: runner}
}

func (d *DNF) Install(ctx context.Context, pkg string) error {
	if err := d.runner.Run(ctx, "dnf", "-y", "install", pkg); err != nil {
		return fmt.Errorf("installing %s: %w", pkg, err)
	}

	return nil
}

func (d *DNF) Download(ctx context.Context, destDir, pkg string) error {
	err := d.runner.Run(ctx, "dnf", "-y", "install", "--downloadonly", "--downloaddir="+destDir, pkg)
	if err != nil {
		return fmt.Errorf("downloading %s into %s: %w", pkg, destDir, err)
	}

	return nil
}

func (d *DNF) RepoList(ctx context.Context) error {
	if err := d.runner.Run(ctx, "dnf", "repolist"); err != nil {
		return fmt.Errorf("listing repositories: %w", err)
	}

	return nil
}

func (d *DNF) RepoInfo(ctx context.Context, repoID string) error {
	err := d.runner.Run(ctx, "dnf", "--disablerepo=*", "--enablerepo="+repoID, "info", "available")
	if err != nil {
		return fmt.Errorf("querying package info from repo %s: %w", repoID, err)
	}

	return nil
}
