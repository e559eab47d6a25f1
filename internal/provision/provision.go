// Package provision assembles and executes the host provisioning pipeline:
// loop-backed ext4 filesystem under the web root, a local package
// repository built from downloaded rpms, and a running web server to serve
// it. The pipeline mutates persistent host state and performs no rollback;
// a failed run leaves everything done so far in place.
package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mhavel/reposeed/internal/journal"
	"github.com/mhavel/reposeed/internal/pipeline"
	"github.com/mhavel/reposeed/pkg/blockdev"
	"github.com/mhavel/reposeed/pkg/fstab"
	"github.com/mhavel/reposeed/pkg/hostnet"
	"github.com/mhavel/reposeed/pkg/pkgmgr"
	"github.com/mhavel/reposeed/pkg/repomd"
	"github.com/mhavel/reposeed/pkg/sysd"
	"github.com/mhavel/reposeed/pkg/sysexec"
)

// Run is the mutable state threaded through the stages of one invocation.
type Run struct {
	ID         string
	LoopDevice string

	// rpm files already attributed to a package, keyed by path
	seen map[string]bool
}

type Provisioner struct {
	cfg     Config
	runner  sysexec.Runner
	pkg     pkgmgr.Manager
	repo    *repomd.Generator
	sysctl  *sysd.Systemctl
	journal journal.Recorder
	logger  *slog.Logger

	// Host-coupled operations, replaceable in tests.
	AttachLoop  func(file string) (string, error)
	CheckUplink func() error
	OpenTCPPort func(port int) error
}

func New(cfg Config, runner sysexec.Runner, rec journal.Recorder) *Provisioner {
	return &Provisioner{
		cfg:     cfg,
		runner:  runner,
		pkg:     pkgmgr.NewDNF(runner),
		repo:    repomd.NewGenerator(runner),
		sysctl:  sysd.New(runner),
		journal: rec,
		logger:  slog.Default(),

		AttachLoop: func(file string) (string, error) {
			loop, err := blockdev.Attach(file)
			if err != nil {
				return "", err
			}
			// The device stays attached after the process exits; later
			// stages and the fstab entry reference it by path.
			return loop.Path(), nil
		},
		CheckUplink: hostnet.CheckUplink,
		OpenTCPPort: hostnet.OpenTCPPort,
	}
}

// Execute runs the whole pipeline, writing the numbered operator transcript
// to out. It returns the first stage failure, if any; journal trouble is
// only ever logged.
func (p *Provisioner) Execute(ctx context.Context, out io.Writer, packages []string) error {
	jrun, err := p.journal.BeginRun(ctx, packages)
	if err != nil {
		p.logger.WarnContext(ctx, "journal unavailable for this run", "error", err)
		jrun = &journal.Run{}
	}

	run := &Run{ID: jrun.ID, seen: map[string]bool{}}
	logger := p.logger.With("run_id", run.ID)
	logger.InfoContext(ctx, "starting provisioning run", "packages", packages)

	driver := pipeline.NewDriver(out, &journalObserver{
		rec:    p.journal,
		runID:  run.ID,
		logger: logger,
	})

	err = driver.Execute(ctx, p.stages(run, packages))

	if jerr := p.journal.FinishRun(ctx, run.ID, err); jerr != nil {
		logger.WarnContext(ctx, "recording run outcome failed", "error", jerr)
	}

	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "provisioning run completed")

	return nil
}

func (p *Provisioner) stages(run *Run, packages []string) []pipeline.Stage {
	cfg := p.cfg

	stages := []pipeline.Stage{
		{
			Name:    "network-preflight",
			Success: "network uplink verified",
			Failure: "no usable network uplink",
			Run: func(ctx context.Context) error {
				return p.CheckUplink()
			},
		},
		{
			Name:    "install-webserver",
			Success: fmt.Sprintf("package %s installed", cfg.WebServerPkg),
			Failure: fmt.Sprintf("failed to install package %s", cfg.WebServerPkg),
			Run: func(ctx context.Context) error {
				return p.pkg.Install(ctx, cfg.WebServerPkg)
			},
		},
		{
			Name:    "install-repotool",
			Success: fmt.Sprintf("package %s installed", cfg.RepoToolPkg),
			Failure: fmt.Sprintf("failed to install package %s", cfg.RepoToolPkg),
			Run: func(ctx context.Context) error {
				return p.pkg.Install(ctx, cfg.RepoToolPkg)
			},
		},
		{
			Name:    "allocate-backing-file",
			Success: fmt.Sprintf("backing file %s allocated", cfg.BackingFile),
			Failure: fmt.Sprintf("failed to allocate backing file %s", cfg.BackingFile),
			Run: func(ctx context.Context) error {
				return blockdev.Allocate(cfg.BackingFile, cfg.BackingSize)
			},
		},
		{
			Name:    "attach-loop-device",
			Success: "backing file attached to a loop device",
			Failure: "failed to attach backing file to a loop device",
			Run: func(ctx context.Context) error {
				device, err := p.AttachLoop(cfg.BackingFile)
				if err != nil {
					return err
				}

				run.LoopDevice = device
				p.logger.InfoContext(ctx, "loop device attached", "device", device)
				if jerr := p.journal.SetLoopDevice(ctx, run.ID, device); jerr != nil {
					p.logger.WarnContext(ctx, "recording loop device failed", "error", jerr)
				}

				return nil
			},
		},
		{
			Name:    "format-filesystem",
			Success: "loop device formatted as " + cfg.FSType,
			Failure: "failed to format loop device",
			Run: func(ctx context.Context) error {
				return blockdev.FormatExt4(ctx, p.runner, run.LoopDevice)
			},
		},
		{
			Name:    "create-mount-point",
			Success: fmt.Sprintf("mount point %s ready", cfg.MountPoint),
			Failure: fmt.Sprintf("failed to create mount point %s", cfg.MountPoint),
			Run: func(ctx context.Context) error {
				return ensureDir(cfg.MountPoint)
			},
		},
		{
			Name:    "append-mount-table",
			Success: "mount table entry added",
			Failure: "failed to update mount table",
			Run: func(ctx context.Context) error {
				return fstab.Append(cfg.FstabPath, fstab.Entry{
					Spec:    run.LoopDevice,
					Path:    cfg.MountPoint,
					VFSType: cfg.FSType,
					Options: "defaults",
					Freq:    0,
					PassNo:  0,
				})
			},
		},
		{
			Name:    "mount-filesystem",
			Success: fmt.Sprintf("filesystem mounted at %s", cfg.MountPoint),
			Failure: fmt.Sprintf("failed to mount filesystem at %s", cfg.MountPoint),
			Run: func(ctx context.Context) error {
				return blockdev.Mount(ctx, p.runner, run.LoopDevice, cfg.MountPoint, cfg.FSType)
			},
		},
	}

	for _, name := range packages {
		name := name
		stages = append(stages, pipeline.Stage{
			Name:    "download-" + name,
			Success: fmt.Sprintf("package %s downloaded", name),
			Failure: fmt.Sprintf("failed to download package %s", name),
			Run: func(ctx context.Context) error {
				if err := p.pkg.Download(ctx, cfg.MountPoint, name); err != nil {
					return err
				}

				p.recordArtifacts(ctx, run, name)

				return nil
			},
		})
	}

	stages = append(stages,
		pipeline.Stage{
			Name:    "create-repo-metadata",
			Success: "repository metadata created",
			Failure: "failed to create repository metadata",
			Run: func(ctx context.Context) error {
				return p.repo.Create(ctx, cfg.MountPoint)
			},
		},
		pipeline.Stage{
			Name:    "restore-selinux-labels",
			Success: "SELinux labels restored",
			Failure: "failed to restore SELinux labels",
			Run: func(ctx context.Context) error {
				return p.repo.RestoreLabels(ctx, cfg.MountPoint)
			},
		},
		pipeline.Stage{
			Name:    "write-repo-definition",
			Success: fmt.Sprintf("repository definition written to %s", cfg.RepoFilePath),
			Failure: fmt.Sprintf("failed to write repository definition %s", cfg.RepoFilePath),
			Run: func(ctx context.Context) error {
				return pkgmgr.WriteRepoFile(cfg.RepoFilePath, pkgmgr.RepoDef{
					ID:       cfg.RepoID,
					Name:     cfg.RepoID,
					BaseURL:  cfg.RepoBaseURL,
					Enabled:  true,
					GPGCheck: false,
				})
			},
		},
		pipeline.Stage{
			Name:    "open-firewall",
			Success: fmt.Sprintf("firewall allows tcp/%d", cfg.HTTPPort),
			Failure: fmt.Sprintf("failed to open firewall for tcp/%d", cfg.HTTPPort),
			Run: func(ctx context.Context) error {
				return p.OpenTCPPort(cfg.HTTPPort)
			},
		},
		pipeline.Stage{
			Name:    "start-webserver",
			Success: fmt.Sprintf("service %s started", cfg.WebServerUnit),
			Failure: fmt.Sprintf("failed to start service %s", cfg.WebServerUnit),
			Run: func(ctx context.Context) error {
				return p.sysctl.Start(ctx, cfg.WebServerUnit)
			},
		},
		pipeline.Stage{
			Name:    "enable-webserver",
			Success: fmt.Sprintf("service %s enabled at boot", cfg.WebServerUnit),
			Failure: fmt.Sprintf("failed to enable service %s", cfg.WebServerUnit),
			Run: func(ctx context.Context) error {
				return p.sysctl.Enable(ctx, cfg.WebServerUnit)
			},
		},
		pipeline.Stage{
			Name:    "list-repositories",
			Success: "configured repositories listed",
			Failure: "failed to list configured repositories",
			Run: func(ctx context.Context) error {
				return p.pkg.RepoList(ctx)
			},
		},
		pipeline.Stage{
			Name:    "unmount-filesystem",
			Success: fmt.Sprintf("filesystem unmounted from %s", cfg.MountPoint),
			Failure: fmt.Sprintf("failed to unmount %s", cfg.MountPoint),
			Run: func(ctx context.Context) error {
				return blockdev.Unmount(ctx, p.runner, cfg.MountPoint)
			},
		},
		pipeline.Stage{
			Name:    "mount-from-table",
			Success: "all mount table entries mounted",
			Failure: "failed to mount from mount table",
			Run: func(ctx context.Context) error {
				return blockdev.MountAll(ctx, p.runner)
			},
		},
		pipeline.Stage{
			Name:    "verify-repo",
			Success: fmt.Sprintf("package info from repo %s verified", cfg.RepoID),
			Failure: fmt.Sprintf("failed to query package info from repo %s", cfg.RepoID),
			Run: func(ctx context.Context) error {
				return p.pkg.RepoInfo(ctx, cfg.RepoID)
			},
		},
	)

	return stages
}

// ensureDir creates path unless it already exists. An existing directory is
// not an error; an existing non-directory is.
func ensureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}

		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	return nil
}
