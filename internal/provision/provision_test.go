package provision

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mhavel/reposeed/internal/journal"
	"github.com/mhavel/reposeed/pkg/sysexec"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.BackingFile = filepath.Join(dir, "ukol.img")
	cfg.BackingSize = 4 * 1024 * 1024
	cfg.MountPoint = filepath.Join(dir, "ukol")
	cfg.FstabPath = filepath.Join(dir, "fstab")
	cfg.RepoFilePath = filepath.Join(dir, "ukol.repo")

	return cfg
}

func testProvisioner(cfg Config, runner sysexec.Runner) (*Provisioner, *int) {
	p := New(cfg, runner, journal.NewNoOpRecorder())

	openedPort := 0
	p.AttachLoop = func(file string) (string, error) { return "/dev/loop7", nil }
	p.CheckUplink = func() error { return nil }
	p.OpenTCPPort = func(port int) error {
		openedPort = port
		return nil
	}

	return p, &openedPort
}

func TestExecuteFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	runner := sysexec.NewRecorder()
	p, openedPort := testProvisioner(cfg, runner)

	var out bytes.Buffer
	err := p.Execute(context.Background(), &out, []string{"pkgA", "pkgB"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	wantCommands := []string{
		"dnf -y install httpd",
		"dnf -y install createrepo_c",
		"mkfs.ext4 /dev/loop7",
		"mount -t ext4 /dev/loop7 " + cfg.MountPoint,
		"dnf -y install --downloadonly --downloaddir=" + cfg.MountPoint + " pkgA",
		"dnf -y install --downloadonly --downloaddir=" + cfg.MountPoint + " pkgB",
		"createrepo_c " + cfg.MountPoint,
		"restorecon -R " + cfg.MountPoint,
		"systemctl start httpd",
		"systemctl enable httpd",
		"dnf repolist",
		"umount " + cfg.MountPoint,
		"mount -a",
		"dnf --disablerepo=* --enablerepo=ukol info available",
	}

	got := runner.CommandLines()
	if len(got) != len(wantCommands) {
		t.Fatalf("ran %d commands, want %d:\n%s", len(got), len(wantCommands), strings.Join(got, "\n"))
	}
	for i, want := range wantCommands {
		if got[i] != want {
			t.Errorf("command %d = %q, want %q", i, got[i], want)
		}
	}

	info, err := os.Stat(cfg.BackingFile)
	if err != nil {
		t.Fatalf("backing file missing: %v", err)
	}
	if info.Size() != cfg.BackingSize {
		t.Errorf("backing file size = %d, want %d", info.Size(), cfg.BackingSize)
	}

	fstabData, err := os.ReadFile(cfg.FstabPath)
	if err != nil {
		t.Fatalf("fstab missing: %v", err)
	}
	wantLine := "/dev/loop7\t" + cfg.MountPoint + "\text4\tdefaults\t0 0\n"
	if string(fstabData) != wantLine {
		t.Errorf("fstab = %q, want %q", fstabData, wantLine)
	}

	repoData, err := os.ReadFile(cfg.RepoFilePath)
	if err != nil {
		t.Fatalf("repo definition missing: %v", err)
	}
	wantRepo := "[ukol]\nname=ukol\nbaseurl=http://localhost/ukol\nenabled=1\ngpgcheck=0\n"
	if string(repoData) != wantRepo {
		t.Errorf("repo definition = %q, want %q", repoData, wantRepo)
	}

	if info, err := os.Stat(cfg.MountPoint); err != nil || !info.IsDir() {
		t.Errorf("mount point not created: %v", err)
	}

	if *openedPort != 80 {
		t.Errorf("opened firewall port = %d, want 80", *openedPort)
	}

	// 9 setup stages + 2 downloads + 10 publish/verify stages
	if got := strings.Count(out.String(), ")"); got < 21 {
		t.Errorf("transcript has %d numbered lines, want 21:\n%s", got, out.String())
	}
	if !strings.HasPrefix(out.String(), "1) network uplink verified\n\n") {
		t.Errorf("transcript start = %q", out.String())
	}
}

func TestExecuteWithoutPackagesSkipsDownloads(t *testing.T) {
	cfg := testConfig(t)
	runner := sysexec.NewRecorder()
	p, _ := testProvisioner(cfg, runner)

	var out bytes.Buffer
	if err := p.Execute(context.Background(), &out, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	for _, line := range runner.CommandLines() {
		if strings.Contains(line, "--downloadonly") {
			t.Errorf("download ran without package arguments: %q", line)
		}
	}

	if !strings.Contains(out.String(), "19) package info from repo ukol verified\n\n") {
		t.Errorf("transcript does not end at stage 19:\n%s", out.String())
	}
}

func TestExecuteDownloadsFollowArgumentOrder(t *testing.T) {
	cfg := testConfig(t)
	runner := sysexec.NewRecorder()
	p, _ := testProvisioner(cfg, runner)

	packages := []string{"zzz", "aaa", "mmm"}
	if err := p.Execute(context.Background(), &bytes.Buffer{}, packages); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	var downloads []string
	for _, c := range runner.Calls {
		if c.Name == "dnf" && len(c.Args) == 5 && c.Args[2] == "--downloadonly" {
			downloads = append(downloads, c.Args[len(c.Args)-1])
		}
	}

	if len(downloads) != len(packages) {
		t.Fatalf("download count = %d, want %d", len(downloads), len(packages))
	}
	for i, pkg := range packages {
		if downloads[i] != pkg {
			t.Errorf("download %d = %q, want %q", i, downloads[i], pkg)
		}
	}
}

func TestExecuteAbortsBeforeMountWhenFormatFails(t *testing.T) {
	cfg := testConfig(t)

	runner := sysexec.NewRecorder()
	runner.FailOn = func(c sysexec.Call) error {
		if c.Name == "mkfs.ext4" {
			return errors.New("device busy")
		}
		return nil
	}

	p, _ := testProvisioner(cfg, runner)

	var out bytes.Buffer
	err := p.Execute(context.Background(), &out, []string{"pkgA"})
	if err == nil {
		t.Fatal("execute succeeded despite format failure")
	}

	for _, line := range runner.CommandLines() {
		if strings.HasPrefix(line, "mount") {
			t.Errorf("mount ran after format failure: %q", line)
		}
	}

	if _, err := os.Stat(cfg.FstabPath); !os.IsNotExist(err) {
		t.Error("mount table was written after format failure")
	}

	if !strings.HasSuffix(out.String(), "ERROR: failed to format loop device\n\n") {
		t.Errorf("transcript end = %q", out.String())
	}
}

func TestExecuteKeepsDuplicateMountTableEntries(t *testing.T) {
	cfg := testConfig(t)
	runner := sysexec.NewRecorder()
	p, _ := testProvisioner(cfg, runner)

	for i := 0; i < 2; i++ {
		if err := p.Execute(context.Background(), &bytes.Buffer{}, nil); err != nil {
			t.Fatalf("execute failed: %v", err)
		}
	}

	data, err := os.ReadFile(cfg.FstabPath)
	if err != nil {
		t.Fatalf("fstab missing: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("fstab has %d lines after two runs, want 2 (append-only, no dedup)", len(lines))
	}
	if lines[0] != lines[1] {
		t.Errorf("expected duplicate entries, got %q and %q", lines[0], lines[1])
	}
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()

	t.Run("creates missing directory", func(t *testing.T) {
		path := filepath.Join(dir, "new")
		if err := ensureDir(path); err != nil {
			t.Fatalf("ensureDir failed: %v", err)
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Errorf("directory not created: %v", err)
		}
	})

	t.Run("accepts existing directory", func(t *testing.T) {
		if err := ensureDir(dir); err != nil {
			t.Errorf("ensureDir on existing dir failed: %v", err)
		}
	})

	t.Run("rejects existing file", func(t *testing.T) {
		path := filepath.Join(dir, "file")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := ensureDir(path); err == nil {
			t.Error("ensureDir accepted a regular file")
		}
	})
}
