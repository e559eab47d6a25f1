// Package blockdev creates and manages loop-backed block devices.
package blockdev

import (
	"context"
	"fmt"
	"os"

	"github.com/freddierice/go-losetup/v2"

	"github.com/mhavel/reposeed/pkg/sysexec"
)

// Allocate creates a backing file of exactly sizeBytes at path. The file is
// sparse, so it reads as zeros without consuming sizeBytes on disk.
func Allocate(path string, sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("invalid backing file size %d", sizeBytes)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating backing file: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(sizeBytes); err != nil {
		return fmt.Errorf("sizing backing file to %d bytes: %w", sizeBytes, err)
	}

	return nil
}

// Loop is an attached loop device backed by a regular file.
type Loop struct {
	file string
	dev  *losetup.Device
}

// Attach binds file to the first free loop device.
func Attach(file string) (*Loop, error) {
	dev, err := losetup.Attach(file, 0, false)
	if err != nil {
		return nil, fmt.Errorf("attaching %s to a loop device: %w", file, err)
	}

	return &Loop{file: file, dev: &dev}, nil
}

// Path returns the loop device node, e.g. /dev/loop0.
func (l *Loop) Path() string {
	return l.dev.Path()
}

func (l *Loop) Detach() error {
	if l.dev == nil {
		return nil
	}

	return l.dev.Detach()
}

// FormatExt4 creates an ext4 filesystem with default journal and block-size
// settings on the given device.
func FormatExt4(ctx context.Context, runner sysexec.Runner, device string) error {
	if err := runner.Run(ctx, "mkfs.ext4", device); err != nil {
		return fmt.Errorf("formatting %s as ext4: %w", device, err)
	}

	return nil
}

func Mount(ctx context.Context, runner sysexec.Runner, device, target, fstype string) error {
	if err := runner.Run(ctx, "mount", "-t", fstype, device, target); err != nil {
		return fmt.Errorf("mounting %s on %s: %w", device, target, err)
	}

	return nil
}

func Unmount(ctx context.Context, runner sysexec.Runner, target string) error {
	if err := runner.Run(ctx, "umount", target); err != nil {
		return fmt.Errorf("unmounting %s: %w", target, err)
	}

	return nil
}

// MountAll mounts everything listed in the persistent mount table.
func MountAll(ctx context.Context, runner sysexec.Runner) error {
	if err := runner.Run(ctx, "mount", "-a"); err != nil {
		return fmt.Errorf("mounting all fstab entries: %w", err)
	}

	return nil
}
