// Package fsutil holds small filesystem helpers shared across the module.
package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces the file at path with data via a rename, so
// readers never observe a partially written file. Atomicity only holds when
// the temp file and target live on the same filesystem, which is guaranteed
// here by creating the temp file in the target's directory.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := writeAndClose(tmp, data, perm); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// fsync the directory so the rename survives power loss
	dfd, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer dfd.Close()

	return dfd.Sync()
}

func writeAndClose(f *os.File, data []byte, perm os.FileMode) error {
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
