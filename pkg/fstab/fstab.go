// Package fstab models entries of the persistent system mount table.
package fstab

import (
	"fmt"
	"os"
)

// Entry is one line of /etc/fstab.
type Entry struct {
	Spec    string // device node, UUID= or LABEL= reference
	Path    string // mount point
	VFSType string
	Options string
	Freq    int // dump frequency
	PassNo  int // fsck pass order
}

// Line renders the entry in fstab column order, without a trailing newline.
func (e Entry) Line() string {
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d %d", e.Spec, e.Path, e.VFSType, e.Options, e.Freq, e.PassNo)
}

// Append adds the entry as a new line at the end of the mount table at path.
// Existing content is preserved and duplicates are not detected; appending
// the same entry twice yields two identical lines.
func Append(path string, e Entry) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening mount table %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, e.Line()); err != nil {
		return fmt.Errorf("appending to mount table %s: %w", path, err)
	}

	return f.Sync()
}
