package pkgmgr

import (
	"bytes"
	"fmt"

	"github.com/mhavel/reposeed/pkg/fsutil"
)

// RepoDef describes one repository definition consumed by the package
// manager from a file under /etc/yum.repos.d.
type RepoDef struct {
	ID       string // section header
	Name     string // human-readable label
	BaseURL  string
	Enabled  bool
	GPGCheck bool
}

// Render produces the ini-style definition file content.
func (d RepoDef) Render() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[%s]\n", d.ID)
	fmt.Fprintf(&buf, "name=%s\n", d.Name)
	fmt.Fprintf(&buf, "baseurl=%s\n", d.BaseURL)
	fmt.Fprintf(&buf, "enabled=%d\n", boolFlag(d.Enabled))
	fmt.Fprintf(&buf, "gpgcheck=%d\n", boolFlag(d.GPGCheck))

	return buf.Bytes()
}

// WriteRepoFile writes the definition to path, unconditionally replacing any
// existing file there.
func WriteRepoFile(path string, d RepoDef) error {
	if err := fsutil.WriteFileAtomic(path, d.Render(), 0o644); err != nil {
		return fmt.Errorf("writing repository definition %s: %w", path, err)
	}

	return nil
}

func boolFlag(b bool) int {
	if b {
		return 1
	}

	return 0
}
