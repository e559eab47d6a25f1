package pkgmgr

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepoDefRender(t *testing.T) {
	def := RepoDef{
		ID:       "ukol",
		Name:     "ukol",
		BaseURL:  "http://localhost/ukol",
		Enabled:  true,
		GPGCheck: false,
	}

	want := "[ukol]\nname=ukol\nbaseurl=http://localhost/ukol\nenabled=1\ngpgcheck=0\n"
	if got := string(def.Render()); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestWriteRepoFileOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ukol.repo")
	if err := os.WriteFile(path, []byte("[stale]\nenabled=0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	def := RepoDef{ID: "ukol", Name: "ukol", BaseURL: "http://localhost/ukol", Enabled: true}
	if err := WriteRepoFile(path, def); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != string(def.Render()) {
		t.Errorf("file = %q, want %q", data, def.Render())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}
