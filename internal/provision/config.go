package provision

// Config carries the fixed host paths and names the pipeline operates on.
// These are deliberately not exposed as CLI flags; the tool provisions one
// well-known layout and the only variable input is the package list.
type Config struct {
	BackingFile   string
	BackingSize   int64
	MountPoint    string
	FSType        string
	FstabPath     string
	RepoID        string
	RepoBaseURL   string
	RepoFilePath  string
	WebServerPkg  string
	WebServerUnit string
	RepoToolPkg   string
	HTTPPort      int
}

func DefaultConfig() Config {
	return Config{
		BackingFile:   "/var/tmp/ukol.img",
		BackingSize:   200 * 1024 * 1024,
		MountPoint:    "/var/www/html/ukol",
		FSType:        "ext4",
		FstabPath:     "/etc/fstab",
		RepoID:        "ukol",
		RepoBaseURL:   "http://localhost/ukol",
		RepoFilePath:  "/etc/yum.repos.d/ukol.repo",
		WebServerPkg:  "httpd",
		WebServerUnit: "httpd",
		RepoToolPkg:   "createrepo_c",
		HTTPPort:      80,
	}
}
