package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/yourlabs/compoctl/pkg/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the multi-line banner printed by --version
func Info() string {
	return fmt.Sprintf("compoctl version %s\nGit commit: %s\nBuild date: %s\nGo version: %s\nPlatform: %s/%s",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies compoctl to servers it downloads compose files from
func UserAgent() string {
	return fmt.Sprintf("compoctl/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
