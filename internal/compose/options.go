package compose

import (
	"path/filepath"
	"strings"
)

// Options are the global orchestrator options of one invocation. Values are
// copied on every change so a caller can never alter the options another
// component already holds.
type Options struct {
	// ProjectDirectory is the project root; it is applied by changing the
	// working directory, not passed to the orchestrator.
	ProjectDirectory string
	// ProjectName overrides the name derived from ProjectDirectory
	ProjectName string
	Files       []string
	// Global are orchestrator options compoctl does not interpret, such as
	// --env-file, forwarded ahead of its own
	Global []string
}

// WithFile returns a copy of o with one more configuration file
func (o Options) WithFile(path string) Options {
	files := make([]string, 0, len(o.Files)+1)
	files = append(files, o.Files...)
	o.Files = append(files, path)
	return o
}

// Args renders the options as orchestrator arguments
func (o Options) Args() []string {
	args := append([]string(nil), o.Global...)
	if o.ProjectName != "" {
		args = append(args, "-p", o.ProjectName)
	}
	for _, f := range o.Files {
		args = append(args, "-f", f)
	}
	return args
}

// Project returns the compose project name used to qualify named volumes
func (o Options) Project() string {
	if o.ProjectName != "" {
		return NormalizeProjectName(o.ProjectName)
	}
	dir := o.ProjectDirectory
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return NormalizeProjectName(filepath.Base(dir))
}

// NormalizeProjectName lower-cases name and drops characters compose does
// not accept in project names
func NormalizeProjectName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
