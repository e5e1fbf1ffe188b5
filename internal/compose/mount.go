package compose

import (
	"path/filepath"
	"strings"
)

// MountType is how a volume entry is backed on the host
type MountType string

const (
	MountBind      MountType = "bind"
	MountVolume    MountType = "volume"
	MountAnonymous MountType = "anonymous"
	MountTmpfs     MountType = "tmpfs"
)

// Mount is one entry of a service's volumes
type Mount struct {
	Type   MountType
	Source string
	Target string
}

// Action is what a restore does with a mount before recreating the service
type Action int

const (
	// ActionKeep leaves the mount alone
	ActionKeep Action = iota
	// ActionDeletePath removes the host directory recursively
	ActionDeletePath
	// ActionRemoveVolume removes the named volume
	ActionRemoveVolume
)

func (a Action) String() string {
	switch a {
	case ActionDeletePath:
		return "delete-path"
	case ActionRemoveVolume:
		return "remove-volume"
	default:
		return "keep"
	}
}

// ParseMount parses the short volume syntax: "name:/target[:mode]",
// "./host:/target[:mode]" or "/target" for an anonymous volume
func ParseMount(spec string) Mount {
	parts := strings.Split(spec, ":")
	if len(parts) == 1 {
		return Mount{Type: MountAnonymous, Target: parts[0]}
	}
	m := Mount{Source: parts[0], Target: parts[1]}
	if isHostPath(m.Source) {
		m.Type = MountBind
	} else {
		m.Type = MountVolume
	}
	return m
}

func newLongMount(typ, source, target string) Mount {
	switch MountType(typ) {
	case MountBind:
		return Mount{Type: MountBind, Source: source, Target: target}
	case MountVolume:
		if source == "" {
			return Mount{Type: MountAnonymous, Target: target}
		}
		return Mount{Type: MountVolume, Source: source, Target: target}
	case MountTmpfs:
		return Mount{Type: MountTmpfs, Target: target}
	default:
		return Mount{Type: MountType(typ), Source: source, Target: target}
	}
}

// Classify decides what restore does with the mount. Bind mounts with a host
// path segment equal to backupDir are never touched.
func (m Mount) Classify(backupDir string) Action {
	switch m.Type {
	case MountBind:
		if IsBackupPath(m.Source, backupDir) {
			return ActionKeep
		}
		return ActionDeletePath
	case MountVolume:
		return ActionRemoveVolume
	default:
		return ActionKeep
	}
}

// IsBackupPath reports whether one of the segments of path is the base name
// of backupDir
func IsBackupPath(path, backupDir string) bool {
	name := filepath.Base(filepath.Clean(backupDir))
	if name == "." || name == string(filepath.Separator) {
		return false
	}
	for _, segment := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == name {
			return true
		}
	}
	return false
}

// Contains reports whether path is dir or one of its ancestors. Both must
// be absolute.
func Contains(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(path), filepath.Clean(dir))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isHostPath(source string) bool {
	return strings.ContainsAny(source, `/\`) || strings.HasPrefix(source, ".") || strings.HasPrefix(source, "~")
}

// VolumeName is the project-qualified name restore removes for a service's
// named volumes
func VolumeName(project, service string) string {
	return project + "_" + service
}
