package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
	"github.com/yourlabs/compoctl/internal/progress"
)

// Engine is the container engine access backup and restore need on top of
// the orchestrator CLI
type Engine interface {
	InspectContainer(ctx context.Context, containerID string) (*models.RunningContainer, error)
	ContainerState(ctx context.Context, containerID string) (*models.ContainerState, error)
	RemoveVolume(ctx context.Context, name string) error
}

type Settings struct {
	// ProjectDir is the absolute project root relative paths resolve against
	ProjectDir string
	// BackupDir holds the snapshot and the data dumped by backup commands
	BackupDir    string
	SnapshotName string
	// RestoreFile is the snapshot copy restore adds as a configuration file
	RestoreFile  string
	BackupLabel  string
	RestoreLabel string

	// Settle is how long a running container without healthcheck is
	// given before its restore command runs
	Settle   time.Duration
	Timeout  time.Duration
	Interval time.Duration

	// Interactive is false when stdin is not a terminal; exec then gets -T
	Interactive bool
}

// Client runs the backup and restore protocols of one compose project
type Client struct {
	exec     compose.Executor
	resolver *compose.Resolver
	engine   Engine
	fs       afero.Fs
	logger   logrus.FieldLogger
	progress *progress.Factory
	clock    clock.Clock
	settings Settings
}

func NewClient(exec compose.Executor, engine Engine, fs afero.Fs, logger logrus.FieldLogger, pf *progress.Factory, settings Settings) *Client {
	return &Client{
		exec:     exec,
		resolver: compose.NewResolver(exec),
		engine:   engine,
		fs:       fs,
		logger:   logger,
		progress: pf,
		clock:    clock.WallClock,
		settings: settings,
	}
}

// path resolves a project relative path
func (c *Client) path(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.settings.ProjectDir, p)
}

func (c *Client) backupDir() string {
	return c.path(c.settings.BackupDir)
}

// SnapshotPath is where backup writes the pinned snapshot
func (c *Client) SnapshotPath() string {
	return filepath.Join(c.backupDir(), c.settings.SnapshotName)
}

// step runs one plain orchestrator subcommand; a non-zero exit becomes an
// error of the given kind
func (c *Client) step(ctx context.Context, opts compose.Options, kind models.Kind, args ...string) error {
	code, err := c.exec.Run(ctx, opts, args[0], args[1:]...)
	if err != nil {
		return models.WrapError(kind, err, "%s could not be started", strings.Join(args, " "))
	}
	if code != 0 {
		return models.NewError(kind, code, "%s failed", strings.Join(args, " "))
	}
	return nil
}

// reclassify reports err as kind while keeping the originating exit code
func reclassify(err error, kind models.Kind, format string, args ...interface{}) error {
	e := models.WrapError(kind, err, format, args...)
	var cause *models.Error
	if errors.As(err, &cause) {
		e.Code = cause.Code
	}
	return e
}

// containerIDs lists the IDs printed by ps -q, skipping blank lines
func (c *Client) containerIDs(ctx context.Context, opts compose.Options, services ...string) ([]string, error) {
	out, err := c.exec.Output(ctx, opts, "ps", append([]string{"-q"}, services...)...)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
