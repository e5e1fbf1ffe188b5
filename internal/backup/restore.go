package backup

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
)

// RestoreResult summarises a successful restore
type RestoreResult struct {
	// Services lists the services whose restore command ran, in order
	Services []string
}

// Restore recreates the project from the pinned snapshot. Every service
// with a restore command label has its volumes destroyed, is started alone
// and, once ready, has its restore command run. A failure leaves earlier
// services restored and later ones down.
func (c *Client) Restore(ctx context.Context, opts compose.Options) (*RestoreResult, error) {
	snapshot := c.SnapshotPath()
	data, err := afero.ReadFile(c.fs, snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewError(models.KindRestoreUnavailable, 0, "no snapshot at %s, run backup first", snapshot)
		}
		return nil, models.WrapError(models.KindRestoreUnavailable, err, "cannot read %s", snapshot)
	}

	project, err := compose.Parse(data)
	if err != nil {
		return nil, models.WrapError(models.KindRestoreUnavailable, err, "invalid snapshot %s", snapshot)
	}

	local := c.path(c.settings.RestoreFile)
	if err := afero.WriteFile(c.fs, local, data, 0o644); err != nil {
		return nil, models.WrapError(models.KindRestoreFailed, err, "cannot write %s", local)
	}
	opts = opts.WithFile(c.restoreFileArg())
	c.logger.WithField("path", local).Info("Restoring from snapshot")

	for _, args := range [][]string{{"pull"}, {"down"}} {
		if err := c.step(ctx, opts, models.KindCommandFailed, args...); err != nil {
			return nil, err
		}
	}

	name := opts.Project()
	result := &RestoreResult{}
	for _, svc := range project.Services() {
		command, ok := svc.Label(c.settings.RestoreLabel)
		if !ok {
			continue
		}

		if err := c.reset(ctx, name, svc); err != nil {
			return result, err
		}

		code, err := c.exec.Run(ctx, opts, "up", "-d", svc.Name)
		if err != nil {
			return result, models.WrapError(models.KindRestoreFailed, err, "cannot start service %s", svc.Name)
		}
		if code != 0 {
			return result, models.NewError(models.KindRestoreFailed, code, "start of service %s failed", svc.Name)
		}

		if err := c.waitReady(ctx, opts, svc.Name); err != nil {
			return result, err
		}

		if err := c.execLabel(ctx, opts, svc.Name, command, "restore", models.KindRestoreFailed); err != nil {
			return result, err
		}
		result.Services = append(result.Services, svc.Name)
	}

	if len(result.Services) == 0 {
		c.logger.WithField("label", c.settings.RestoreLabel).Warn("No restore command found, no data was restored")
	}

	for _, args := range [][]string{{"up", "-d"}, {"logs"}, {"ps"}} {
		if err := c.step(ctx, opts, models.KindCommandFailed, args...); err != nil {
			return result, err
		}
	}
	return result, nil
}

// restoreFileArg is the -f value for the snapshot copy, relative to the
// working directory the orchestrator runs in
func (c *Client) restoreFileArg() string {
	if filepath.IsAbs(c.settings.RestoreFile) {
		return c.settings.RestoreFile
	}
	return "./" + filepath.ToSlash(filepath.Clean(c.settings.RestoreFile))
}

// reset destroys the state of a service so its restore starts from scratch
func (c *Client) reset(ctx context.Context, project string, svc *compose.Service) error {
	removed := map[string]bool{}
	for _, m := range svc.Volumes {
		log := c.logger.WithFields(logrus.Fields{"service": svc.Name, "source": m.Source, "target": m.Target})

		switch m.Classify(c.settings.BackupDir) {
		case compose.ActionDeletePath:
			path := c.path(m.Source)
			log = log.WithField("path", path)
			if compose.Contains(path, c.backupDir()) {
				log.Warn("Keeping bind mount, it holds the backup directory")
				continue
			}

			info, err := c.fs.Stat(path)
			if os.IsNotExist(err) {
				log.Debug("Bind mount source does not exist")
				continue
			}
			if err != nil {
				return models.WrapError(models.KindRestoreFailed, err, "cannot stat %s", path)
			}
			if !info.IsDir() {
				log.Warn("Keeping bind mount, it is not a directory")
				continue
			}

			log.Warn("Deleting bind mount")
			if err := c.fs.RemoveAll(path); err != nil {
				return models.WrapError(models.KindRestoreFailed, err, "cannot delete %s", path)
			}

		case compose.ActionRemoveVolume:
			volume := compose.VolumeName(project, svc.Name)
			if removed[volume] {
				continue
			}
			removed[volume] = true
			log.WithField("volume", volume).Warn("Removing volume")
			if err := c.engine.RemoveVolume(ctx, volume); err != nil {
				return models.WrapError(models.KindRestoreFailed, err, "cannot remove volume %s", volume)
			}

		default:
			log.WithField("type", m.Type).Debug("Keeping mount")
		}
	}
	return nil
}
