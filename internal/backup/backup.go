package backup

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
)

// BackupResult summarises a successful backup
type BackupResult struct {
	Snapshot string
	// Images is the image of every service as written to the snapshot
	Images map[string]string
	// Pinned lists the services whose image was replaced by the running one
	Pinned []string
	// Services lists the services whose backup command ran, in order
	Services []string
}

// Backup writes the pinned snapshot and runs every backup command label.
// The first failing command aborts the run; nothing is rolled back.
func (c *Client) Backup(ctx context.Context, opts compose.Options) (*BackupResult, error) {
	dir := c.backupDir()
	exists, err := afero.DirExists(c.fs, dir)
	if err != nil {
		return nil, models.WrapError(models.KindBackupFailed, err, "cannot stat %s", dir)
	}
	if !exists {
		c.logger.WithField("dir", dir).Info("Creating backup directory")
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, models.WrapError(models.KindBackupFailed, err, "cannot create %s", dir)
		}
	}

	running, err := c.discover(ctx, opts)
	if err != nil {
		return nil, err
	}

	project, err := c.resolver.Resolve(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &BackupResult{}
	for _, rc := range running {
		if !project.PinImage(rc.Service, rc.Image) {
			c.logger.WithField("service", rc.Service).Debug("Running service is not in the configuration")
			continue
		}
		result.Pinned = append(result.Pinned, rc.Service)
	}

	data, err := project.Marshal()
	if err != nil {
		return nil, models.WrapError(models.KindBackupFailed, err, "cannot serialise snapshot")
	}
	result.Snapshot = c.SnapshotPath()
	result.Images = project.Images()

	c.logger.WithField("path", result.Snapshot).Info("Writing snapshot with pinned images")
	if err := afero.WriteFile(c.fs, result.Snapshot, data, 0o644); err != nil {
		return nil, models.WrapError(models.KindBackupFailed, err, "cannot write %s", result.Snapshot)
	}

	for _, svc := range project.Services() {
		command, ok := svc.Label(c.settings.BackupLabel)
		if !ok {
			continue
		}
		if err := c.execLabel(ctx, opts, svc.Name, command, "backup", models.KindBackupFailed); err != nil {
			return result, err
		}
		result.Services = append(result.Services, svc.Name)
	}

	if len(result.Services) == 0 {
		c.logger.WithField("label", c.settings.BackupLabel).Warn("No backup command found, no data was backed up")
	}
	return result, nil
}

// discover maps every running container of the project to its service and
// the image it actually runs, in ps order
func (c *Client) discover(ctx context.Context, opts compose.Options) ([]*models.RunningContainer, error) {
	ids, err := c.containerIDs(ctx, opts)
	if err != nil {
		return nil, reclassify(err, models.KindBackupFailed, "cannot list running containers")
	}

	seen := map[string]int{}
	var running []*models.RunningContainer
	for _, id := range ids {
		rc, err := c.engine.InspectContainer(ctx, id)
		if err != nil {
			return nil, models.WrapError(models.KindBackupFailed, err, "cannot inspect container %s", id)
		}
		if rc.Service == "" {
			c.logger.WithField("container", id).Debug("Container has no compose service label")
			continue
		}
		c.logger.WithFields(logrus.Fields{"service": rc.Service, "image": rc.Image}).Debug("Discovered running image")

		// Scaled services run several replicas of one image; keep one entry.
		if i, ok := seen[rc.Service]; ok {
			running[i] = rc
			continue
		}
		seen[rc.Service] = len(running)
		running = append(running, rc)
	}
	return running, nil
}
