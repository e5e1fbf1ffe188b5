package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yourlabs/compoctl/internal/backup"
	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/config"
	"github.com/yourlabs/compoctl/internal/docker"
	"github.com/yourlabs/compoctl/internal/fetch"
	"github.com/yourlabs/compoctl/internal/logging"
	"github.com/yourlabs/compoctl/internal/models"
	"github.com/yourlabs/compoctl/internal/progress"
	"github.com/yourlabs/compoctl/internal/storage"
)

// app is everything one invocation resolved from its flags and config
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	fs       afero.Fs
	progress *progress.Factory
	runner   *compose.Runner
	opts     compose.Options
}

func setup(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	if projectDirectory != "" {
		if err := os.Chdir(projectDirectory); err != nil {
			return nil, models.WrapError(models.KindConfigUnavailable, err, "cannot enter project directory %s", projectDirectory)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, models.WrapError(models.KindConfigUnavailable, err, "cannot determine working directory")
	}

	cfg, err := config.Load(cmd.Flags(), configFile, cwd)
	if err != nil {
		return nil, models.WrapError(models.KindConfigUnavailable, err, "invalid configuration")
	}

	logger := logging.New(os.Stderr, logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Quiet:   quiet,
		Verbose: verbose,
	})
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Debug("Loaded configuration")
	}

	fs := afero.NewOsFs()
	pf := progress.NewFactory(os.Stderr, quiet || !term.IsTerminal(int(os.Stderr.Fd())))

	fetcher := fetch.New(fs, cwd, fetch.Options{Retries: cfg.Fetch.Retries, Timeout: cfg.Fetch.Timeout}, pf, logger)
	files, err := fetcher.MaterializeAll(ctx, composeFiles)
	if err != nil {
		return nil, models.WrapError(models.KindConfigUnavailable, err, "cannot fetch compose file")
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		fs:       fs,
		progress: pf,
		runner:   compose.NewRunner(cfg.Compose.Binary, logger, quiet),
		opts: compose.Options{
			ProjectDirectory: cwd,
			ProjectName:      projectName,
			Files:            files,
			Global:           orchestratorOptions,
		},
	}, nil
}

// backupClient connects to the engine; the returned func releases it
func (a *app) backupClient(ctx context.Context) (*backup.Client, func(), error) {
	engine, err := docker.NewClient(ctx, a.cfg.Docker.Host, a.logger)
	if err != nil {
		return nil, nil, err
	}

	settings := backup.Settings{
		ProjectDir:   a.opts.ProjectDirectory,
		BackupDir:    a.cfg.Backup.Dir,
		SnapshotName: a.cfg.Backup.Snapshot,
		RestoreFile:  a.cfg.Restore.File,
		BackupLabel:  a.cfg.Labels.Backup,
		RestoreLabel: a.cfg.Labels.Restore,
		Settle:       a.cfg.Restore.Settle,
		Timeout:      a.cfg.Restore.Timeout,
		Interval:     a.cfg.Restore.Interval,
		Interactive:  term.IsTerminal(int(os.Stdin.Fd())),
	}

	client := backup.NewClient(a.runner, engine, a.fs, a.logger, a.progress, settings)
	return client, func() { _ = engine.Close() }, nil
}

// catalog opens the configured archive store
func (a *app) catalog(ctx context.Context) (*storage.Catalog, func(), error) {
	backend, err := storage.NewBackend(ctx, a.fs, a.cfg.StorageBackend())
	if err != nil {
		return nil, nil, err
	}
	return storage.NewCatalog(backend), func() { _ = backend.Close() }, nil
}
