package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
	"github.com/yourlabs/compoctl/internal/storage"
)

func createApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Pull, build and (re)start the stack, then show logs and status",
		Long:  "Run pull, build, down, up -d, logs and ps in that order, stopping at the first failure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return compose.Apply(cmd.Context(), a.runner, a.opts)
		},
	}
}

func createBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up labelled services and pin their running images",
		Long: "Write ./backup/docker-compose._restore.yml with every running service pinned to " +
			"the image it runs, then execute each service's backup label command",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			client, release, err := a.backupClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			result, err := client.Backup(ctx, a.opts)
			if err != nil {
				return err
			}
			if !exportArchive {
				return nil
			}

			catalog, closeStore, err := a.catalog(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			password := a.cfg.Archive.Password
			if encrypt && password == "" {
				password, err = promptPassword("Archive password: ", true)
				if err != nil {
					return err
				}
			}

			meta, err := client.Export(ctx, catalog, a.opts.Project(), result, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %s (%s)\n", meta.ID, formatSize(meta.Size))
			return nil
		},
	}

	cmd.Flags().BoolVar(&exportArchive, "archive", false, "Also export the backup directory to the archive store")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Encrypt the archive with AES-256 (prompts unless archive.password is set)")

	return cmd
}

func createRestoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore labelled services from the last backup",
		Long: "Recreate the stack from the pinned snapshot, reset the data of labelled services, " +
			"run their restore label command once they are ready, then start everything",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			client, release, err := a.backupClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			if fromArchive != "" {
				if !a.cfg.StorageEnabled() {
					return models.NewError(models.KindRestoreUnavailable, 0, "--from-archive needs storage.type to be configured")
				}
				catalog, closeStore, err := a.catalog(ctx)
				if err != nil {
					return models.WrapError(models.KindRestoreUnavailable, err, "cannot open archive store")
				}
				defer closeStore()

				password := func() (string, error) {
					if a.cfg.Archive.Password != "" {
						return a.cfg.Archive.Password, nil
					}
					return promptPassword("Archive password: ", false)
				}
				if _, err := client.Import(ctx, catalog, fromArchive, password); err != nil {
					return err
				}
			}

			_, err = client.Restore(ctx, a.opts)
			return err
		},
	}

	cmd.Flags().StringVar(&fromArchive, "from-archive", "", "Import an archive first: latest, <project> or <project>@<version>")

	return cmd
}

func createArchivesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archives",
		Short: "Manage exported backup archives",
		Long:  "List and delete the backup archives kept in the configured storage backend",
	}

	cmd.AddCommand(createArchivesListCommand())
	cmd.AddCommand(createArchivesVersionsCommand())
	cmd.AddCommand(createArchivesDeleteCommand())

	return cmd
}

// openCatalog is the common preamble of the archives subcommands
func openCatalog(cmd *cobra.Command) (*app, *storage.Catalog, func(), error) {
	a, err := setup(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if !a.cfg.StorageEnabled() {
		return nil, nil, nil, models.NewError(models.KindConfigUnavailable, 0, "no archive storage configured, set storage.type")
	}
	catalog, closeStore, err := a.catalog(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	return a, catalog, closeStore, nil
}

func createArchivesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, catalog, closeStore, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			summaries, err := catalog.List(cmd.Context())
			if err != nil {
				return err
			}
			printSummaries(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
}

func createArchivesVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions [project]",
		Short: "List all versions archived for a project",
		Long:  "List all archive versions of a project, newest first. Defaults to the current project.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, catalog, closeStore, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			project := a.opts.Project()
			if len(args) == 1 {
				project = args[0]
			}

			versions, err := catalog.Versions(cmd.Context(), project)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No archives found for %s\n", project)
				return nil
			}
			printVersions(cmd.OutOrStdout(), versions)
			return nil
		},
	}
}

func createArchivesDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <project>[@version]",
		Short: "Delete all archives of a project or one version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, catalog, closeStore, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			targets, err := catalog.Targets(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !force {
				fmt.Fprintln(out, "The following archives will be deleted:")
				for _, id := range targets {
					fmt.Fprintf(out, "  %s\n", id)
				}
				if !confirm(cmd.InOrStdin(), out, "Continue? (y/N): ") {
					fmt.Fprintln(out, "Deletion cancelled")
					return nil
				}
			}

			deleted, err := catalog.Delete(ctx, args[0])
			for _, id := range deleted {
				fmt.Fprintf(out, "Deleted %s\n", id)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

// createPassthroughCommand forwards verb and its arguments to the
// orchestrator and exits with its status
func createPassthroughCommand(verb compose.Verb) *cobra.Command {
	return &cobra.Command{
		Use:   verb.Name,
		Short: verb.Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			code, err := a.runner.Run(cmd.Context(), a.opts, verb.Name, args...)
			if err != nil {
				return models.WrapError(models.KindCommandFailed, err, "%s %s", a.cfg.Compose.Binary, verb.Name)
			}
			if code != 0 {
				return models.NewError(models.KindCommandFailed, code, "%s %s failed", a.cfg.Compose.Binary, verb.Name)
			}
			return nil
		},
	}
}
