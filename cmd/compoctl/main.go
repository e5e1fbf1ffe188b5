package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
	"github.com/yourlabs/compoctl/pkg/version"
)

// Global flags, recognised before the verb only
var (
	composeFiles     []string
	projectDirectory string
	projectName      string
	configFile       string
	logLevel         string
	logFormat        string
	verbose          bool
	quiet            bool

	// orchestratorOptions are pre-verb options compoctl passes on as is
	orchestratorOptions []string
)

// Command flags
var (
	exportArchive bool
	encrypt       bool
	fromArchive   string
	force         bool
)

func newRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "compoctl",
		Short: "docker-compose wrapper with label driven backup and restore",
		Long: "compoctl wraps docker-compose: apply a stack in one go, back up the data " +
			"of labelled services together with a snapshot of the exact images that " +
			"produced it, and restore both later. Unknown verbs are forwarded to docker-compose.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(version.Info() + "\n")

	// Global flags
	rootCmd.PersistentFlags().StringArrayVarP(&composeFiles, "file", "f", nil, "Compose file, local path or http(s) URL (repeatable)")
	rootCmd.PersistentFlags().StringVar(&projectDirectory, "project-directory", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&projectName, "project-name", "p", "", "Compose project name")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "compoctl configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet output")

	// Add commands
	rootCmd.AddCommand(createApplyCommand())
	rootCmd.AddCommand(createBackupCommand())
	rootCmd.AddCommand(createRestoreCommand())
	rootCmd.AddCommand(createArchivesCommand())
	for _, verb := range compose.Passthrough {
		rootCmd.AddCommand(createPassthroughCommand(verb))
	}

	return rootCmd
}

func passthroughVerbs() map[string]bool {
	verbs := make(map[string]bool, len(compose.Passthrough))
	for _, verb := range compose.Passthrough {
		verbs[verb.Name] = true
	}
	return verbs
}

func main() {
	rootCmd := newRootCommand()
	args, forwarded := splitArgs(rootFlags(rootCmd), rootVerbs(rootCmd), passthroughVerbs(), os.Args[1:])
	orchestratorOptions = forwarded
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(models.ExitCode(err))
	}
}
