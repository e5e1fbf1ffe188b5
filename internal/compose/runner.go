package compose

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/yourlabs/compoctl/internal/models"
)

// DefaultBinary is the orchestrator executable
const DefaultBinary = "docker-compose"

// Executor invokes orchestrator subcommands
type Executor interface {
	// Run executes a subcommand with inherited standard streams and returns
	// its exit code. The error is only set when the process could not run.
	Run(ctx context.Context, opts Options, subcommand string, args ...string) (int, error)
	// Output executes a subcommand and returns its standard output. A
	// non-zero exit is returned as a CommandFailed error.
	Output(ctx context.Context, opts Options, subcommand string, args ...string) ([]byte, error)
}

// Runner is the Executor backed by the orchestrator binary
type Runner struct {
	binary string
	logger logrus.FieldLogger
	quiet  bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var _ Executor = (*Runner)(nil)

// NewRunner creates a runner attached to the process' standard streams
func NewRunner(binary string, logger logrus.FieldLogger, quiet bool) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Runner{
		binary: binary,
		logger: logger,
		quiet:  quiet,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Argv composes the full command line for a subcommand
func (r *Runner) Argv(opts Options, subcommand string, args ...string) []string {
	argv := []string{r.binary}
	argv = append(argv, opts.Args()...)
	argv = append(argv, subcommand)
	return append(argv, args...)
}

func (r *Runner) Run(ctx context.Context, opts Options, subcommand string, args ...string) (int, error) {
	argv := r.Argv(opts, subcommand, args...)
	r.announce(argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 - orchestrator invocation is the purpose of this tool
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	return exitCode(cmd.Run())
}

func (r *Runner) Output(ctx context.Context, opts Options, subcommand string, args ...string) ([]byte, error) {
	argv := r.Argv(opts, subcommand, args...)
	r.logger.WithField("command", strings.Join(argv, " ")).Info("Running")

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 - orchestrator invocation is the purpose of this tool
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr

	code, err := exitCode(cmd.Run())
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return stdout.Bytes(), models.NewError(models.KindCommandFailed, code, "%s exited non-zero", strings.Join(argv, " "))
	}
	return stdout.Bytes(), nil
}

func (r *Runner) announce(argv []string) {
	line := strings.Join(argv, " ")
	r.logger.WithField("command", line).Info("Running")
	if r.quiet || r.Stderr == nil {
		return
	}
	_, _ = color.New(color.FgYellow).Fprint(r.Stderr, "Running ")
	_, _ = io.WriteString(r.Stderr, line+"\n")
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code, nil
		}
		// killed by a signal
		return 1, nil
	}
	return 0, err
}
