// Package composetest provides a recording Executor for tests.
package composetest

import (
	"context"
	"strings"
	"sync"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
)

// Call is one recorded invocation
type Call struct {
	Options    compose.Options
	Subcommand string
	Args       []string
	Captured   bool
}

// String renders the call as "subcommand arg..."
func (c Call) String() string {
	return strings.TrimSpace(c.Subcommand + " " + strings.Join(c.Args, " "))
}

// FakeExecutor records calls. Exit codes and outputs are looked up by the
// rendered call; anything unknown exits 0 with empty output.
type FakeExecutor struct {
	mu    sync.Mutex
	Calls []Call

	Codes   map[string]int
	Outputs map[string]string
	// OnRun, when set, is invoked before a call returns
	OnRun func(Call)
}

var _ compose.Executor = (*FakeExecutor)(nil)

// NewFakeExecutor creates an empty fake
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{Codes: map[string]int{}, Outputs: map[string]string{}}
}

// WithCode scripts the exit code of a call
func (f *FakeExecutor) WithCode(call string, code int) *FakeExecutor {
	f.Codes[call] = code
	return f
}

// WithOutput scripts the standard output of a call
func (f *FakeExecutor) WithOutput(call, output string) *FakeExecutor {
	f.Outputs[call] = output
	return f
}

func (f *FakeExecutor) Run(_ context.Context, opts compose.Options, subcommand string, args ...string) (int, error) {
	call := f.record(opts, subcommand, args, false)
	return f.Codes[call.String()], nil
}

func (f *FakeExecutor) Output(_ context.Context, opts compose.Options, subcommand string, args ...string) ([]byte, error) {
	call := f.record(opts, subcommand, args, true)
	if code := f.Codes[call.String()]; code != 0 {
		return nil, models.NewError(models.KindCommandFailed, code, "%s exited non-zero", call)
	}
	return []byte(f.Outputs[call.String()]), nil
}

// Commands returns the rendered calls in order
func (f *FakeExecutor) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.String())
	}
	return out
}

// CommandsWithPrefix returns the rendered calls starting with prefix
func (f *FakeExecutor) CommandsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeExecutor) record(opts compose.Options, subcommand string, args []string, captured bool) Call {
	call := Call{
		Options:    opts,
		Subcommand: subcommand,
		Args:       append([]string(nil), args...),
		Captured:   captured,
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	onRun := f.OnRun
	f.mu.Unlock()

	if onRun != nil {
		onRun(call)
	}
	return call
}
