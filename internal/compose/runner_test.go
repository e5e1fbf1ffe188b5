package compose

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlabs/compoctl/internal/models"
)

func newTestRunner(binary string) (*Runner, *test.Hook, *bytes.Buffer, *bytes.Buffer) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r := NewRunner(binary, logger, false)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	r.Stdin = nil
	r.Stdout = stdout
	r.Stderr = stderr
	return r, hook, stdout, stderr
}

func TestRunner_Argv(t *testing.T) {
	r := NewRunner("", logrus.New(), true)

	argv := r.Argv(Options{Files: []string{"a.yml"}}, "exec", "web", "sh")

	assert.Equal(t, []string{"docker-compose", "-f", "a.yml", "exec", "web", "sh"}, argv)
}

func TestRunner_RunLogsAndStreams(t *testing.T) {
	r, hook, stdout, stderr := newTestRunner("echo")

	code, err := r.Run(context.Background(), Options{Files: []string{"a.yml"}}, "ps", "-q")

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "-f a.yml ps -q\n", stdout.String())
	assert.Contains(t, stderr.String(), "echo -f a.yml ps -q")

	require.NotEmpty(t, hook.AllEntries())
	entry := hook.AllEntries()[0]
	assert.Equal(t, "Running", entry.Message)
	assert.Equal(t, "echo -f a.yml ps -q", entry.Data["command"])
}

func TestRunner_RunReturnsExitCode(t *testing.T) {
	r, _, _, _ := newTestRunner("sh")

	code, err := r.Run(context.Background(), Options{}, "-c", "exit 3")

	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestRunner_RunMissingBinary(t *testing.T) {
	r, _, _, _ := newTestRunner("compoctl-no-such-binary")

	_, err := r.Run(context.Background(), Options{}, "ps")

	assert.Error(t, err)
}

func TestRunner_Output(t *testing.T) {
	r, hook, _, _ := newTestRunner("echo")

	out, err := r.Output(context.Background(), Options{ProjectName: "shop"}, "config")

	require.NoError(t, err)
	assert.Equal(t, "-p shop config\n", string(out))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Running", entry.Message)
	assert.Equal(t, "echo -p shop config", entry.Data["command"])
}

func TestRunner_OutputNonZero(t *testing.T) {
	r, _, _, _ := newTestRunner("sh")

	_, err := r.Output(context.Background(), Options{}, "-c", "exit 4")

	var e *models.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, models.KindCommandFailed, e.Kind)
	assert.Equal(t, 4, e.Code)
}
