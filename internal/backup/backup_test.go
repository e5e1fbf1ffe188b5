package backup

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
)

const webDBConfig = `services:
  web:
    image: nginx:latest
    labels:
      io.yourlabs.backup.cmd: tar czf /backup/web.tgz /data
  db:
    image: postgres:${PG_VERSION}
    labels:
      io.yourlabs.backup.cmd: pg_dumpall -f /backup/db.dump
  cache:
    image: redis
`

func TestBackup_PinsImagesAndRunsCommandsInOrder(t *testing.T) {
	h := newHarness(t, defaultSettings())
	h.exec.WithOutput("ps -q", "c-db\n\nc-web\n  \n").WithOutput("config", webDBConfig)
	h.engine.
		withContainer("c-web", "web", "nginx@sha256:aaaa").
		withContainer("c-db", "db", "postgres:16.2")

	result, err := h.client.Backup(context.Background(), h.opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ps -q",
		"config",
		"exec web tar czf /backup/web.tgz /data",
		"exec db pg_dumpall -f /backup/db.dump",
	}, h.exec.Commands())
	assert.Equal(t, []string{"web", "db"}, result.Services)
	assert.ElementsMatch(t, []string{"web", "db"}, result.Pinned)

	data, err := afero.ReadFile(h.fs, "/srv/shop/backup/docker-compose._restore.yml")
	require.NoError(t, err)
	snapshot, err := compose.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"web":   "nginx@sha256:aaaa",
		"db":    "postgres:16.2",
		"cache": "redis",
	}, snapshot.Images())

	var names []string
	for _, s := range snapshot.Services() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"web", "db", "cache"}, names)
	assert.Empty(t, h.warnings())
}

func TestBackup_ExecCountMatchesLabelledServices(t *testing.T) {
	config := `services:
  a: {image: x, labels: {io.yourlabs.backup.cmd: "dump a"}}
  b: {image: x}
  c: {image: x, labels: ["io.yourlabs.backup.cmd=dump c"]}
  d: {image: x, labels: {io.yourlabs.backup.cmd: "   "}}
  e: {image: x}
`
	h := newHarness(t, defaultSettings())
	h.exec.WithOutput("config", config)

	_, err := h.client.Backup(context.Background(), h.opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"exec a dump a", "exec c dump c"}, h.exec.CommandsWithPrefix("exec"))

	files, err := afero.ReadDir(h.fs, "/srv/shop/backup")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestBackup_CreatesDirectoryAndOverwritesSnapshot(t *testing.T) {
	h := newHarness(t, defaultSettings())
	h.exec.WithOutput("config", "services:\n  web:\n    image: nginx\n")

	_, err := h.client.Backup(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, "Creating backup directory", h.hook.AllEntries()[0].Message)

	require.NoError(t, afero.WriteFile(h.fs, "/srv/shop/backup/docker-compose._restore.yml", []byte("stale"), 0o644))
	_, err = h.client.Backup(context.Background(), h.opts)
	require.NoError(t, err)

	data, err := afero.ReadFile(h.fs, "/srv/shop/backup/docker-compose._restore.yml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "image: nginx")
}

func TestBackup_WarnsWithoutCommands(t *testing.T) {
	h := newHarness(t, defaultSettings())
	h.exec.WithOutput("config", "services:\n  web:\n    image: nginx\n")

	result, err := h.client.Backup(context.Background(), h.opts)

	require.NoError(t, err)
	assert.Empty(t, result.Services)
	assert.Equal(t, []string{"No backup command found, no data was backed up"}, h.warnings())
}

func TestBackup_FailsFast(t *testing.T) {
	h := newHarness(t, defaultSettings())
	h.exec.WithOutput("config", webDBConfig).
		WithCode("exec web tar czf /backup/web.tgz /data", 2)

	_, err := h.client.Backup(context.Background(), h.opts)

	assert.True(t, errors.Is(err, models.ErrBackupFailed))
	assert.Equal(t, 2, models.ExitCode(err))
	assert.Equal(t, []string{"exec web tar czf /backup/web.tgz /data"}, h.exec.CommandsWithPrefix("exec"))
}

func TestBackup_UnbalancedQuotes(t *testing.T) {
	config := `services:
  db:
    image: postgres
    labels:
      io.yourlabs.backup.cmd: sh -c 'pg_dumpall > /backup/db.sql
`
	h := newHarness(t, defaultSettings())
	h.exec.WithOutput("config", config)

	_, err := h.client.Backup(context.Background(), h.opts)

	assert.True(t, errors.Is(err, models.ErrBackupFailed))
	assert.Empty(t, h.exec.CommandsWithPrefix("exec"))
}

func TestBackup_QuotedWordsAreKept(t *testing.T) {
	config := `services:
  db:
    image: postgres
    labels:
      io.yourlabs.backup.cmd: pg_dump -U "app user" -f '/backup/my dump.sql'
`
	settings := defaultSettings()
	settings.Interactive = false
	h := newHarness(t, settings)
	h.exec.WithOutput("config", config)

	_, err := h.client.Backup(context.Background(), h.opts)
	require.NoError(t, err)

	calls := h.exec.Calls
	last := calls[len(calls)-1]
	assert.Equal(t, "exec", last.Subcommand)
	assert.Equal(t, []string{"-T", "db", "pg_dump", "-U", "app user", "-f", "/backup/my dump.sql"}, last.Args)
}

func TestBackup_ConfigUnavailable(t *testing.T) {
	h := newHarness(t, defaultSettings())
	h.exec.WithCode("config", 1)

	_, err := h.client.Backup(context.Background(), h.opts)

	assert.True(t, errors.Is(err, models.ErrConfigUnavailable))
	exists, _ := afero.Exists(h.fs, "/srv/shop/backup/docker-compose._restore.yml")
	assert.False(t, exists)
}

func TestBackup_DiscoveryFailure(t *testing.T) {
	h := newHarness(t, defaultSettings())
	h.exec.WithOutput("ps -q", "ghost\n").WithOutput("config", webDBConfig)

	_, err := h.client.Backup(context.Background(), h.opts)

	assert.True(t, errors.Is(err, models.ErrBackupFailed))
	assert.NotContains(t, h.exec.Commands(), "config")
}
