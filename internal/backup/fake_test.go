package backup

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/compose/composetest"
	"github.com/yourlabs/compoctl/internal/models"
	"github.com/yourlabs/compoctl/internal/progress"
)

const projectDir = "/srv/shop"

type fakeEngine struct {
	mu         sync.Mutex
	containers map[string]*models.RunningContainer
	// states are returned in order per container, the last one repeating
	states  map[string][]models.ContainerState
	removed []string
	failRm  error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		containers: map[string]*models.RunningContainer{},
		states:     map[string][]models.ContainerState{},
	}
}

func (f *fakeEngine) withContainer(id, service, image string) *fakeEngine {
	f.containers[id] = &models.RunningContainer{ID: id, Service: service, Image: image}
	return f
}

func (f *fakeEngine) withStates(id string, states ...models.ContainerState) *fakeEngine {
	f.states[id] = states
	return f
}

func (f *fakeEngine) InspectContainer(_ context.Context, id string) (*models.RunningContainer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.containers[id]
	if !ok {
		return nil, fmt.Errorf("no such container: %s", id)
	}
	return rc, nil
}

func (f *fakeEngine) ContainerState(_ context.Context, id string) (*models.ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	states, ok := f.states[id]
	if !ok || len(states) == 0 {
		return &models.ContainerState{ID: id, Running: true}, nil
	}
	state := states[0]
	if len(states) > 1 {
		f.states[id] = states[1:]
	}
	state.ID = id
	return &state, nil
}

func (f *fakeEngine) RemoveVolume(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRm != nil {
		return f.failRm
	}
	f.removed = append(f.removed, name)
	return nil
}

type harness struct {
	client *Client
	exec   *composetest.FakeExecutor
	engine *fakeEngine
	fs     afero.Fs
	hook   *test.Hook
	opts   compose.Options
}

func defaultSettings() Settings {
	return Settings{
		ProjectDir:   projectDir,
		BackupDir:    "backup",
		SnapshotName: "docker-compose._restore.yml",
		RestoreFile:  "docker-compose._restore.yml",
		BackupLabel:  "io.yourlabs.backup.cmd",
		RestoreLabel: "io.yourlabs.restore.cmd",
		Settle:       0,
		Timeout:      200 * time.Millisecond,
		Interval:     time.Millisecond,
		Interactive:  true,
	}
}

func newHarness(t *testing.T, settings Settings) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		exec:   composetest.NewFakeExecutor(),
		engine: newFakeEngine(),
		fs:     afero.NewMemMapFs(),
		hook:   hook,
		opts:   compose.Options{ProjectDirectory: projectDir, Files: []string{"docker-compose.yml"}},
	}
	h.client = NewClient(h.exec, h.engine, h.fs, logger, progress.NewFactory(io.Discard, true), settings)
	return h
}

func (h *harness) warnings() []string {
	var out []string
	for _, e := range h.hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}
