package docker

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourlabs/compoctl/internal/models"
)

type engineAPIMock struct {
	mock.Mock
}

func (m *engineAPIMock) Ping(ctx context.Context) (types.Ping, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Ping), args.Error(1)
}

func (m *engineAPIMock) ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	args := m.Called(ctx, containerID)
	return args.Get(0).(types.ContainerJSON), args.Error(1)
}

func (m *engineAPIMock) VolumeRemove(ctx context.Context, volumeID string, force bool) error {
	args := m.Called(ctx, volumeID, force)
	return args.Error(0)
}

func (m *engineAPIMock) Close() error {
	return m.Called().Error(0)
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

func containerJSON(id, service, image string, state *types.ContainerState) types.ContainerJSON {
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{ID: id, State: state},
		Config: &container.Config{
			Image:  image,
			Labels: map[string]string{models.ServiceLabel: service},
		},
	}
}

func TestClient_InspectContainer(t *testing.T) {
	api := &engineAPIMock{}
	api.On("ContainerInspect", mock.Anything, "abc").
		Return(containerJSON("abc123", "db", "postgres@sha256:feed", nil), nil)

	c := newClient(api, discardLogger())
	rc, err := c.InspectContainer(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, &models.RunningContainer{ID: "abc123", Service: "db", Image: "postgres@sha256:feed"}, rc)
	api.AssertExpectations(t)
}

func TestClient_InspectContainer_Error(t *testing.T) {
	api := &engineAPIMock{}
	api.On("ContainerInspect", mock.Anything, "gone").
		Return(types.ContainerJSON{}, errdefs.NotFound(errors.New("no such container")))

	_, err := newClient(api, discardLogger()).InspectContainer(context.Background(), "gone")

	assert.Error(t, err)
}

func TestClient_ContainerState(t *testing.T) {
	api := &engineAPIMock{}
	api.On("ContainerInspect", mock.Anything, "a").
		Return(containerJSON("a", "db", "pg", &types.ContainerState{
			Running: true,
			Health:  &types.Health{Status: types.Starting},
		}), nil)
	api.On("ContainerInspect", mock.Anything, "b").
		Return(containerJSON("b", "web", "nginx", &types.ContainerState{Running: false}), nil)

	c := newClient(api, discardLogger())

	state, err := c.ContainerState(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, &models.ContainerState{ID: "a", Running: true, Health: "starting"}, state)

	state, err = c.ContainerState(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, &models.ContainerState{ID: "b"}, state)
}

func TestClient_RemoveVolume(t *testing.T) {
	api := &engineAPIMock{}
	api.On("VolumeRemove", mock.Anything, "shop_db", false).Return(nil)
	api.On("VolumeRemove", mock.Anything, "shop_web", false).
		Return(errdefs.NotFound(errors.New("no such volume")))
	api.On("VolumeRemove", mock.Anything, "shop_busy", false).
		Return(errdefs.Conflict(errors.New("volume is in use")))

	c := newClient(api, discardLogger())

	assert.NoError(t, c.RemoveVolume(context.Background(), "shop_db"))
	assert.NoError(t, c.RemoveVolume(context.Background(), "shop_web"))
	assert.Error(t, c.RemoveVolume(context.Background(), "shop_busy"))
	api.AssertExpectations(t)
}
