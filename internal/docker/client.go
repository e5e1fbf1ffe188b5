package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"github.com/yourlabs/compoctl/internal/models"
)

// engineAPI is the subset of the Docker Engine API compoctl relies on
type engineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	VolumeRemove(ctx context.Context, volumeID string, force bool) error
	Close() error
}

// Client wraps the Docker client with the lookups backup and restore need
type Client struct {
	docker engineAPI
	logger logrus.FieldLogger
}

// NewClient connects to the Docker daemon. An empty host means the
// environment (DOCKER_HOST and friends) decides.
func NewClient(ctx context.Context, host string, logger logrus.FieldLogger) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := cli.Ping(pingCtx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("cannot connect to Docker daemon: %w", err)
	}

	logger.WithField("host", cli.DaemonHost()).Debug("Connected to docker")

	return newClient(cli, logger), nil
}

func newClient(api engineAPI, logger logrus.FieldLogger) *Client {
	return &Client{docker: api, logger: logger}
}

// InspectContainer returns the compose service a container belongs to and
// the image reference it runs
func (c *Client) InspectContainer(ctx context.Context, containerID string) (*models.RunningContainer, error) {
	info, err := c.docker.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", containerID, err)
	}
	if info.ContainerJSONBase == nil || info.Config == nil {
		return nil, fmt.Errorf("container %s has no configuration", containerID)
	}

	return &models.RunningContainer{
		ID:      info.ID,
		Service: info.Config.Labels[models.ServiceLabel],
		Image:   info.Config.Image,
	}, nil
}

// ContainerState returns whether a container is running and its health
func (c *Client) ContainerState(ctx context.Context, containerID string) (*models.ContainerState, error) {
	info, err := c.docker.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", containerID, err)
	}

	if info.ContainerJSONBase == nil {
		return nil, fmt.Errorf("container %s has no state", containerID)
	}

	state := &models.ContainerState{ID: info.ID}
	if info.State != nil {
		state.Running = info.State.Running
		if info.State.Health != nil {
			state.Health = info.State.Health.Status
		}
	}
	return state, nil
}

// RemoveVolume removes a named volume. A volume that does not exist is not
// an error.
func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	err := c.docker.VolumeRemove(ctx, name, false)
	if err != nil {
		if client.IsErrNotFound(err) {
			c.logger.WithField("volume", name).Debug("Volume does not exist")
			return nil
		}
		return fmt.Errorf("failed to remove volume %s: %w", name, err)
	}
	return nil
}

// Close releases the connection to the daemon
func (c *Client) Close() error {
	return c.docker.Close()
}
