package compose_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/compose/composetest"
	"github.com/yourlabs/compoctl/internal/models"
)

func TestApply_RunsAllSteps(t *testing.T) {
	exec := composetest.NewFakeExecutor()
	opts := compose.Options{Files: []string{"./foo.yml"}}

	err := compose.Apply(context.Background(), exec, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"pull", "build", "down", "up -d", "logs", "ps"}, exec.Commands())
	for _, c := range exec.Calls {
		assert.Equal(t, opts, c.Options)
		assert.False(t, c.Captured)
	}
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	exec := composetest.NewFakeExecutor().WithCode("pull", 18)

	err := compose.Apply(context.Background(), exec, compose.Options{})

	assert.True(t, errors.Is(err, models.ErrCommandFailed))
	assert.Equal(t, 18, models.ExitCode(err))
	assert.Equal(t, []string{"pull"}, exec.Commands())
}

func TestApply_StopsMidway(t *testing.T) {
	exec := composetest.NewFakeExecutor().WithCode("up -d", 1)

	err := compose.Apply(context.Background(), exec, compose.Options{})

	assert.Error(t, err)
	assert.Equal(t, []string{"pull", "build", "down", "up -d"}, exec.Commands())
}
