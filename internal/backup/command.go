package backup

import (
	"context"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
)

// execLabel runs a label command inside the service container. The command
// is split into words the way a POSIX shell would, without running one.
func (c *Client) execLabel(ctx context.Context, opts compose.Options, service, command, what string, kind models.Kind) error {
	words, err := shellquote.Split(command)
	if err != nil {
		return models.WrapError(kind, err, "invalid %s command for service %s", what, service)
	}
	if len(words) == 0 {
		return models.NewError(kind, 0, "empty %s command for service %s", what, service)
	}

	args := make([]string, 0, len(words)+2)
	if !c.settings.Interactive {
		args = append(args, "-T")
	}
	args = append(args, service)
	args = append(args, words...)

	c.logger.WithFields(logrus.Fields{"service": service, "command": command}).Infof("Running %s command", what)

	code, err := c.exec.Run(ctx, opts, "exec", args...)
	if err != nil {
		return models.WrapError(kind, err, "%s command for service %s could not be started", what, service)
	}
	if code != 0 {
		return models.NewError(kind, code, "%s command for service %s exited non-zero", what, service)
	}
	return nil
}
