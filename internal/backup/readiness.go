package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/retry"
	"github.com/pkg/errors"

	"github.com/yourlabs/compoctl/internal/compose"
	"github.com/yourlabs/compoctl/internal/models"
)

const healthHealthy = "healthy"

// notReady is returned by a readiness probe that should be retried
type notReady struct {
	reason string
}

func (e *notReady) Error() string {
	return e.reason
}

// waitReady polls the containers of service until each is running and
// either healthy or, without healthcheck, running for the settle period
func (c *Client) waitReady(ctx context.Context, opts compose.Options, service string) error {
	spinner := c.progress.Spinner(fmt.Sprintf("Waiting for %s", service))
	defer spinner.Stop()

	c.logger.WithField("service", service).Info("Waiting for service to be ready")

	runningSince := map[string]time.Time{}
	probe := func() error {
		ids, err := c.containerIDs(ctx, opts, service)
		if err != nil {
			return reclassify(err, models.KindRestoreFailed, "cannot list containers of %s", service)
		}
		if len(ids) == 0 {
			return &notReady{reason: "no container started yet"}
		}

		for _, id := range ids {
			state, err := c.engine.ContainerState(ctx, id)
			if err != nil {
				return &notReady{reason: err.Error()}
			}
			if !state.Running {
				delete(runningSince, id)
				return &notReady{reason: fmt.Sprintf("container %s is not running", id)}
			}

			if state.Health != "" {
				if state.Health != healthHealthy {
					return &notReady{reason: fmt.Sprintf("container %s is %s", id, state.Health)}
				}
				continue
			}

			since, ok := runningSince[id]
			if !ok {
				since = c.clock.Now()
				runningSince[id] = since
			}
			if c.clock.Now().Sub(since) < c.settings.Settle {
				return &notReady{reason: fmt.Sprintf("container %s is settling", id)}
			}
		}
		return nil
	}

	err := retry.Call(retry.CallArgs{
		Func: probe,
		IsFatalError: func(err error) bool {
			var nr *notReady
			return !errors.As(err, &nr)
		},
		NotifyFunc: func(err error, attempt int) {
			c.logger.WithField("service", service).WithField("attempt", attempt).Debugf("Not ready: %v", err)
			spinner.Update(fmt.Sprintf("Waiting for %s: %v", service, err))
		},
		Attempts:    -1,
		Delay:       c.settings.Interval,
		MaxDuration: c.settings.Timeout,
		Clock:       c.clock,
		Stop:        ctx.Done(),
	})
	if err == nil {
		return nil
	}

	switch {
	case retry.IsDurationExceeded(err):
		return models.WrapError(models.KindReadinessTimeout, retry.LastError(err),
			"service %s not ready after %s", service, c.settings.Timeout)
	case retry.IsRetryStopped(err):
		return models.WrapError(models.KindRestoreFailed, ctx.Err(), "waiting for service %s interrupted", service)
	}
	return errors.Cause(err)
}
