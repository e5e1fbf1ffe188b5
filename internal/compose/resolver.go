package compose

import (
	"context"
	"errors"

	"github.com/yourlabs/compoctl/internal/models"
)

// Resolver reads the effective merged configuration from the orchestrator
type Resolver struct {
	exec Executor
}

// NewResolver creates a resolver using exec to query the orchestrator
func NewResolver(exec Executor) *Resolver {
	return &Resolver{exec: exec}
}

// Resolve runs the orchestrator's config subcommand and parses its output
func (r *Resolver) Resolve(ctx context.Context, opts Options) (*Project, error) {
	out, err := r.exec.Output(ctx, opts, "config")
	if err != nil {
		var cmdErr *models.Error
		if errors.As(err, &cmdErr) {
			return nil, &models.Error{
				Kind:    models.KindConfigUnavailable,
				Code:    cmdErr.Code,
				Message: "cannot read effective configuration",
			}
		}
		return nil, models.WrapError(models.KindConfigUnavailable, err, "cannot read effective configuration")
	}

	project, err := Parse(out)
	if err != nil {
		return nil, models.WrapError(models.KindConfigUnavailable, err, "cannot parse effective configuration")
	}
	return project, nil
}
