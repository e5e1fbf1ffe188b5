package compose

import (
	"context"
	"strings"

	"github.com/yourlabs/compoctl/internal/models"
)

// ApplySteps is the sequence apply chains
var ApplySteps = [][]string{
	{"pull"},
	{"build"},
	{"down"},
	{"up", "-d"},
	{"logs"},
	{"ps"},
}

// Apply runs ApplySteps in order and stops at the first step that exits
// non-zero
func Apply(ctx context.Context, exec Executor, opts Options) error {
	for _, step := range ApplySteps {
		code, err := exec.Run(ctx, opts, step[0], step[1:]...)
		if err != nil {
			return models.WrapError(models.KindCommandFailed, err, "%s", strings.Join(step, " "))
		}
		if code != 0 {
			return models.NewError(models.KindCommandFailed, code, "%s failed", strings.Join(step, " "))
		}
	}
	return nil
}
