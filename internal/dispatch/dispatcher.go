// Package dispatch hands admitted jobs to the image processing service.
package dispatch

import (
	"context"

	"github.com/glasskite/darkroom/internal/domain/model"
)

// Dispatcher submits a queued job for processing. Implementations must return
// an error only when the job was not accepted; once Dispatch returns nil the
// outcome arrives later through the internal callback endpoint.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *model.Job) error
}
