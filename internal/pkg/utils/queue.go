package utils

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

// maxHandlerErrors is the drop threshold for queue jobs.
// Status and inform messages are repeatable notifications, losing one is acceptable
const maxHandlerErrors = 2

// CreateHandler wraps a typed message handler into a gue work func.
// The job payload is decoded into TM. A job that already failed more than
// maxHandlerErrors times is dropped so a poisoned message does not loop forever
func CreateHandler[TM any, SD any](srv *SD, workF func(context.Context, *TM, *SD) error) gue.WorkFunc {
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")
		if j.ErrorCount > maxHandlerErrors {
			goapp.Log.Error().Int32("errCount", j.ErrorCount).Str("lastError", j.LastError.String).Msg("msg failed, drop")
			return nil
		}
		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			return fmt.Errorf("can't unmarshal msg: %w", err)
		}
		return workF(ctx, &m, srv)
	}
}
