package executor

import (
	"context"
	"fmt"
	"time"
)

const stopSettleDelay = 3 * time.Second

// executeStop stops the container and re-inspects after a short settle
// delay to verify it actually went down, rather than trusting a
// zero-error return from the stop call alone.
func (e *Executor) executeStop(ctx context.Context, container string) Result {
	if err := e.rt.Stop(ctx, container, 10); err != nil {
		return Result{
			Success:   false,
			Command:   "STOP",
			Container: container,
			Reason:    fmt.Sprintf("stop command failed: %v", err),
		}
	}

	select {
	case <-time.After(stopSettleDelay):
	case <-ctx.Done():
		return Result{Success: false, Command: "STOP", Container: container, Reason: "context cancelled during settle"}
	}

	info, err := e.rt.Inspect(ctx, container)
	if err != nil {
		return Result{
			Success:      true,
			Command:      "STOP",
			Container:    container,
			Message:      "stop issued, verification inspect failed",
			Verification: fmt.Sprintf("inspect error: %v", err),
		}
	}

	if info.Running {
		return Result{
			Success:      false,
			Command:      "STOP",
			Container:    container,
			Reason:       "container still running after stop",
			Verification: "inspect shows running=true",
		}
	}

	return Result{
		Success:      true,
		Command:      "STOP",
		Container:    container,
		Message:      "container stopped",
		Verification: fmt.Sprintf("inspect shows state=%s", info.State),
	}
}
