package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/runtime"
	"github.com/sony/gobreaker"
)

const restartFailureThreshold = 65.0 // percent, matches the original's fixed 65% gate

// executeRestartGuarded runs executeRestart through the container's
// restart circuit breaker: an open breaker short-circuits straight to a
// denial instead of attempting another doomed restart cycle.
func (e *Executor) executeRestartGuarded(ctx context.Context, container string) Result {
	breaker := e.breakerFor(container)
	out, err := breaker.Execute(func() (interface{}, error) {
		r := e.executeRestart(ctx, container)
		if !r.Success {
			return r, fmt.Errorf("restart did not verify healthy: %s", r.Reason)
		}
		return r, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return Result{
				Success:   false,
				Command:   "RESTART",
				Container: container,
				Reason:    "restart circuit breaker open, too many failed restarts recently",
			}
		}
		return out.(Result)
	}
	return out.(Result)
}

// executeRestart retries a restart up to the container's configured
// max_retries, re-inspecting, re-fetching stats and re-running the health
// check after each attempt. It returns as soon as one attempt verifies
// clean; after exhausting retries it issues a final STOP to isolate the
// container rather than leaving it flapping.
func (e *Executor) executeRestart(ctx context.Context, container string) Result {
	cc := e.cfg.Container(container)
	maxRetries := 3
	delaySeconds := 10
	if cc != nil {
		if cc.Policy.MaxRetries > 0 {
			maxRetries = cc.Policy.MaxRetries
		}
		if cc.Policy.RestartDelaySeconds > 0 {
			delaySeconds = cc.Policy.RestartDelaySeconds
		}
	}

	var attempts []AttemptResult

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := e.rt.Restart(ctx, container, 10); err != nil {
			attempts = append(attempts, AttemptResult{Attempt: attempt, FailureFlag: 1})
			continue
		}

		select {
		case <-time.After(time.Duration(delaySeconds) * time.Second):
		case <-ctx.Done():
			return Result{Success: false, Command: "RESTART", Container: container, Reason: "context cancelled mid-retry", Attempts: attempts, TotalAttempts: attempt}
		}

		info, err := e.rt.Inspect(ctx, container)
		if err != nil || !info.Running {
			attempts = append(attempts, AttemptResult{Attempt: attempt, FailureFlag: 1})
			continue
		}

		stats, err := e.rt.Stats(ctx, container)
		if err != nil {
			attempts = append(attempts, AttemptResult{Attempt: attempt, FailureFlag: 1})
			continue
		}

		flag := e.verifyAttempt(ctx, container, cc, stats)
		attempts = append(attempts, AttemptResult{
			Attempt:     attempt,
			FailureFlag: flag,
			CPUPercent:  stats.CPUPercent,
			MemPercent:  stats.MemPercent,
		})

		if flag == 0 {
			return Result{
				Success:       true,
				Command:       "RESTART",
				Container:     container,
				Message:       "container restarted and verified healthy",
				IsRecovered:   true,
				TotalAttempts: attempt,
				Attempts:      attempts,
			}
		}
	}

	stopResult := e.executeStop(ctx, container)
	return Result{
		Success:       false,
		Command:       "RESTART",
		Container:     container,
		Reason:        fmt.Sprintf("exhausted %d restart attempts without a healthy verification", maxRetries),
		IsRecovered:   false,
		TotalAttempts: maxRetries,
		Attempts:      attempts,
		FinalAction:   "STOP",
		Verification:  stopResult.Verification,
	}
}

// verifyAttempt classifies one post-restart observation into a failure
// flag matching the original's exact ordering: unhealthy health check
// first, then CPU, then memory, both gated at a fixed 65% threshold.
func (e *Executor) verifyAttempt(ctx context.Context, container string, cc *config.ContainerConfig, stats *runtime.Stats) int {
	health := e.health.CheckHealth(ctx, container, cc)
	if !health.Healthy {
		return 1
	}
	if stats.CPUPercent > restartFailureThreshold {
		return 2
	}
	if stats.MemPercent > restartFailureThreshold {
		return 3
	}
	return 0
}
