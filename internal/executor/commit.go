package executor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// commitCooldown matches the original's COMMIT_COOLDOWN_SECONDS constant:
// at most one forensic commit per container per hour, regardless of
// whether the commit itself succeeds.
const commitCooldown = time.Hour

// executeCommit merges the two competing definitions found in the
// original's executor.py: the first definition's cooldown gate (checked
// before running, updated on every call including failures) combined with
// the second, shadowing definition's actual dump+commit+isolate mechanics
// (single forensic dump file with fallback command chains, a
// forensics_-prefixed image tag, and an unconditional post-commit STOP to
// isolate the container regardless of whether the commit succeeded).
func (e *Executor) executeCommit(ctx context.Context, container string) Result {
	e.mu.Lock()
	if until, ok := e.lastCommitTime[container]; ok {
		if e.now().Sub(until) < commitCooldown {
			e.mu.Unlock()
			return Result{
				Success:   false,
				Command:   "COMMIT",
				Container: container,
				Reason:    "commit cooldown active, skipping forensic commit",
			}
		}
	}
	e.lastCommitTime[container] = e.now()
	e.mu.Unlock()

	timestamp := e.now().Format("20060102_150405")
	dumpOutput, dumpErr := e.collectForensicDump(ctx, container)

	imageTag := fmt.Sprintf("forensics_%s_%s", container, timestamp)
	commitErr := e.rt.Commit(ctx, container, imageTag)

	// Isolation always runs after a commit attempt, win or lose: a
	// compromised container must not keep running just because the
	// forensic snapshot failed.
	stopResult := e.executeStop(ctx, container)

	if commitErr != nil {
		return Result{
			Success:      false,
			Command:      "COMMIT",
			Container:    container,
			Reason:       fmt.Sprintf("commit failed: %v", commitErr),
			Message:      dumpSummary(dumpOutput, dumpErr),
			FinalAction:  "STOP",
			Verification: stopResult.Verification,
		}
	}

	return Result{
		Success:      true,
		Command:      "COMMIT",
		Container:    container,
		Message:      fmt.Sprintf("forensic snapshot %s captured; %s", imageTag, dumpSummary(dumpOutput, dumpErr)),
		FinalAction:  "STOP",
		Verification: stopResult.Verification,
	}
}

func dumpSummary(dump string, err error) string {
	if err != nil {
		return fmt.Sprintf("forensic dump incomplete: %v", err)
	}
	return fmt.Sprintf("forensic dump captured (%d bytes)", len(dump))
}

// collectForensicDump runs a single combined dump command inside the
// container, each probe falling back to an alternate tool (or a literal
// "failed" marker) if the primary tool is unavailable, same as the
// original's `||`-chained forensic command.
func (e *Executor) collectForensicDump(ctx context.Context, container string) (string, error) {
	cmd := []string{"sh", "-c", strings.Join([]string{
		"ps auxf 2>/dev/null || ps -ef 2>/dev/null || echo 'ps failed'",
		"echo '---netstat---'",
		"netstat -anp 2>/dev/null || ss -anp 2>/dev/null || echo 'netstat failed'",
		"echo '---env---'",
		"env 2>/dev/null || echo 'env failed'",
	}, "; ")}

	out, err := e.rt.Exec(ctx, container, cmd)
	if err != nil {
		return "", fmt.Errorf("forensic dump exec failed: %w", err)
	}
	return out, nil
}
