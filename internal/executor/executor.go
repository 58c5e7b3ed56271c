// Package executor dispatches whitelisted remediation commands against a
// container and verifies their effect, the Go-native replacement for the
// original's executor.py subprocess+retry logic.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/evidence"
	"github.com/kaelsworks/sentinel/internal/runtime"
	"github.com/kaelsworks/sentinel/internal/security"
	"github.com/sony/gobreaker"
)

// Result is the outcome of running one command against one container.
type Result struct {
	Success      bool
	Command      string
	Container    string
	Message      string
	Reason       string
	Verification string
	IsRecovered  bool
	TotalAttempts int
	Attempts     []AttemptResult
	FinalAction  string
}

// AttemptResult records one RESTART retry attempt's verification outcome.
type AttemptResult struct {
	Attempt      int
	FailureFlag  int // 0=ok, 1=unhealthy, 2=cpu high, 3=mem high
	CPUPercent   float64
	MemPercent   float64
}

// Executor runs whitelisted actions against containers via a
// runtime.Adapter, guarding COMMIT behind a per-container cooldown.
type Executor struct {
	rt     runtime.Adapter
	cfg    *config.Config
	health *evidence.Collector

	mu             sync.Mutex
	lastCommitTime map[string]time.Time
	restartBreaker map[string]*gobreaker.CircuitBreaker
	now            func() time.Time
}

func New(rt runtime.Adapter, cfg *config.Config) *Executor {
	return &Executor{
		rt:             rt,
		cfg:            cfg,
		health:         evidence.New(rt, security.Rules{}, cfg),
		lastCommitTime: make(map[string]time.Time),
		restartBreaker: make(map[string]*gobreaker.CircuitBreaker),
		now:            time.Now,
	}
}

// breakerFor returns (creating on first use) the restart circuit breaker
// for a container: repeated exhausted-retry restarts within the
// configured window trip it open for the configured cooldown, so a
// container stuck crash-looping stops getting hammered with restart
// attempts while it's clearly not recovering.
func (e *Executor) breakerFor(container string) *gobreaker.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.restartBreaker[container]; ok {
		return b
	}
	maxAttempts := e.cfg.CircuitBreaker.MaxRestartAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	settings := gobreaker.Settings{
		Name:        "restart:" + container,
		MaxRequests: 1,
		Interval:    time.Duration(e.cfg.CircuitBreaker.WindowSeconds) * time.Second,
		Timeout:     time.Duration(e.cfg.CircuitBreaker.CooldownSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxAttempts)
		},
	}
	b := gobreaker.NewCircuitBreaker(settings)
	e.restartBreaker[container] = b
	return b
}

// Execute dispatches command against container, refusing anything not in
// the configured whitelist — the last line of defense against a
// misbehaving diagnosis result ever reaching an unapproved action.
func (e *Executor) Execute(ctx context.Context, command, container string) Result {
	if !e.cfg.IsActionAllowed(command) {
		return Result{
			Success:   false,
			Command:   command,
			Container: container,
			Reason:    fmt.Sprintf("command %q is not in the allowed_actions whitelist", command),
		}
	}

	switch command {
	case "RESTART":
		return e.executeRestartGuarded(ctx, container)
	case "STOP":
		return e.executeStop(ctx, container)
	case "COMMIT":
		return e.executeCommit(ctx, container)
	case "ALERT_ONLY", "NONE":
		return Result{Success: true, Command: command, Container: container, Message: "no action taken"}
	default:
		return Result{
			Success:   false,
			Command:   command,
			Container: container,
			Reason:    fmt.Sprintf("unsupported command %q", command),
		}
	}
}
