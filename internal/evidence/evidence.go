// Package evidence assembles the structured Evidence packet the diagnosis
// graph reasons over: container info, resource stats, recent logs, health
// check result, security findings and active network connections.
package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/runtime"
	"github.com/kaelsworks/sentinel/internal/security"
)

// Evidence is the full fact packet collected for one container at the
// moment a fault was suspected.
type Evidence struct {
	ContainerName    string
	FaultType        string
	CollectedAt      time.Time
	Info             *runtime.Info
	Stats            *runtime.Stats
	Logs             string
	Health           HealthResult
	SecurityIssues   []string
	ActiveConnections map[string]int
}

// HealthResult is the outcome of a container's configured health check.
// A container with no health check configured is reported healthy, same
// as the original's default branch.
type HealthResult struct {
	Healthy bool
	Message string
}

// Collector gathers Evidence for a named container.
type Collector struct {
	rt    runtime.Adapter
	rules security.Rules
	cfg   *config.Config
}

func New(rt runtime.Adapter, rules security.Rules, cfg *config.Config) *Collector {
	return &Collector{rt: rt, rules: rules, cfg: cfg}
}

// Collect gathers the full evidence packet for name, tagging it with
// faultType (the fault the monitor suspected when triggering collection).
func (c *Collector) Collect(ctx context.Context, name, faultType string) (*Evidence, error) {
	ev := &Evidence{
		ContainerName: name,
		FaultType:     faultType,
		CollectedAt:   time.Now(),
	}

	// The collector never fails outright: an Inspect error (container gone,
	// daemon hiccup) still has to produce a reportable Evidence, same as
	// the original's get_container_info(...) or {"name": ..., "status":
	// "unknown"} fallback.
	info, err := c.rt.Inspect(ctx, name)
	if err != nil {
		info = &runtime.Info{Name: name, State: "unknown"}
	}
	ev.Info = info

	if info.Running {
		if stats, err := c.rt.Stats(ctx, name); err == nil {
			ev.Stats = stats
		}
	}

	tailLines := 50
	if c.cfg != nil && c.cfg.System.EvidenceLogLines > 0 {
		tailLines = c.cfg.System.EvidenceLogLines
	}
	if logs, err := c.rt.Logs(ctx, name, tailLines); err == nil {
		ev.Logs = logs
	}

	cc := c.cfg.Container(name)
	ev.Health = c.CheckHealth(ctx, name, cc)

	ev.SecurityIssues = c.collectSecurityIssues(ctx, name, ev.Logs)
	ev.ActiveConnections = c.collectConnections(ctx, name)

	return ev, nil
}

func (c *Collector) collectSecurityIssues(ctx context.Context, name, logs string) []string {
	var issues []string
	if matched := c.rules.CheckLogs(logs); len(matched) > 0 {
		issues = append(issues, fmt.Sprintf("log injection patterns detected: %v", matched))
	}
	top, err := c.rt.Top(ctx, name)
	if err == nil {
		if matched := c.rules.CheckProcesses(top); len(matched) > 0 {
			issues = append(issues, fmt.Sprintf("malicious processes detected: %v", matched))
		}
	}
	return issues
}
