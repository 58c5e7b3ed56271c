// Package diagnosis implements the rule-preempted, LLM-backed decision
// graph: a fixed, closed set of node functions wired by a single
// conditional router — no reflection, no third-party graph library,
// mirroring the original's LangGraph architecture
// (analyze_evidence -> route_by_command -> {execute_action, send_alert,
// no_action, error_handler}) with Go closures standing in for graph nodes.
package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaelsworks/sentinel/internal/diagnosis/llm"
)

const systemPrompt = `You are a container remediation assistant for a Docker host supervisor.
Thresholds: cpu_warning=70, cpu_critical=90, memory_warning=70, memory_critical=85 (percent).
Fault kinds: CPU_HIGH, MEMORY_HIGH, PROCESS_CRASH, OOM_KILLED, HEALTH_FAIL, MEMORY_LEAK_SUSPECTED, ATTACK_ATTEMPT, SECURITY_INCIDENT, SECURITY_LOG_ALERT, MALICIOUS_PROCESS, SYSTEM_ERROR, NO_ERROR, UNKNOWN.
Commands: RESTART, STOP, COMMIT, ALERT_ONLY, NONE.
Security tiering: Level 1 = log-only attack signatures (e.g. injection patterns in logs with no corresponding process) -> ALERT_ONLY. Level 2 = a malicious process or reverse shell actually running -> COMMIT.
Only choose COMMIT for a Level 2 security incident requiring forensic preservation.
Only choose RESTART for transient resource or crash faults where a restart is likely to resolve the issue.
Choose STOP when continued operation poses a risk and no safe automatic recovery exists.
Choose ALERT_ONLY when a human should decide, including all Level 1 security signals. Choose NONE when the evidence does not indicate a real fault.
Respond with a single JSON object only, no commentary, with exactly these fields:
{"fault_type": "<one of the fault kinds>", "command": "<one of the commands>", "params": {"container_name": "...", "current_cpu": 0.0, "current_memory": 0.0, "retry_count": 0}, "reason": "short justification"}`

// Graph runs evidence through the rule precheck, then the LLM node, then
// the router, producing a final Decision.
type Graph struct {
	client llm.Client
	opts   llm.Options
}

func NewGraph(client llm.Client, opts llm.Options) *Graph {
	return &Graph{client: client, opts: opts}
}

// Run executes the graph for one Context, returning the routed Decision.
// This is the analyze_evidence entry node.
func (g *Graph) Run(ctx context.Context, c Context) Decision {
	if d, matched := precheckRules(c); matched {
		return routeDecision(d)
	}
	return g.analyzeWithLLM(ctx, c)
}

// analyzeWithLLM is the analyze_evidence node's LLM branch: build a
// prompt from evidence, call the model, and route its answer.
func (g *Graph) analyzeWithLLM(ctx context.Context, c Context) Decision {
	prompt := buildEvidencePrompt(c)
	raw, err := g.client.Chat(ctx, systemPrompt, prompt, g.opts)
	if err != nil {
		return errorHandlerNode(c, fmt.Errorf("llm call failed: %w", err))
	}

	parsed, perr := parseModelResponse(raw)
	if perr != nil {
		return errorHandlerNode(c, perr)
	}

	params := buildParams(c)
	params.ContainerName = c.Evidence.ContainerName // forced, never trust the model's copy

	return routeDecision(Decision{
		Container: c.Evidence.ContainerName,
		FaultType: parsed.FaultType,
		Command:   parsed.Command,
		Params:    params,
		Reason:    parsed.Reason,
		Source:    "llm",
		RawLLM:    raw,
	})
}

// errorHandlerNode is the graph's error_handler node: an LLM or parse
// failure must never escalate to an automatic action, so it always
// degrades to ALERT_ONLY while preserving the underlying error for
// operators to inspect.
func errorHandlerNode(c Context, err error) Decision {
	return Decision{
		Container: c.Evidence.ContainerName,
		FaultType: "SYSTEM_ERROR",
		Command:   CommandAlertOnly,
		Params:    buildParams(c),
		Reason:    "diagnosis error, defaulting to alert-only",
		Source:    "llm",
		Err:       err,
	}
}

// routeDecision is the route_by_command node: it doesn't change the
// command, it just asserts the decision lands in one of the graph's
// known terminal branches (execute_action for RESTART/STOP/COMMIT,
// send_alert for ALERT_ONLY, no_action for NONE). An unrecognized
// command from a misbehaving model is downgraded to ALERT_ONLY (with no
// Err set), never silently executed.
func routeDecision(d Decision) Decision {
	switch d.Command {
	case CommandRestart, CommandStop, CommandCommit, CommandAlertOnly, CommandNone:
		return d
	default:
		return Decision{
			Container: d.Container,
			FaultType: d.FaultType,
			Command:   CommandAlertOnly,
			Params:    d.Params,
			Reason:    fmt.Sprintf("unrecognized command %q from diagnosis, defaulting to alert-only", d.Command),
			Source:    d.Source,
			RawLLM:    d.RawLLM,
		}
	}
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

type modelParams struct {
	ContainerName string  `json:"container_name"`
	CurrentCPU    float64 `json:"current_cpu"`
	CurrentMemory float64 `json:"current_memory"`
	RetryCount    int     `json:"retry_count"`
}

type modelResponse struct {
	FaultType string      `json:"fault_type"`
	Command   string      `json:"command"`
	Params    modelParams `json:"params"`
	Reason    string      `json:"reason"`
}

type parsedDecision struct {
	FaultType string
	Command   Command
	Reason    string
}

// parseModelResponse tolerates a ```json fenced response and otherwise
// strict JSON, matching the original's tolerance for models that wrap
// their answer in markdown. Missing fault_type/params are tolerated —
// buildParams(c) supplies the authoritative params from Evidence instead
// of trusting the model's copy of them.
func parseModelResponse(raw string) (parsedDecision, error) {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var mr modelResponse
	if err := json.Unmarshal([]byte(text), &mr); err != nil {
		return parsedDecision{}, fmt.Errorf("malformed diagnosis response: %w", err)
	}
	if mr.Command == "" {
		return parsedDecision{}, fmt.Errorf("diagnosis response missing command field")
	}
	return parsedDecision{
		FaultType: mr.FaultType,
		Command:   Command(strings.ToUpper(mr.Command)),
		Reason:    mr.Reason,
	}, nil
}

func buildEvidencePrompt(c Context) string {
	ev := c.Evidence
	var sb strings.Builder
	fmt.Fprintf(&sb, "Container: %s\n", ev.ContainerName)
	fmt.Fprintf(&sb, "Fault type: %s\n", ev.FaultType)
	if ev.Info != nil {
		fmt.Fprintf(&sb, "State: %s, restart_count: %d, restart_policy: %s\n", ev.Info.State, ev.Info.RestartCount, ev.Info.RestartPolicy)
	}
	if ev.Stats != nil {
		fmt.Fprintf(&sb, "CPU percent: %.2f, memory percent: %.2f\n", ev.Stats.CPUPercent, ev.Stats.MemPercent)
	}
	fmt.Fprintf(&sb, "Health: healthy=%v, %s\n", ev.Health.Healthy, ev.Health.Message)
	if len(ev.SecurityIssues) > 0 {
		fmt.Fprintf(&sb, "Security issues: %v\n", ev.SecurityIssues)
	}
	fmt.Fprintf(&sb, "Restart count in last 24h: %d\n", c.RestartCount24h)
	fmt.Fprintf(&sb, "Recent logs:\n%s\n", ev.Logs)
	return sb.String()
}
