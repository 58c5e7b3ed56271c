package diagnosis

import (
	"fmt"
	"strings"

	"github.com/kaelsworks/sentinel/internal/evidence"
)

// Context bundles an Evidence packet with the extra facts the rule
// precheck and LLM node need but that don't belong on Evidence itself.
type Context struct {
	Evidence        *evidence.Evidence
	RestartCount24h int
	LLMConfigured   bool
}

// precheckRules is the safety floor applied before the LLM ever runs:
// rule-preempted decisions the graph must never defer to a model for.
// Order matters — security incidents outrank restart-storms, which
// outrank a missing LLM credential.
func precheckRules(c Context) (Decision, bool) {
	ev := c.Evidence

	// Only a malicious-process signal forces a COMMIT. Log-injection
	// patterns alone (Level 1, no process evidence) are a weaker signal
	// the LLM node should still triage into ALERT_ONLY rather than
	// bypassing straight to a forensic snapshot+stop.
	if malicious := maliciousProcessIssues(ev.SecurityIssues); len(malicious) > 0 {
		return Decision{
			Container: ev.ContainerName,
			FaultType: "SECURITY_INCIDENT",
			Command:   CommandCommit,
			Params:    buildParams(c),
			Reason:    fmt.Sprintf("malicious process detected: %v", malicious),
			Source:    "rule",
		}, true
	}

	if c.RestartCount24h > 5 {
		return Decision{
			Container: ev.ContainerName,
			FaultType: "PROCESS_CRASH",
			Command:   CommandStop,
			Params:    buildParams(c),
			Reason:    fmt.Sprintf("restart count in last 24h (%d) exceeds safety threshold", c.RestartCount24h),
			Source:    "rule",
		}, true
	}

	if !c.LLMConfigured {
		return Decision{
			Container: ev.ContainerName,
			FaultType: ev.FaultType,
			Command:   CommandAlertOnly,
			Params:    buildParams(c),
			Reason:    "no LLM credential configured, falling back to alert-only",
			Source:    "rule",
			Err:       fmt.Errorf("API key missing"),
		}, true
	}

	return Decision{}, false
}

// buildParams assembles the params{container_name, current_cpu,
// current_memory, retry_count} block shared by every Decision, rule-made
// or LLM-made.
func buildParams(c Context) Params {
	ev := c.Evidence
	p := Params{ContainerName: ev.ContainerName, RetryCount: c.RestartCount24h}
	if ev.Info != nil {
		p.RetryCount = ev.Info.RestartCount
	}
	if ev.Stats != nil {
		p.CurrentCPU = ev.Stats.CPUPercent
		p.CurrentMemory = ev.Stats.MemPercent
	}
	return p
}

// maliciousProcessIssues filters an Evidence's SecurityIssues down to the
// ones evidence.Collector tags as a running malicious process, as opposed
// to a log-injection pattern match with no corresponding process.
func maliciousProcessIssues(issues []string) []string {
	var out []string
	for _, issue := range issues {
		if strings.Contains(issue, "malicious processes detected") {
			out = append(out, issue)
		}
	}
	return out
}
