package notify

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Render builds a Notification from a typed payload, mirroring the
// original's format_alert_email: four distinct branches for alert,
// action_result, recovery and circuit_break, with a generic fallback for
// anything else so an unrecognized type still produces a readable email
// instead of silently dropping data.
func Render(kind string, data map[string]any) Notification {
	switch kind {
	case "alert":
		return renderAlert(data)
	case "action_result":
		return renderActionResult(data)
	case "recovery":
		return renderRecovery(data)
	case "circuit_break":
		return renderCircuitBreak(data)
	default:
		return renderGeneric(kind, data)
	}
}

func str(data map[string]any, key string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func renderAlert(data map[string]any) Notification {
	container := str(data, "container")
	faultType := str(data, "fault_type")
	subject := fmt.Sprintf("\U0001F525 Sentinel Alert: %s (%s)", container, faultType)
	body := fmt.Sprintf(
		"<h2>\U0001F525 Fault detected</h2><p><b>Container:</b> %s</p><p><b>Fault:</b> %s</p>"+
			"<p><b>CPU:</b> %s%%</p><p><b>Memory:</b> %s%%</p>"+
			"<p><b>Reason:</b> %s</p><p><b>Detail:</b> %s</p><p><b>Time:</b> %s</p>",
		container, faultType, str(data, "current_cpu"), str(data, "current_memory"),
		str(data, "reason"), str(data, "detail"), time.Now().Format(time.RFC3339),
	)
	return Notification{Type: "alert", Subject: subject, Body: body, Severity: "critical", Data: data}
}

func renderActionResult(data map[string]any) Notification {
	container := str(data, "container")
	command := str(data, "command")
	subject := fmt.Sprintf("⚠️ Sentinel Action: %s on %s", command, container)
	body := fmt.Sprintf(
		"<h2>⚠️ Remediation executed</h2><p><b>Container:</b> %s</p><p><b>Command:</b> %s</p><p><b>Success:</b> %v</p><p><b>Reason:</b> %s</p><p><b>Message:</b> %s</p>",
		container, command, data["success"], str(data, "reason"), str(data, "message"),
	)
	return Notification{Type: "action_result", Subject: subject, Body: body, Severity: "warning", Data: data}
}

func renderRecovery(data map[string]any) Notification {
	container := str(data, "container")
	subject := fmt.Sprintf("✅ Sentinel Recovery: %s", container)
	body := fmt.Sprintf(
		"<h2>✅ Container recovered</h2><p><b>Container:</b> %s</p><p><b>Attempts:</b> %v</p><p><b>Message:</b> %s</p>",
		container, data["total_attempts"], str(data, "message"),
	)
	return Notification{Type: "recovery", Subject: subject, Body: body, Severity: "info", Data: data}
}

func renderCircuitBreak(data map[string]any) Notification {
	container := str(data, "container")
	subject := fmt.Sprintf("⛔ Sentinel Circuit Breaker: %s", container)
	body := fmt.Sprintf(
		"<h2>⛔ Circuit breaker opened</h2><p><b>Container:</b> %s</p><p><b>Reason:</b> too many reports within the configured window</p><p><b>Cooldown until:</b> %s</p>",
		container, str(data, "cooldown_until"),
	)
	return Notification{Type: "circuit_break", Subject: subject, Body: body, Severity: "critical", Data: data}
}

func renderGeneric(kind string, data map[string]any) Notification {
	var sb strings.Builder
	for k, v := range data {
		sb.WriteString(fmt.Sprintf("<b>%s:</b> %v<br/>", k, v))
	}
	return Notification{
		Type:    kind,
		Subject: fmt.Sprintf("Sentinel notification: %s", kind),
		Body:    fmt.Sprintf("<pre>%s</pre>", sb.String()),
		Severity: "info",
		Data:    data,
	}
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(body string) string {
	return htmlTagPattern.ReplaceAllString(body, "")
}
