package notify

import (
	"strings"
	"testing"
)

func TestRenderAlert(t *testing.T) {
	n := Render("alert", map[string]any{
		"container": "web", "fault_type": "CPU_HIGH", "detail": "95% cpu",
		"reason": "cpu above critical threshold", "current_cpu": 95.0, "current_memory": 40.0,
	})
	if n.Severity != "critical" {
		t.Errorf("alert severity = %q, want critical", n.Severity)
	}
	if n.Subject == "" || n.Body == "" {
		t.Error("alert render produced empty subject/body")
	}
	if !strings.Contains(n.Body, "95") || !strings.Contains(n.Body, "40") {
		t.Errorf("alert body should include CPU/memory figures, got %q", n.Body)
	}
	if !strings.Contains(n.Body, "cpu above critical threshold") {
		t.Error("alert body should include the decision reason")
	}
}

func TestRenderActionResult(t *testing.T) {
	n := Render("action_result", map[string]any{"container": "web", "command": "RESTART", "success": true})
	if n.Type != "action_result" {
		t.Errorf("type = %q", n.Type)
	}
}

func TestRenderUnknownKindFallsBackToGeneric(t *testing.T) {
	n := Render("something_unexpected", map[string]any{"foo": "bar"})
	if n.Type != "something_unexpected" {
		t.Errorf("generic render type = %q, want something_unexpected", n.Type)
	}
	if n.Subject == "" {
		t.Error("generic render should still produce a subject")
	}
}

func TestSanitizeHeaderStripsCRLF(t *testing.T) {
	got := sanitizeHeader("Subject\r\nBcc: attacker@example.com")
	if got != "SubjectBcc: attacker@example.com" {
		t.Errorf("sanitizeHeader() = %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<h2>Title</h2><p>body <b>text</b></p>")
	if got != "Titlebody text" {
		t.Errorf("stripHTML() = %q, want %q", got, "Titlebody text")
	}
}
