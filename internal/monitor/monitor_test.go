package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/diagnosis"
	"github.com/kaelsworks/sentinel/internal/diagnosis/llm"
	"github.com/kaelsworks/sentinel/internal/evidence"
	"github.com/kaelsworks/sentinel/internal/executor"
	"github.com/kaelsworks/sentinel/internal/journal"
	"github.com/kaelsworks/sentinel/internal/notify"
	"github.com/kaelsworks/sentinel/internal/queue"
	"github.com/kaelsworks/sentinel/internal/runtime"
	"github.com/kaelsworks/sentinel/internal/security"
)

// fakeAdapter is a minimal runtime.Adapter stand-in for monitor tests.
type fakeAdapter struct {
	inspectErr error
	info       *runtime.Info
}

func (f *fakeAdapter) Inspect(ctx context.Context, name string) (*runtime.Info, error) {
	if f.inspectErr != nil {
		return nil, f.inspectErr
	}
	if f.info != nil {
		return f.info, nil
	}
	return &runtime.Info{Name: name, State: "running", Running: true}, nil
}
func (f *fakeAdapter) Stats(ctx context.Context, name string) (*runtime.Stats, error) {
	return &runtime.Stats{CPUPercent: 10, MemPercent: 10}, nil
}
func (f *fakeAdapter) Logs(ctx context.Context, name string, tailLines int) (string, error) {
	return "", nil
}
func (f *fakeAdapter) Top(ctx context.Context, name string) ([]string, error) { return nil, nil }
func (f *fakeAdapter) Exec(ctx context.Context, name string, cmd []string) (string, error) {
	return "", nil
}
func (f *fakeAdapter) Restart(ctx context.Context, name string, timeoutSeconds int) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context, name string, timeoutSeconds int) error     { return nil }
func (f *fakeAdapter) Commit(ctx context.Context, name, imageTag string) error             { return nil }
func (f *fakeAdapter) Events(ctx context.Context) (<-chan runtime.Event, <-chan error)     { return nil, nil }
func (f *fakeAdapter) Close() error                                                        { return nil }

// stubLLMClient returns a fixed command/reason pair for every call.
type stubLLMClient struct {
	response string
}

func (s stubLLMClient) Chat(ctx context.Context, system, user string, opts llm.Options) (string, error) {
	return s.response, nil
}

// capturingChannel records every notification sent through it instead of
// delivering anywhere, so tests can assert exactly what was (or wasn't)
// sent.
type capturingChannel struct {
	sent chan notify.Notification
}

func newCapturingChannel() *capturingChannel {
	return &capturingChannel{sent: make(chan notify.Notification, 16)}
}
func (c *capturingChannel) Name() string { return "capture" }
func (c *capturingChannel) Send(ctx context.Context, n notify.Notification) error {
	c.sent <- n
	return nil
}

func testMonitor(t *testing.T, rt runtime.Adapter, llmResponse string) (*Monitor, *capturingChannel, *journal.Journal) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Executor.AllowedActions = []string{"RESTART", "STOP", "COMMIT", "ALERT_ONLY", "NONE"}
	cfg.CircuitBreaker.MaxRestartAttempts = 3
	cfg.CircuitBreaker.WindowSeconds = 300
	cfg.CircuitBreaker.CooldownSeconds = 1800
	cfg.LLM.APIKey = "test-key"
	cfg.Watchlist.Containers = []config.ContainerConfig{{Name: "web", Enabled: true}}

	ev := evidence.New(rt, security.Rules{}, cfg)
	exec := executor.New(rt, cfg)
	graph := diagnosis.NewGraph(stubLLMClient{response: llmResponse}, llm.Options{})
	ch := newCapturingChannel()
	notifier := notify.New(ch)
	tasks := queue.New(context.Background(), 1)
	j, err := journal.New(filepath.Join(t.TempDir(), "history.jsonl"))
	if err != nil {
		t.Fatalf("journal.New() error = %v", err)
	}

	m := New(cfg, rt, ev, graph, exec, notifier, tasks, j)
	return m, ch, j
}

func drainNotifications(ch *capturingChannel) []notify.Notification {
	var out []notify.Notification
	for {
		select {
		case n := <-ch.sent:
			out = append(out, n)
		case <-time.After(200 * time.Millisecond):
			return out
		}
	}
}

func TestDiagnoseAndActSendsNoNotificationForNoneDecision(t *testing.T) {
	m, ch, _ := testMonitor(t, &fakeAdapter{}, `{"command": "NONE", "reason": "nothing wrong"}`)
	m.diagnoseAndAct(context.Background(), "web", FaultCPUHigh)

	notifications := drainNotifications(ch)
	if len(notifications) != 0 {
		t.Errorf("NONE decision should send zero notifications, got %d: %+v", len(notifications), notifications)
	}
}

func TestDiagnoseAndActSendsOneAlertForAlertOnlyDecision(t *testing.T) {
	m, ch, _ := testMonitor(t, &fakeAdapter{}, `{"command": "ALERT_ONLY", "reason": "needs a human"}`)
	m.diagnoseAndAct(context.Background(), "web", FaultHealthFail)

	notifications := drainNotifications(ch)
	if len(notifications) != 1 {
		t.Fatalf("ALERT_ONLY decision should send exactly one notification, got %d", len(notifications))
	}
	if notifications[0].Type != "alert" {
		t.Errorf("notification type = %q, want alert", notifications[0].Type)
	}
}

func TestDiagnoseAndActDegradesEvidenceOnInspectErrorAndStillActs(t *testing.T) {
	rt := &fakeAdapter{inspectErr: context.DeadlineExceeded}
	m, ch, j := testMonitor(t, rt, `{"command": "ALERT_ONLY", "reason": "container unreachable"}`)

	m.diagnoseAndAct(context.Background(), "web", FaultProcessCrash)

	notifications := drainNotifications(ch)
	if len(notifications) != 1 {
		t.Fatalf("an Inspect error should still produce a degraded Evidence and a routed decision, got %d notifications", len(notifications))
	}

	entries, err := j.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a journal entry even when Inspect fails, got %d", len(entries))
	}
}

func TestDiagnoseAndActExecutesAndNotifiesForRestartDecision(t *testing.T) {
	m, ch, _ := testMonitor(t, &fakeAdapter{}, `{"command": "RESTART", "reason": "transient crash"}`)
	m.diagnoseAndAct(context.Background(), "web", FaultProcessCrash)

	notifications := drainNotifications(ch)
	var sawActionResult bool
	for _, n := range notifications {
		if n.Type == "action_result" {
			sawActionResult = true
		}
		if n.Type == "alert" {
			t.Errorf("RESTART decision should not also send a plain alert notification, got %+v", n)
		}
	}
	if !sawActionResult {
		t.Error("RESTART decision should send an action_result notification")
	}
}
