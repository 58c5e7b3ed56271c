package executor

import (
	"context"
	"testing"
	"time"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/runtime"
)

// fakeAdapter is an in-memory runtime.Adapter stand-in for executor tests.
type fakeAdapter struct {
	infoByName  map[string]*runtime.Info
	statsByName map[string]*runtime.Stats

	stopErr    error
	restartErr error
	commitErr  error
	execOutput string
	execErr    error

	stopCalls    int
	restartCalls int
	commitCalls  int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		infoByName:  make(map[string]*runtime.Info),
		statsByName: make(map[string]*runtime.Stats),
	}
}

func (f *fakeAdapter) Inspect(ctx context.Context, name string) (*runtime.Info, error) {
	if info, ok := f.infoByName[name]; ok {
		return info, nil
	}
	return &runtime.Info{Name: name, State: "running", Running: true}, nil
}
func (f *fakeAdapter) Stats(ctx context.Context, name string) (*runtime.Stats, error) {
	if s, ok := f.statsByName[name]; ok {
		return s, nil
	}
	return &runtime.Stats{CPUPercent: 10, MemPercent: 10}, nil
}
func (f *fakeAdapter) Logs(ctx context.Context, name string, tailLines int) (string, error) {
	return "", nil
}
func (f *fakeAdapter) Top(ctx context.Context, name string) ([]string, error) { return nil, nil }
func (f *fakeAdapter) Exec(ctx context.Context, name string, cmd []string) (string, error) {
	return f.execOutput, f.execErr
}
func (f *fakeAdapter) Restart(ctx context.Context, name string, timeoutSeconds int) error {
	f.restartCalls++
	return f.restartErr
}
func (f *fakeAdapter) Stop(ctx context.Context, name string, timeoutSeconds int) error {
	f.stopCalls++
	return f.stopErr
}
func (f *fakeAdapter) Commit(ctx context.Context, name, imageTag string) error {
	f.commitCalls++
	return f.commitErr
}
func (f *fakeAdapter) Events(ctx context.Context) (<-chan runtime.Event, <-chan error) {
	return nil, nil
}
func (f *fakeAdapter) Close() error { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Executor.AllowedActions = []string{"RESTART", "STOP", "COMMIT", "ALERT_ONLY", "NONE"}
	cfg.CircuitBreaker.MaxRestartAttempts = 3
	cfg.CircuitBreaker.WindowSeconds = 300
	cfg.CircuitBreaker.CooldownSeconds = 1800
	return cfg
}

func TestExecuteRejectsUnwhitelistedCommand(t *testing.T) {
	cfg := testConfig()
	cfg.Executor.AllowedActions = []string{"STOP"}
	e := New(newFakeAdapter(), cfg)

	result := e.Execute(context.Background(), "RESTART", "web")
	if result.Success {
		t.Fatal("Execute() should refuse a command not in allowed_actions")
	}
}

func TestExecuteStopVerifiesContainerStopped(t *testing.T) {
	fa := newFakeAdapter()
	fa.infoByName["web"] = &runtime.Info{Name: "web", State: "exited", Running: false}
	e := New(fa, testConfig())

	start := time.Now()
	result := e.executeStop(context.Background(), "web")
	if !result.Success {
		t.Fatalf("executeStop() failed: %+v", result)
	}
	if time.Since(start) < stopSettleDelay {
		t.Error("executeStop() should wait out the settle delay before verifying")
	}
}

func TestExecuteStopDetectsStillRunning(t *testing.T) {
	fa := newFakeAdapter()
	fa.infoByName["web"] = &runtime.Info{Name: "web", State: "running", Running: true}
	e := New(fa, testConfig())

	result := e.executeStop(context.Background(), "web")
	if result.Success {
		t.Fatal("executeStop() should fail verification when container is still running")
	}
}

func TestExecuteRestartSucceedsOnFirstHealthyAttempt(t *testing.T) {
	fa := newFakeAdapter()
	fa.infoByName["web"] = &runtime.Info{Name: "web", State: "running", Running: true}
	fa.statsByName["web"] = &runtime.Stats{CPUPercent: 5, MemPercent: 5}
	cfg := testConfig()
	cfg.Watchlist.Containers = []config.ContainerConfig{{Name: "web", Policy: config.PolicyConfig{MaxRetries: 2, RestartDelaySeconds: 0}}}
	e := New(fa, cfg)

	result := e.executeRestart(context.Background(), "web")
	if !result.Success || !result.IsRecovered {
		t.Fatalf("executeRestart() = %+v, want success+recovered", result)
	}
	if result.TotalAttempts != 1 {
		t.Errorf("TotalAttempts = %d, want 1", result.TotalAttempts)
	}
}

func TestExecuteRestartExhaustsRetriesAndStops(t *testing.T) {
	fa := newFakeAdapter()
	fa.infoByName["web"] = &runtime.Info{Name: "web", State: "running", Running: true}
	fa.statsByName["web"] = &runtime.Stats{CPUPercent: 99, MemPercent: 99} // always over threshold
	cfg := testConfig()
	cfg.Watchlist.Containers = []config.ContainerConfig{{Name: "web", Policy: config.PolicyConfig{MaxRetries: 2, RestartDelaySeconds: 0}}}
	e := New(fa, cfg)

	result := e.executeRestart(context.Background(), "web")
	if result.Success {
		t.Fatal("executeRestart() should fail after exhausting retries with persistently high CPU")
	}
	if result.FinalAction != "STOP" {
		t.Errorf("FinalAction = %q, want STOP", result.FinalAction)
	}
	if fa.stopCalls != 1 {
		t.Errorf("stop should be called exactly once after exhausting retries, got %d", fa.stopCalls)
	}
}

func TestExecuteCommitRespectsCooldown(t *testing.T) {
	fa := newFakeAdapter()
	fa.infoByName["web"] = &runtime.Info{Name: "web", State: "exited", Running: false}
	e := New(fa, testConfig())

	first := e.executeCommit(context.Background(), "web")
	if !first.Success {
		t.Fatalf("first commit should succeed: %+v", first)
	}

	second := e.executeCommit(context.Background(), "web")
	if second.Success {
		t.Fatal("second commit within cooldown should be denied")
	}
	if fa.commitCalls != 1 {
		t.Errorf("commit should only be called once due to cooldown, got %d calls", fa.commitCalls)
	}
}

func TestExecuteCommitAlwaysStopsEvenOnCommitFailure(t *testing.T) {
	fa := newFakeAdapter()
	fa.infoByName["web"] = &runtime.Info{Name: "web", State: "exited", Running: false}
	fa.commitErr = context.DeadlineExceeded
	e := New(fa, testConfig())

	result := e.executeCommit(context.Background(), "web")
	if result.Success {
		t.Fatal("executeCommit() should report failure when the commit call errors")
	}
	if fa.stopCalls != 1 {
		t.Errorf("stop should still run after a failed commit, got %d calls", fa.stopCalls)
	}
}
