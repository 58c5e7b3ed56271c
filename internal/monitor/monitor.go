package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/diagnosis"
	"github.com/kaelsworks/sentinel/internal/evidence"
	"github.com/kaelsworks/sentinel/internal/executor"
	"github.com/kaelsworks/sentinel/internal/journal"
	"github.com/kaelsworks/sentinel/internal/metrics"
	"github.com/kaelsworks/sentinel/internal/notify"
	"github.com/kaelsworks/sentinel/internal/queue"
	"github.com/kaelsworks/sentinel/internal/runtime"
)

// Fault type tags, matching the original's fault_type strings.
const (
	FaultProcessCrash     = "PROCESS_CRASH"
	FaultOOMKilled        = "OOM_KILLED"
	FaultHealthFail       = "HEALTH_FAIL"
	FaultCPUHigh          = "CPU_HIGH"
	FaultMemoryHigh       = "MEMORY_HIGH"
	FaultMemoryLeak       = "MEMORY_LEAK_SUSPECTED"
	FaultSecurityLog      = "SECURITY_LOG_ALERT"
	FaultMaliciousProcess = "MALICIOUS_PROCESS"
	FaultUnknown          = "UNKNOWN"
)

// Monitor owns the two long-lived loops (poll, docker events) and the
// per-container dedup/breaker and trend state that gate whether a
// detected fault actually gets diagnosed and acted on.
type Monitor struct {
	cfg      *config.Config
	rt       runtime.Adapter
	evidence *evidence.Collector
	graph    *diagnosis.Graph
	executor *executor.Executor
	notifier *notify.Notifier
	tasks    *queue.Queue
	journal  *journal.Journal

	reportState *ReportState
	trend       *TrendAnalyzer

	restartCounts24h map[string][]time.Time
	mu               sync.Mutex

	wg sync.WaitGroup
}

func New(
	cfg *config.Config,
	rt runtime.Adapter,
	ev *evidence.Collector,
	graph *diagnosis.Graph,
	exec *executor.Executor,
	notifier *notify.Notifier,
	tasks *queue.Queue,
	j *journal.Journal,
) *Monitor {
	return &Monitor{
		cfg:              cfg,
		rt:               rt,
		evidence:         ev,
		graph:            graph,
		executor:         exec,
		notifier:         notifier,
		tasks:            tasks,
		journal:          j,
		reportState:      NewReportState(cfg.CircuitBreaker.MaxRestartAttempts, cfg.CircuitBreaker.WindowSeconds, cfg.CircuitBreaker.CooldownSeconds),
		trend:            NewTrendAnalyzer(),
		restartCounts24h: make(map[string][]time.Time),
	}
}

// Run starts the poll loop and the Docker event loop and blocks until ctx
// is cancelled, then waits for both to exit cleanly.
func (m *Monitor) Run(ctx context.Context) {
	m.wg.Add(2)
	go m.pollLoop(ctx)
	go m.eventLoop(ctx)
	m.wg.Wait()
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	checkTicker := time.NewTicker(m.cfg.CheckInterval())
	defer checkTicker.Stop()

	resourceEvery := m.cfg.System.ResourceCheckIntervalSeconds / m.cfg.System.CheckIntervalSeconds
	if resourceEvery < 1 {
		resourceEvery = 1
	}
	tick := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-checkTicker.C:
			tick++
			m.checkAllContainersAlive(ctx)
			if tick%resourceEvery == 0 {
				m.checkAllContainersResources(ctx)
			}
		}
	}
}

func (m *Monitor) eventLoop(ctx context.Context) {
	defer m.wg.Done()

	events, errs := m.rt.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				continue
			}
			log.Error().Err(err).Msg("docker event stream error")
		case evt, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(ctx, evt)
		}
	}
}

func (m *Monitor) handleEvent(ctx context.Context, evt runtime.Event) {
	names := m.cfg.EnabledContainerNames()
	if !names[evt.ContainerName] {
		return
	}

	var faultType string
	switch {
	case evt.Type == "oom":
		faultType = FaultOOMKilled
	case evt.Type == "die" && evt.ExitCode == "137":
		faultType = FaultOOMKilled
	case evt.Type == "die":
		faultType = FaultProcessCrash
	default:
		return
	}

	m.report(ctx, evt.ContainerName, faultType)
}

func (m *Monitor) checkAllContainersAlive(ctx context.Context) {
	for name := range m.cfg.EnabledContainerNames() {
		info, err := m.rt.Inspect(ctx, name)
		if err != nil || !info.Running {
			m.report(ctx, name, FaultProcessCrash)
			continue
		}
		cc := m.cfg.Container(name)
		health := m.evidence.CheckHealth(ctx, name, cc)
		if !health.Healthy {
			m.report(ctx, name, FaultHealthFail)
		}
	}
}

func (m *Monitor) checkAllContainersResources(ctx context.Context) {
	for name := range m.cfg.EnabledContainerNames() {
		cc := m.cfg.Container(name)
		info, err := m.rt.Inspect(ctx, name)
		if err != nil || !info.Running {
			continue
		}
		stats, err := m.rt.Stats(ctx, name)
		if err != nil {
			continue
		}

		metrics.ContainerCPUPercent.WithLabelValues(name).Set(stats.CPUPercent)
		metrics.ContainerMemoryPercent.WithLabelValues(name).Set(stats.MemPercent)

		cpuCrit := m.cfg.ContainerCPUCritical(cc)
		memCrit := m.cfg.ContainerMemoryCritical(cc)

		if stats.CPUPercent >= cpuCrit {
			m.report(ctx, name, FaultCPUHigh)
		}
		if stats.MemPercent >= memCrit {
			m.report(ctx, name, FaultMemoryHigh)
		}

		if m.trend.Observe(name, stats.MemUsageMB, stats.MemPercent) {
			m.report(ctx, name, FaultMemoryLeak)
		}

		m.checkSecurity(ctx, name)
	}
}

func (m *Monitor) checkSecurity(ctx context.Context, name string) {
	ev, err := m.evidence.Collect(ctx, name, FaultUnknown)
	if err != nil {
		return
	}
	if len(ev.SecurityIssues) > 0 {
		m.report(ctx, name, FaultSecurityLog)
	}
}

// report is the original's _report_issue: gate through ShouldReport,
// then hand off evidence collection + diagnosis + execution to the task
// queue so the poll/event loop never blocks on an LLM call or a restart
// retry cycle.
func (m *Monitor) report(ctx context.Context, container, faultType string) {
	allow, reason := m.reportState.ShouldReport(container)
	metrics.CircuitBreakerOpen.WithLabelValues(container).Set(boolToFloat(m.reportState.IsBreakerOpen(container)))
	if !allow {
		metrics.ReportsSuppressed.WithLabelValues(container, reason).Inc()
		return
	}

	metrics.EvidenceCollected.WithLabelValues(container, faultType).Inc()
	m.reportState.RecordReport(container)

	submitted := m.tasks.Submit(func(taskCtx context.Context) {
		m.diagnoseAndAct(taskCtx, container, faultType)
	})
	if !submitted {
		log.Warn().Str("container", container).Str("fault_type", faultType).Msg("task queue stopped, dropping report")
	}
	metrics.QueueDepth.Set(float64(m.tasks.Depth()))
}

// diagnoseAndAct is the worker side of route_by_command: it runs the
// graph once and then dispatches to exactly one of execute_action,
// send_alert, no_action or error_handler, matching their notification
// contract — no_action sends nothing, execute_action only sends
// action_result (plus recovery on a verified RESTART), send_alert only
// sends alert, and error_handler sends an alert of kind SYSTEM_ERROR.
// RESTART/STOP/COMMIT always go to execute_action, even when the decision
// carries an error; error_handler takes any other decision with an error.
func (m *Monitor) diagnoseAndAct(ctx context.Context, container, faultType string) {
	ev, err := m.evidence.Collect(ctx, container, faultType)
	if err != nil {
		log.Error().Err(err).Str("container", container).Msg("evidence collection failed")
		return
	}

	dctx := diagnosis.Context{
		Evidence:        ev,
		RestartCount24h: m.restartCount24h(container),
		LLMConfigured:   m.cfg.LLM.APIKey != "",
	}
	decision := m.graph.Run(ctx, dctx)
	metrics.DecisionsTotal.WithLabelValues(container, string(decision.Command)).Inc()

	var result executor.Result
	switch {
	case decision.Command == diagnosis.CommandRestart || decision.Command == diagnosis.CommandStop || decision.Command == diagnosis.CommandCommit:
		result = m.executeAction(ctx, container, decision)
	case decision.Err != nil:
		m.errorHandler(container, decision)
	case decision.Command == diagnosis.CommandAlertOnly:
		m.sendAlert(container, decision)
	case decision.Command == diagnosis.CommandNone:
		// no_action: a true no-op sends no notification at all.
	default:
		m.sendAlert(container, decision)
	}

	if m.journal != nil {
		_ = m.journal.Append(journalEntry(container, faultType, decision, result))
	}
}

// executeAction is the execute_action node: invoke the Executor and send
// exactly one action_result notification with the full result embedded,
// regardless of success/failure. Every RESTART is counted toward the
// container's 24h restart count; a verified one additionally emits a
// recovery notification and resets the container's trend window.
func (m *Monitor) executeAction(ctx context.Context, container string, decision diagnosis.Decision) executor.Result {
	result := m.executor.Execute(ctx, string(decision.Command), container)
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.ActionsTotal.WithLabelValues(string(decision.Command), outcome).Inc()

	if decision.Command == diagnosis.CommandRestart {
		m.recordRestart(container)
		if result.IsRecovered {
			m.trend.Reset(container)
		}
	}

	m.notifier.Send(notify.Render("action_result", map[string]any{
		"container": container,
		"command":   string(decision.Command),
		"success":   result.Success,
		"reason":    result.Reason,
		"message":   result.Message,
	}))

	if result.Success && result.IsRecovered {
		m.notifier.Send(notify.Render("recovery", map[string]any{
			"container":      container,
			"total_attempts": result.TotalAttempts,
			"message":        result.Message,
		}))
	}
	return result
}

// sendAlert is the send_alert node: an ALERT_ONLY (or otherwise
// unroutable) decision produces exactly one alert notification carrying
// CPU/memory/reason, no executor call.
func (m *Monitor) sendAlert(container string, decision diagnosis.Decision) {
	m.notifier.Send(notify.Render("alert", map[string]any{
		"container":      container,
		"fault_type":     decision.FaultType,
		"reason":         decision.Reason,
		"current_cpu":    decision.Params.CurrentCPU,
		"current_memory": decision.Params.CurrentMemory,
	}))
}

// errorHandler is the error_handler node: always fires a SYSTEM_ERROR
// alert, tolerant of the notifier itself failing (Send never blocks or
// returns an error the caller must handle).
func (m *Monitor) errorHandler(container string, decision diagnosis.Decision) {
	m.notifier.Send(notify.Render("alert", map[string]any{
		"container":      container,
		"fault_type":     "SYSTEM_ERROR",
		"reason":         decision.Reason,
		"detail":         decision.Err.Error(),
		"current_cpu":    decision.Params.CurrentCPU,
		"current_memory": decision.Params.CurrentMemory,
	}))
}

func (m *Monitor) recordRestart(container string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	history := append(m.restartCounts24h[container], now)
	m.restartCounts24h[container] = pruneOlderThan(history, now, 24*time.Hour)
}

func (m *Monitor) restartCount24h(container string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.restartCounts24h[container] = pruneOlderThan(m.restartCounts24h[container], now, 24*time.Hour)
	return len(m.restartCounts24h[container])
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
