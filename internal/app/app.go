// Package app wires the sentinel's components together in the order the
// teacher's agent.New follows: config already loaded, then the runtime
// adapter, then storage/state (the journal), then the pieces that depend
// on them, finishing with the things that need everything else (the
// monitor loops, the HTTP control surface).
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/diagnosis"
	"github.com/kaelsworks/sentinel/internal/diagnosis/llm"
	"github.com/kaelsworks/sentinel/internal/evidence"
	"github.com/kaelsworks/sentinel/internal/executor"
	"github.com/kaelsworks/sentinel/internal/httpapi"
	"github.com/kaelsworks/sentinel/internal/journal"
	"github.com/kaelsworks/sentinel/internal/metrics"
	"github.com/kaelsworks/sentinel/internal/monitor"
	"github.com/kaelsworks/sentinel/internal/notify"
	"github.com/kaelsworks/sentinel/internal/queue"
	"github.com/kaelsworks/sentinel/internal/runtime"
	"github.com/kaelsworks/sentinel/internal/security"
)

// App owns every long-lived component and the ordered shutdown sequence
// for them, the same shape as the teacher's Agent.
type App struct {
	cfg *config.Config

	rt       runtime.Adapter
	journal  *journal.Journal
	notifier *notify.Notifier
	tasks    *queue.Queue
	monitor  *monitor.Monitor
	apiSrv   *http.Server
}

// New builds every component but does not start any goroutines yet.
func New(cfg *config.Config, dockerSocket string) (*App, error) {
	rt, err := runtime.New(dockerSocket)
	if err != nil {
		return nil, fmt.Errorf("app: runtime adapter: %w", err)
	}

	j, err := journal.New("data/history.jsonl")
	if err != nil {
		return nil, fmt.Errorf("app: journal: %w", err)
	}

	var channels []notify.Channel
	if cfg.Notification.Email.Enabled {
		channels = append(channels, notify.NewEmailChannel(cfg.Notification.Email))
	}
	if cfg.Notification.Slack.Enabled {
		channels = append(channels, notify.NewSlackChannel(cfg.Notification.Slack))
	}
	notifier := notify.New(channels...)

	rules := security.Load("config/security_rules.yml")
	ev := evidence.New(rt, rules, cfg)
	exec := executor.New(rt, cfg)

	var llmClient llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	} else {
		llmClient = noCredentialClient{}
	}
	graph := diagnosis.NewGraph(llmClient, llm.Options{Temperature: cfg.LLM.Temperature, MaxRetries: cfg.LLM.MaxRetries})

	tasks := queue.New(context.Background(), 1)
	mon := monitor.New(cfg, rt, ev, graph, exec, notifier, tasks, j)

	// The /metrics route serves the default registry, so the sentinel's
	// collectors are registered there.
	metrics.Register(prometheus.DefaultRegisterer.(*prometheus.Registry))
	apiServer := httpapi.New(cfg, exec, notifier)

	addr := fmt.Sprintf("%s:%d", cfg.Executor.Host, cfg.Executor.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: apiServer.Handler(),
	}

	return &App{
		cfg:      cfg,
		rt:       rt,
		journal:  j,
		notifier: notifier,
		tasks:    tasks,
		monitor:  mon,
		apiSrv:   httpSrv,
	}, nil
}

// Run starts the HTTP control server and the monitor loops, blocking
// until ctx is cancelled, then tears everything down in reverse order of
// startup.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.apiSrv.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.apiSrv.Addr, err)
	}

	go func() {
		if err := a.apiSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http control server stopped unexpectedly")
		}
	}()

	a.monitor.Run(ctx)

	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.apiSrv.Shutdown(shutdownCtx)

	a.tasks.Stop()
	a.notifier.Stop()
	if err := a.rt.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing docker client")
	}
}

// noCredentialClient is used when no LLM API key is configured; the
// rule precheck's missing-credential branch always intercepts before
// this would be called, but a non-nil Client keeps the graph's wiring
// simple.
type noCredentialClient struct{}

func (noCredentialClient) Chat(ctx context.Context, system, user string, opts llm.Options) (string, error) {
	return "", fmt.Errorf("no LLM credential configured")
}
