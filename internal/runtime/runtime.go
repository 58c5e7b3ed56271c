// Package runtime adapts the Docker Engine API into the narrow surface the
// sentinel needs: inspect, stats, logs, top, exec, restart, stop, commit and
// a reconnecting event stream. It is the Go-native replacement for the
// original implementation's subprocess `docker ...` calls — same facts,
// fetched through the SDK the way a long-lived daemon should.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"
)

// Info is the subset of `docker inspect` state this daemon acts on.
type Info struct {
	ID            string
	Name          string
	Image         string
	State         string // running, exited, restarting, paused, created, dead
	Running       bool
	RestartPolicy string
	RestartCount  int
	StartedAt     time.Time
	MemoryLimit   int64 // bytes, 0 = unlimited
	NanoCPUs      int64
	Health        string // "", "starting", "healthy", "unhealthy"
}

// Stats is the subset of `docker stats` this daemon acts on.
type Stats struct {
	CPUPercent float64
	MemUsageMB float64
	MemLimitMB float64
	MemPercent float64
	NetRxBytes uint64
	NetTxBytes uint64
	BlockRead  uint64
	BlockWrite uint64
}

// Event is a normalized container lifecycle event, mirroring the teacher's
// actionStateMap translation of raw Docker events into states the monitor
// cares about.
type Event struct {
	Type          string // "die", "oom", "start", "stop", "restart", "other"
	ContainerID   string
	ContainerName string
	Action        string
	ExitCode      string
	Time          time.Time
}

// Adapter is the narrow Docker surface the rest of the sentinel depends on.
// Production code gets one from New(); tests substitute a fake.
type Adapter interface {
	Inspect(ctx context.Context, name string) (*Info, error)
	Stats(ctx context.Context, name string) (*Stats, error)
	Logs(ctx context.Context, name string, tailLines int) (string, error)
	Top(ctx context.Context, name string) ([]string, error)
	Exec(ctx context.Context, name string, cmd []string) (string, error)
	Restart(ctx context.Context, name string, timeoutSeconds int) error
	Stop(ctx context.Context, name string, timeoutSeconds int) error
	Commit(ctx context.Context, name, imageTag string) error
	Events(ctx context.Context) (<-chan Event, <-chan error)
	Close() error
}

type dockerAdapter struct {
	cli *client.Client
}

// New builds a production Adapter from the local Docker socket, negotiating
// the API version the way the teacher's NewDockerCollector does.
func New(socket string) (Adapter, error) {
	if socket == "" {
		socket = "/var/run/docker.sock"
	}
	cli, err := client.NewClientWithOpts(
		client.WithHost("unix://"+socket),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &dockerAdapter{cli: cli}, nil
}

func (d *dockerAdapter) Close() error {
	return d.cli.Close()
}

// Timeouts per operation class, matching SPEC_FULL.md §4.1: reads are
// cheap and bounded tightly, actions get more room, COMMIT the most since
// it flushes a full container filesystem layer.
const (
	readTimeout   = 10 * time.Second
	actionTimeout = 60 * time.Second
	commitTimeout = 120 * time.Second
)

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
