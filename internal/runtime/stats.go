package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
)

// Stats fetches a one-shot stats snapshot and reduces it to the fields the
// monitor and diagnosis graph consume, the same reduction the teacher's
// containerStats/calcMemUsage/calcNetIO/calcBlockIO perform.
func (d *dockerAdapter) Stats(ctx context.Context, name string) (*Stats, error) {
	ctx, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	resp, err := d.cli.ContainerStatsOneShot(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("stats %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stats body %s: %w", name, err)
	}

	var raw container.StatsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode stats %s: %w", name, err)
	}

	cpuPct := calcCPUPercent(
		raw.CPUStats.CPUUsage.TotalUsage, raw.PreCPUStats.CPUUsage.TotalUsage,
		raw.CPUStats.SystemUsage, raw.PreCPUStats.SystemUsage,
		onlineCPUCount(raw),
	)
	memUsage, memLimit, memPct := calcMemUsage(raw)
	rx, tx := calcNetIO(raw)
	read, write := calcBlockIO(raw)

	return &Stats{
		CPUPercent: cpuPct,
		MemUsageMB: memUsage / 1024 / 1024,
		MemLimitMB: memLimit / 1024 / 1024,
		MemPercent: memPct,
		NetRxBytes: rx,
		NetTxBytes: tx,
		BlockRead:  read,
		BlockWrite: write,
	}, nil
}

func onlineCPUCount(s container.StatsResponse) int {
	if s.CPUStats.OnlineCPUs > 0 {
		return int(s.CPUStats.OnlineCPUs)
	}
	return len(s.CPUStats.CPUUsage.PercpuUsage)
}

// calcMemUsage subtracts the inactive-file cache from Usage the way the
// teacher does, supporting both cgroup v1 ("inactive_file") and cgroup v2
// ("total_inactive_file") stat keys.
func calcMemUsage(s container.StatsResponse) (usage, limit, percent float64) {
	usage = float64(s.MemoryStats.Usage)
	if v, ok := s.MemoryStats.Stats["total_inactive_file"]; ok {
		usage -= float64(v)
	} else if v, ok := s.MemoryStats.Stats["inactive_file"]; ok {
		usage -= float64(v)
	}
	if usage < 0 {
		usage = 0
	}
	limit = float64(s.MemoryStats.Limit)
	if limit > 0 {
		percent = usage / limit * 100.0
	}
	return usage, limit, percent
}

func calcNetIO(s container.StatsResponse) (rx, tx uint64) {
	for _, n := range s.Networks {
		rx += n.RxBytes
		tx += n.TxBytes
	}
	return rx, tx
}

func calcBlockIO(s container.StatsResponse) (read, write uint64) {
	for _, e := range s.BlkioStats.IoServiceBytesRecursive {
		switch e.Op {
		case "read", "Read":
			read += e.Value
		case "write", "Write":
			write += e.Value
		}
	}
	return read, write
}
