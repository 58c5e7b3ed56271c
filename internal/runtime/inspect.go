package runtime

import (
	"context"
	"fmt"
	"strings"
)

// Inspect returns the subset of container state the evidence collector and
// executor need, parsed from the Engine API's full inspect response.
func (d *dockerAdapter) Inspect(ctx context.Context, name string) (*Info, error) {
	ctx, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	raw, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", name, err)
	}

	info := &Info{
		ID:    truncateID(raw.ID),
		Name:  containerName(raw.Name),
		Image: raw.Config.Image,
	}

	if raw.State != nil {
		info.State = raw.State.Status
		info.Running = raw.State.Running
		info.RestartCount = raw.RestartCount
		if raw.State.Health != nil {
			info.Health = raw.State.Health.Status
		}
		if t, err := parseDockerTime(raw.State.StartedAt); err == nil {
			info.StartedAt = t
		}
	}

	if raw.HostConfig != nil {
		info.RestartPolicy = "no"
		if raw.HostConfig.RestartPolicy.Name != "" {
			info.RestartPolicy = string(raw.HostConfig.RestartPolicy.Name)
		}
		info.MemoryLimit = raw.HostConfig.Memory
		info.NanoCPUs = raw.HostConfig.NanoCPUs
	}

	return info, nil
}

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func containerName(name string) string {
	return strings.TrimPrefix(name, "/")
}
