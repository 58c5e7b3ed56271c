package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
)

// Exec runs cmd inside the container and returns combined stdout+stderr,
// used by health checks of type "command" and by the executor's forensic
// dump commands. A non-zero exit code is returned as an error alongside
// the output.
func (d *dockerAdapter) Exec(ctx context.Context, name string, cmd []string) (string, error) {
	ctx, cancel := withTimeout(ctx, actionTimeout)
	defer cancel()

	execResp, err := d.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("exec create %s: %w", name, err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("exec attach %s: %w", name, err)
	}
	defer attach.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, attach.Reader); err != nil && err != io.EOF {
		return "", fmt.Errorf("exec read %s: %w", name, err)
	}
	out := stripDockerLogHeaders(buf.Bytes())

	inspect, err := d.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return out, fmt.Errorf("exec inspect %s: %w", name, err)
	}
	if inspect.ExitCode != 0 {
		return out, fmt.Errorf("exec %s: exit code %d", name, inspect.ExitCode)
	}
	return out, nil
}

// Restart issues a container restart with the given grace period.
func (d *dockerAdapter) Restart(ctx context.Context, name string, timeoutSeconds int) error {
	ctx, cancel := withTimeout(ctx, actionTimeout)
	defer cancel()

	t := timeoutSeconds
	if err := d.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &t}); err != nil {
		return fmt.Errorf("restart %s: %w", name, err)
	}
	return nil
}

// Stop issues a graceful stop with the given grace period.
func (d *dockerAdapter) Stop(ctx context.Context, name string, timeoutSeconds int) error {
	ctx, cancel := withTimeout(ctx, actionTimeout)
	defer cancel()

	t := timeoutSeconds
	if err := d.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &t}); err != nil {
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

// Commit snapshots the container's current filesystem into a new image
// tagged imageTag, used by the executor's forensic COMMIT action.
func (d *dockerAdapter) Commit(ctx context.Context, name, imageTag string) error {
	ctx, cancel := withTimeout(ctx, commitTimeout)
	defer cancel()

	_, err := d.cli.ContainerCommit(ctx, name, container.CommitOptions{Reference: imageTag})
	if err != nil {
		return fmt.Errorf("commit %s -> %s: %w", name, imageTag, err)
	}
	return nil
}
