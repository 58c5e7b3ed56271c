package runtime

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
)

const maxLogChars = 2000

// Logs fetches the tail of a container's combined stdout/stderr stream,
// truncated the same way the evidence collector's original did.
func (d *dockerAdapter) Logs(ctx context.Context, name string, tailLines int) (string, error) {
	ctx, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	if tailLines <= 0 {
		tailLines = 50
	}
	rc, err := d.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tailLines),
	})
	if err != nil {
		return "", fmt.Errorf("logs %s: %w", name, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read logs %s: %w", name, err)
	}

	text := stripDockerLogHeaders(body)
	if len(text) > maxLogChars {
		text = text[len(text)-maxLogChars:]
	}
	return text, nil
}

// stripDockerLogHeaders strips the 8-byte multiplexed stream header Docker
// prepends to each frame when a container was created without a TTY.
func stripDockerLogHeaders(body []byte) string {
	var sb strings.Builder
	for len(body) > 0 {
		if len(body) < 8 {
			sb.Write(body)
			break
		}
		frameLen := int(body[4])<<24 | int(body[5])<<16 | int(body[6])<<8 | int(body[7])
		body = body[8:]
		if frameLen > len(body) {
			frameLen = len(body)
		}
		sb.Write(body[:frameLen])
		body = body[frameLen:]
	}
	return sb.String()
}

// Top returns the running process list, analogous to `docker top`.
func (d *dockerAdapter) Top(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, readTimeout)
	defer cancel()

	top, err := d.cli.ContainerTop(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", name, err)
	}

	lines := make([]string, 0, len(top.Processes))
	for _, proc := range top.Processes {
		lines = append(lines, strings.Join(proc, " "))
	}
	return lines, nil
}
