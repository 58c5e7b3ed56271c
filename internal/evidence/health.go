package evidence

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kaelsworks/sentinel/internal/config"
)

// CheckHealth dispatches on the container's configured health_check type.
// A container with no health check configured (type == "" or the config
// entry is absent) is reported healthy — mirroring the original's
// `else: {"healthy": True, ...}` default branch, since "not watched for
// health" must never read as "unhealthy".
func (c *Collector) CheckHealth(ctx context.Context, name string, cc *config.ContainerConfig) HealthResult {
	if cc == nil || cc.HealthCheck.Type == "" {
		return HealthResult{Healthy: true, Message: "no health check configured"}
	}

	timeout := time.Duration(cc.HealthCheck.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	switch strings.ToLower(cc.HealthCheck.Type) {
	case "http":
		return c.checkHTTPHealth(ctx, cc.HealthCheck.Endpoint, cc.HealthCheck.ExpectedStatus, timeout)
	case "tcp":
		return c.checkTCPHealth(ctx, cc.HealthCheck.Host, cc.HealthCheck.Port, timeout)
	case "command":
		return c.checkCommandHealth(ctx, name, cc.HealthCheck.Command, cc.HealthCheck.ExpectedOutput, timeout)
	default:
		return HealthResult{Healthy: true, Message: "no health check configured"}
	}
}

func (c *Collector) checkHTTPHealth(ctx context.Context, endpoint string, expectedStatus int, timeout time.Duration) HealthResult {
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return HealthResult{Healthy: false, Message: fmt.Sprintf("invalid health endpoint: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthResult{Healthy: false, Message: fmt.Sprintf("http health check failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return HealthResult{Healthy: false, Message: fmt.Sprintf("unexpected status %d, want %d", resp.StatusCode, expectedStatus)}
	}
	return HealthResult{Healthy: true, Message: "http health check passed"}
}

func (c *Collector) checkTCPHealth(ctx context.Context, host string, port int, timeout time.Duration) HealthResult {
	d := net.Dialer{Timeout: timeout}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return HealthResult{Healthy: false, Message: fmt.Sprintf("tcp health check failed: %v", err)}
	}
	_ = conn.Close()
	return HealthResult{Healthy: true, Message: "tcp health check passed"}
}

func (c *Collector) checkCommandHealth(ctx context.Context, name, command, expectedOutput string, timeout time.Duration) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return HealthResult{Healthy: false, Message: "command health check has no command configured"}
	}

	out, err := c.rt.Exec(ctx, name, fields)
	if err != nil {
		return HealthResult{Healthy: false, Message: fmt.Sprintf("command health check failed: %v", err)}
	}
	if expectedOutput != "" && !strings.Contains(out, expectedOutput) {
		return HealthResult{Healthy: false, Message: fmt.Sprintf("output did not contain %q", expectedOutput)}
	}
	return HealthResult{Healthy: true, Message: "command health check passed"}
}
