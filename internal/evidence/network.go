package evidence

import (
	"context"
	"strings"
)

// collectConnections counts established TCP/UDP connections by remote IP,
// excluding loopback and IPv6-any addresses, the same filtering the
// original's get_network_connections applies to `netstat -ntu` output.
// netstat is attempted first, falling back to `ss` per SPEC_FULL.md's
// original_source supplement for minimal images that lack net-tools.
func (c *Collector) collectConnections(ctx context.Context, name string) map[string]int {
	out, err := c.rt.Exec(ctx, name, []string{"netstat", "-ntu"})
	if err != nil || strings.TrimSpace(out) == "" {
		out, err = c.rt.Exec(ctx, name, []string{"ss", "-ntu"})
		if err != nil {
			return nil
		}
	}
	return parseConnections(out)
}

func parseConnections(output string) map[string]int {
	conns := make(map[string]int)
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Active Internet") || strings.Contains(line, "Proto") || strings.Contains(line, "State") {
			continue
		}
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !strings.HasPrefix(lower, "tcp") && !strings.HasPrefix(lower, "udp") {
			continue
		}
		parts := strings.Fields(trimmed)
		if len(parts) < 6 {
			continue
		}
		// netstat: Proto Recv-Q Send-Q Local Foreign State
		// ss:      Netid State Recv-Q Send-Q Local Peer
		var addr string
		switch {
		case strings.EqualFold(parts[5], "ESTABLISHED"):
			addr = parts[4]
		case strings.EqualFold(parts[1], "ESTAB"):
			addr = parts[5]
		default:
			continue
		}
		ip := addr
		if idx := strings.LastIndex(addr, ":"); idx > 0 {
			ip = addr[:idx]
		}
		if ip == "127.0.0.1" || strings.HasPrefix(ip, "::") {
			continue
		}
		conns[ip]++
	}
	if len(conns) == 0 {
		return nil
	}
	return conns
}
