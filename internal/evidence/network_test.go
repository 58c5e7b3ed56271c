package evidence

import "testing"

func TestParseConnections(t *testing.T) {
	output := `Active Internet connections (w/o servers)
Proto Recv-Q Send-Q Local Address           Foreign Address         State
tcp        0      0 10.0.0.5:443            203.0.113.9:51234       ESTABLISHED
tcp        0      0 10.0.0.5:8080           198.51.100.2:443        ESTABLISHED
tcp        0      0 127.0.0.1:9999          127.0.0.1:54321         ESTABLISHED
udp        0      0 10.0.0.5:53             ::1:54321               ESTABLISHED
tcp        0      0 10.0.0.5:443            203.0.113.9:61234       TIME_WAIT
`
	conns := parseConnections(output)
	if conns["203.0.113.9"] != 1 {
		t.Errorf("expected 1 established conn from 203.0.113.9, got %d", conns["203.0.113.9"])
	}
	if conns["198.51.100.2"] != 1 {
		t.Errorf("expected 1 established conn from 198.51.100.2, got %d", conns["198.51.100.2"])
	}
	if _, ok := conns["127.0.0.1"]; ok {
		t.Error("loopback connections must be excluded")
	}
	if _, ok := conns["::1"]; ok {
		t.Error("IPv6 loopback connections must be excluded")
	}
	if len(conns) != 2 {
		t.Errorf("expected exactly 2 distinct remote IPs, got %d: %v", len(conns), conns)
	}
}

func TestParseConnectionsEmpty(t *testing.T) {
	if got := parseConnections(""); got != nil {
		t.Errorf("parseConnections(\"\") = %v, want nil", got)
	}
}
