package monitor

import (
	"testing"
	"time"
)

func TestShouldReportAllowsFirstReport(t *testing.T) {
	s := NewReportState(3, 300, 60)
	allow, reason := s.ShouldReport("web")
	if !allow {
		t.Fatalf("ShouldReport() = false, reason=%q, want true", reason)
	}
}

func TestShouldReportDedupsWithinCooldown(t *testing.T) {
	now := time.Now()
	s := NewReportState(3, 300, 60)
	s.now = func() time.Time { return now }

	s.RecordReport("web")
	s.now = func() time.Time { return now.Add(10 * time.Second) }

	allow, reason := s.ShouldReport("web")
	if allow {
		t.Fatal("ShouldReport() should deny within cooldown window")
	}
	if reason != "duplicate report within cooldown" {
		t.Errorf("reason = %q", reason)
	}
}

func TestShouldReportTripsBreakerAfterMaxAttempts(t *testing.T) {
	now := time.Now()
	s := NewReportState(3, 300, 60)
	s.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allow, _ := s.ShouldReport("web")
		if !allow {
			t.Fatalf("report %d should be allowed before breaker trips", i)
		}
		s.RecordReport("web")
		now = now.Add(65 * time.Second) // beyond cooldown, within window
		s.now = func() time.Time { return now }
	}

	allow, reason := s.ShouldReport("web")
	if allow {
		t.Fatal("ShouldReport() should deny once max_restart_attempts reached within window")
	}
	if reason != "circuit breaker tripped" {
		t.Errorf("reason = %q", reason)
	}
}

func TestShouldReportBreakerExpiresAndResetsHistory(t *testing.T) {
	now := time.Now()
	s := NewReportState(1, 300, 60)
	s.now = func() time.Time { return now }

	s.ShouldReport("web") // allow
	s.RecordReport("web")
	now = now.Add(65 * time.Second)
	s.now = func() time.Time { return now }

	allow, _ := s.ShouldReport("web")
	if allow {
		t.Fatal("breaker should have tripped with max_restart_attempts=1")
	}

	now = now.Add(61 * time.Second) // past the cooldown
	s.now = func() time.Time { return now }

	allow, reason := s.ShouldReport("web")
	if !allow {
		t.Fatalf("ShouldReport() after breaker cooldown expired = false, reason=%q", reason)
	}
}

func TestIsBreakerOpen(t *testing.T) {
	now := time.Now()
	s := NewReportState(1, 300, 60)
	s.now = func() time.Time { return now }

	s.ShouldReport("web")
	s.RecordReport("web")
	now = now.Add(65 * time.Second)
	s.now = func() time.Time { return now }
	s.ShouldReport("web") // trips breaker

	if !s.IsBreakerOpen("web") {
		t.Error("IsBreakerOpen() = false, want true")
	}
	if s.IsBreakerOpen("other") {
		t.Error("IsBreakerOpen() for untouched container should be false")
	}
}
