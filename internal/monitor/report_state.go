// Package monitor runs the poll and event-stream loops that detect
// container faults, collects evidence, routes it through the diagnosis
// graph and executor, and gates repeated reports through a per-container
// dedup + circuit-breaker state machine — ported directly from the
// original's _should_report/_record_report, which has no off-the-shelf
// library equivalent (it gates *reporting*, not request execution, on a
// sliding window the way a typical circuit breaker library models).
package monitor

import (
	"sync"
	"time"
)

// ReportState tracks, per container, whether a newly detected fault
// should actually be reported (evidence collected + diagnosed) right now,
// or suppressed because it's a duplicate or the container is
// circuit-broken.
type ReportState struct {
	mu sync.Mutex

	maxRestartAttempts int
	windowSeconds       int
	cooldownSeconds     int

	lastReportTime    map[string]time.Time
	reportHistory     map[string][]time.Time
	circuitBreakerUntil map[string]time.Time

	now func() time.Time
}

func NewReportState(maxRestartAttempts, windowSeconds, cooldownSeconds int) *ReportState {
	return &ReportState{
		maxRestartAttempts: maxRestartAttempts,
		windowSeconds:      windowSeconds,
		cooldownSeconds:    cooldownSeconds,
		lastReportTime:     make(map[string]time.Time),
		reportHistory:      make(map[string][]time.Time),
		circuitBreakerUntil: make(map[string]time.Time),
		now:                time.Now,
	}
}

// ShouldReport implements the original's exact five-step algorithm:
//  1. if the circuit breaker is open, deny (and reset history once it has
//     expired);
//  2. if a report fired within cooldownSeconds, deny (dedup);
//  3. prune report history to the sliding window;
//  4. if the pruned history has reached maxRestartAttempts, trip the
//     breaker for cooldownSeconds and deny;
//  5. otherwise allow.
//
// cooldownSeconds is deliberately the same knob for both the dedup
// quiet-period and the post-breaker cooldown — not a design accident, see
// DESIGN.md's Open Question 2.
func (s *ReportState) ShouldReport(container string) (allow bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if until, ok := s.circuitBreakerUntil[container]; ok {
		if now.Before(until) {
			return false, "circuit breaker open"
		}
		delete(s.circuitBreakerUntil, container)
		s.reportHistory[container] = nil
	}

	if last, ok := s.lastReportTime[container]; ok {
		if now.Sub(last) < time.Duration(s.cooldownSeconds)*time.Second {
			return false, "duplicate report within cooldown"
		}
	}

	window := time.Duration(s.windowSeconds) * time.Second
	history := pruneOlderThan(s.reportHistory[container], now, window)
	s.reportHistory[container] = history

	if len(history) >= s.maxRestartAttempts {
		s.circuitBreakerUntil[container] = now.Add(time.Duration(s.cooldownSeconds) * time.Second)
		return false, "circuit breaker tripped"
	}

	return true, ""
}

// RecordReport marks container as just having been reported, for the next
// ShouldReport call's dedup and window checks.
func (s *ReportState) RecordReport(container string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.lastReportTime[container] = now
	s.reportHistory[container] = append(s.reportHistory[container], now)
}

// IsBreakerOpen reports whether container is currently circuit-broken,
// for metrics.
func (s *ReportState) IsBreakerOpen(container string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.circuitBreakerUntil[container]
	return ok && s.now().Before(until)
}

func pruneOlderThan(times []time.Time, now time.Time, window time.Duration) []time.Time {
	var kept []time.Time
	for _, t := range times {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	return kept
}
