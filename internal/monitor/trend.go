package monitor

import (
	"sync"
	"time"
)

const trendWindowCapacity = 10

type trendSample struct {
	at    time.Time
	memMB float64
}

// TrendAnalyzer keeps a rolling window of memory readings per container
// and flags a sustained upward slope as a suspected leak, the same
// heuristic as the original's _check_trend.
type TrendAnalyzer struct {
	mu      sync.Mutex
	samples map[string][]trendSample
	now     func() time.Time
}

func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{
		samples: make(map[string][]trendSample),
		now:     time.Now,
	}
}

// Observe records a memory sample and reports whether the trend now
// indicates a suspected leak: at least 3 samples spanning at least one
// minute, with a slope over 10 MB/min while memory use exceeds 50%.
func (t *TrendAnalyzer) Observe(container string, memMB, memPercent float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	window := append(t.samples[container], trendSample{at: now, memMB: memMB})
	if len(window) > trendWindowCapacity {
		window = window[len(window)-trendWindowCapacity:]
	}
	t.samples[container] = window

	if len(window) < 3 {
		return false
	}

	first := window[0]
	last := window[len(window)-1]
	minutes := last.at.Sub(first.at).Minutes()
	if minutes < 1.0 {
		return false
	}

	slope := (last.memMB - first.memMB) / minutes
	return slope > 10.0 && memPercent > 50.0
}

// Reset clears the rolling window for a container, called after a
// restart since the old trend no longer applies to the new process.
func (t *TrendAnalyzer) Reset(container string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.samples, container)
}
