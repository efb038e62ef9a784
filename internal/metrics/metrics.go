// Package metrics collects search and ingestion counters and evaluates
// operational alerts over them.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Counter names used across the service.
const (
	CounterSearches         = "searches_total"
	CounterCacheHitExact    = "cache_hit_exact_total"
	CounterCacheHitSemantic = "cache_hit_semantic_total"
	CounterGraphRuns        = "graph_runs_total"
	CounterGraphCacheHits   = "graph_cache_hits_total"
	CounterGraphFallbacks   = "graph_fallbacks_total"
	CounterZeroExpansions   = "graph_zero_expansions_total"
	CounterIngestions       = "ingestions_total"
	CounterIngestFailures   = "ingest_failures_total"
	CounterDeadLetters      = "dead_letters_total"
	CounterCandidatesAdded  = "candidates_indexed_total"
)

type expansionSample struct {
	at            time.Time
	fallback      bool
	zeroExpansion bool
}

// Collector accumulates counters plus a sliding window of graph expansion
// outcomes for rate-based alerting.
type Collector struct {
	mu       sync.Mutex
	counters map[string]int64
	samples  []expansionSample
	window   time.Duration

	lastCandidateAt time.Time
	startedAt       time.Time

	now func() time.Time
}

// NewCollector creates a collector keeping expansion samples for window
// (default 15 minutes).
func NewCollector(window time.Duration) *Collector {
	if window == 0 {
		window = 15 * time.Minute
	}
	c := &Collector{
		counters: make(map[string]int64),
		window:   window,
		now:      time.Now,
	}
	c.startedAt = c.now()
	return c
}

// WithClock overrides the time source, for tests.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.mu.Lock()
	c.now = now
	c.startedAt = now()
	c.mu.Unlock()
	return c
}

// Inc adds one to a named counter.
func (c *Collector) Inc(name string) {
	c.Add(name, 1)
}

// Add adds delta to a named counter.
func (c *Collector) Add(name string, delta int64) {
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()
}

// Get returns a counter's current value.
func (c *Collector) Get(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// RecordExpansion records one graph expansion outcome in the rate window.
func (c *Collector) RecordExpansion(fallback, zeroExpansion bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[CounterGraphRuns]++
	if fallback {
		c.counters[CounterGraphFallbacks]++
	}
	if zeroExpansion {
		c.counters[CounterZeroExpansions]++
	}
	now := c.now()
	c.samples = append(c.samples, expansionSample{at: now, fallback: fallback, zeroExpansion: zeroExpansion})
	c.prune(now)
}

// RecordCandidateIndexed marks a successful candidate broadcast.
func (c *Collector) RecordCandidateIndexed() {
	c.mu.Lock()
	c.counters[CounterCandidatesAdded]++
	c.lastCandidateAt = c.now()
	c.mu.Unlock()
}

func (c *Collector) prune(now time.Time) {
	cutoff := now.Add(-c.window)
	drop := 0
	for drop < len(c.samples) && c.samples[drop].at.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		c.samples = append(c.samples[:0], c.samples[drop:]...)
	}
}

// ExpansionRates returns fallback and zero-expansion rates over the window,
// plus the sample count the rates are based on.
func (c *Collector) ExpansionRates() (fallbackRate, zeroRate float64, samples int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	samples = len(c.samples)
	if samples == 0 {
		return 0, 0, 0
	}
	var fallbacks, zeros int
	for _, s := range c.samples {
		if s.fallback {
			fallbacks++
		}
		if s.zeroExpansion {
			zeros++
		}
	}
	return float64(fallbacks) / float64(samples), float64(zeros) / float64(samples), samples
}

// LastCandidateIndexedAt returns when a candidate last completed broadcast.
// The zero time means none since startup.
func (c *Collector) LastCandidateIndexedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCandidateAt
}

// StartedAt returns when the collector was created.
func (c *Collector) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}

// Snapshot returns all counters sorted by name, for the status endpoint.
func (c *Collector) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}

// CounterNames returns the sorted counter names present in the snapshot.
func CounterNames(snapshot map[string]int64) []string {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
