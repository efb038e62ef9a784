package metrics

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Alert names.
const (
	AlertFallbackRate    = "graph_fallback_rate_high"
	AlertZeroExpansions  = "graph_zero_expansion_rate_high"
	AlertIngestionStalls = "no_new_candidates_24h"
)

// Alert is one fired operational alert.
type Alert struct {
	Name    string
	Message string
	FiredAt time.Time
}

// Notifier delivers fired alerts. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(alert Alert)
}

// ZapNotifier logs alerts at error level.
type ZapNotifier struct {
	Logger *zap.Logger
}

func (n *ZapNotifier) Notify(alert Alert) {
	n.Logger.Error("alert fired",
		zap.String("alert", alert.Name),
		zap.String("message", alert.Message),
		zap.Time("fired_at", alert.FiredAt))
}

// NoopNotifier drops alerts.
type NoopNotifier struct{}

func (NoopNotifier) Notify(Alert) {}

// AlertConfig holds evaluator thresholds.
type AlertConfig struct {
	// FallbackRateThreshold fires when the windowed graph fallback rate
	// exceeds it. Rates below MinSamples observations never fire.
	FallbackRateThreshold float64
	ZeroRateThreshold     float64
	MinSamples            int
	// IngestionStallAfter fires when no candidate completed broadcast for
	// this long.
	IngestionStallAfter time.Duration
	// Cooldown suppresses refiring of the same alert.
	Cooldown time.Duration
}

func (c *AlertConfig) ApplyDefaults() {
	if c.FallbackRateThreshold == 0 {
		c.FallbackRateThreshold = 0.20
	}
	if c.ZeroRateThreshold == 0 {
		c.ZeroRateThreshold = 0.50
	}
	if c.MinSamples == 0 {
		c.MinSamples = 20
	}
	if c.IngestionStallAfter == 0 {
		c.IngestionStallAfter = 24 * time.Hour
	}
	if c.Cooldown == 0 {
		c.Cooldown = 30 * time.Minute
	}
}

// Evaluator checks collector state against thresholds. Fired alerts are
// deduplicated per name within the cooldown.
type Evaluator struct {
	collector *Collector
	notifier  Notifier
	cfg       AlertConfig

	mu        sync.Mutex
	lastFired map[string]time.Time

	now func() time.Time
}

func NewEvaluator(collector *Collector, notifier Notifier, cfg AlertConfig) *Evaluator {
	cfg.ApplyDefaults()
	return &Evaluator{
		collector: collector,
		notifier:  notifier,
		cfg:       cfg,
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Evaluate runs all checks once and returns the alerts fired this pass.
func (e *Evaluator) Evaluate() []Alert {
	var fired []Alert
	fallbackRate, zeroRate, samples := e.collector.ExpansionRates()

	if samples >= e.cfg.MinSamples && fallbackRate > e.cfg.FallbackRateThreshold {
		fired = e.fire(fired, AlertFallbackRate,
			fmt.Sprintf("graph fallback rate %.0f%% over %d expansions (threshold %.0f%%)",
				fallbackRate*100, samples, e.cfg.FallbackRateThreshold*100))
	}
	if samples >= e.cfg.MinSamples && zeroRate > e.cfg.ZeroRateThreshold {
		fired = e.fire(fired, AlertZeroExpansions,
			fmt.Sprintf("graph zero-expansion rate %.0f%% over %d expansions (threshold %.0f%%)",
				zeroRate*100, samples, e.cfg.ZeroRateThreshold*100))
	}

	last := e.collector.LastCandidateIndexedAt()
	if last.IsZero() {
		last = e.collector.StartedAt()
	}
	if since := e.now().Sub(last); since > e.cfg.IngestionStallAfter {
		fired = e.fire(fired, AlertIngestionStalls,
			fmt.Sprintf("no candidate completed ingestion for %s", since.Round(time.Minute)))
	}
	return fired
}

// Run evaluates on every tick until ctx is done. Callers run it in a
// goroutine.
func (e *Evaluator) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Evaluate()
		}
	}
}

func (e *Evaluator) fire(fired []Alert, name, message string) []Alert {
	now := e.now()
	e.mu.Lock()
	if last, ok := e.lastFired[name]; ok && now.Sub(last) < e.cfg.Cooldown {
		e.mu.Unlock()
		return fired
	}
	e.lastFired[name] = now
	e.mu.Unlock()

	alert := Alert{Name: name, Message: message, FiredAt: now}
	e.notifier.Notify(alert)
	return append(fired, alert)
}
