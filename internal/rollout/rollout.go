// Package rollout controls how graph search results reach users: fully off,
// shadow (computed and logged but never blended into what the user sees), or
// on for a deterministic slice of traffic.
package rollout

import (
	"hash/fnv"
	"strings"
	"sync"
)

// Mode is the graph search rollout mode.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeShadow Mode = "shadow"
	ModeOn     Mode = "on"
)

// ParseMode maps a config string to a Mode. Unknown values are off: a typo
// in config must never turn graph results on.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeShadow:
		return ModeShadow
	case ModeOn:
		return ModeOn
	default:
		return ModeOff
	}
}

// Decision is the rollout outcome for one request.
type Decision struct {
	Mode Mode
	// Sampled is true when graph results may be blended into the response.
	// Shadow mode ignores the dial: the expansion runs on all traffic so
	// its telemetry covers every query shape.
	Sampled bool
}

// Controller evaluates rollout decisions. Mode and percent are mutable at
// runtime so operators can dial traffic without a restart.
type Controller struct {
	mu      sync.RWMutex
	mode    Mode
	percent int
}

// New creates a controller. percent is clamped to [0, 100].
func New(mode Mode, percent int) *Controller {
	c := &Controller{}
	c.Set(mode, percent)
	return c
}

// Set updates mode and traffic percent.
func (c *Controller) Set(mode Mode, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	c.mu.Lock()
	c.mode = mode
	c.percent = percent
	c.mu.Unlock()
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Percent returns the current traffic percent.
func (c *Controller) Percent() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.percent
}

// Decide buckets a request. The bucket is a stable hash of the query and the
// sticky seed together, so the same caller asking the same thing always lands
// on the same side of the dial.
func (c *Controller) Decide(query, stickySeed string) Decision {
	c.mu.RLock()
	mode, percent := c.mode, c.percent
	c.mu.RUnlock()

	d := Decision{Mode: mode}
	switch mode {
	case ModeShadow:
		d.Sampled = true
	case ModeOn:
		d.Sampled = bucket(query, stickySeed) < percent
	}
	return d
}

func bucket(query, stickySeed string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(stickySeed))
	return int(h.Sum32() % 100)
}
