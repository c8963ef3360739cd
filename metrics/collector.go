// Package metrics provides process-wide tracker metrics collection.
//
// The Collector accumulates counters across all hits served by one
// process. It is a leaf package with no internal dependencies.
// Ingestion actor counters are absorbed from ingest stats at snapshot
// time by the caller rather than recorded live, avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of tracker metrics.
// Safe to read concurrently after creation.
type Snapshot struct {
	// Hit pipeline
	HitsReceived   int64
	HitsEnforced   int64
	HitsWarned     int64
	HitsAborted    int64
	LegacyResolved int64

	// Aggregation
	IncrementsPlanned int64

	// Dimensions (informational, set at construction)
	Mode    string
	Backend string
}

// Collector accumulates tracker metrics. Thread-safe via sync.Mutex.
// All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	hitsReceived   int64
	hitsEnforced   int64
	hitsWarned     int64
	hitsAborted    int64
	legacyResolved int64

	incrementsPlanned int64

	mode    string
	backend string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(mode, backend string) *Collector {
	return &Collector{mode: mode, backend: backend}
}

// IncHitReceived records one incoming hit.
func (c *Collector) IncHitReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hitsReceived++
	c.mu.Unlock()
}

// IncHitEnforced records a fully enforced hit.
func (c *Collector) IncHitEnforced() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hitsEnforced++
	c.mu.Unlock()
}

// IncHitWarned records a hit that completed with warnings.
func (c *Collector) IncHitWarned() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hitsWarned++
	c.mu.Unlock()
}

// IncHitAborted records a strict-mode enforcement abort.
func (c *Collector) IncHitAborted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hitsAborted++
	c.mu.Unlock()
}

// IncLegacyResolved records a successful ref-code resolution.
func (c *Collector) IncLegacyResolved() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.legacyResolved++
	c.mu.Unlock()
}

// AddIncrementsPlanned records planned counter increments.
func (c *Collector) AddIncrementsPlanned(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.incrementsPlanned += n
	c.mu.Unlock()
}

// Snapshot returns an atomic copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		HitsReceived:      c.hitsReceived,
		HitsEnforced:      c.hitsEnforced,
		HitsWarned:        c.hitsWarned,
		HitsAborted:       c.hitsAborted,
		LegacyResolved:    c.legacyResolved,
		IncrementsPlanned: c.incrementsPlanned,
		Mode:              c.mode,
		Backend:           c.backend,
	}
}
