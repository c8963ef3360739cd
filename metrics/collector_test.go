package metrics

import (
	"sync"
	"testing"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("pipelined", "redis")

	c.IncHitReceived()
	c.IncHitReceived()
	c.IncHitEnforced()
	c.IncHitWarned()
	c.IncHitAborted()
	c.IncLegacyResolved()
	c.AddIncrementsPlanned(3)

	snap := c.Snapshot()
	if snap.HitsReceived != 2 || snap.HitsEnforced != 1 || snap.HitsWarned != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.HitsAborted != 1 || snap.LegacyResolved != 1 || snap.IncrementsPlanned != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Mode != "pipelined" || snap.Backend != "redis" {
		t.Errorf("dimension labels lost: %+v", snap)
	}
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector("sync", "redis")
	c.IncHitReceived()
	snap := c.Snapshot()
	c.IncHitReceived()
	if snap.HitsReceived != 1 {
		t.Errorf("snapshot must be immutable, got %d", snap.HitsReceived)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.IncHitReceived()
	c.IncHitEnforced()
	c.AddIncrementsPlanned(5)
	if snap := c.Snapshot(); snap.HitsReceived != 0 {
		t.Errorf("nil collector must report zeros, got %+v", snap)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("pipelined", "redis")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncHitReceived()
			}
		}()
	}
	wg.Wait()
	if snap := c.Snapshot(); snap.HitsReceived != 800 {
		t.Errorf("expected 800 hits, got %d", snap.HitsReceived)
	}
}
