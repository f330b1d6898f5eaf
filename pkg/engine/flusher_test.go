package engine

import (
	"io"
	"log"
	"testing"
	"time"

	"datachat-be/pkg/cache"
	"datachat-be/pkg/session"
	"datachat-be/pkg/store"
)

func TestFlushSessionDropsDrilldownSlot(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	drilldowns := cache.NewDrilldownStore()
	flusher := NewBusFlusher(nil, drilldowns)
	sessions := session.NewManager(session.Limits{MaxTurns: 10}, flusher, logger)

	sess := sessions.GetOrCreate("")
	drilldowns.Store(sess.ID, &store.DrilldownEntry{Query: "how many projects are active"})

	if !sessions.End(sess.ID) {
		t.Fatal("End() = false")
	}
	if _, found := drilldowns.Get(sess.ID); found {
		t.Error("drilldown slot survived the session end")
	}
}

func TestCleanupDropsDrilldownSlots(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	drilldowns := cache.NewDrilldownStore()
	flusher := NewBusFlusher(nil, drilldowns)
	sessions := session.NewManager(session.Limits{MaxTurns: 10, IdleTTL: time.Millisecond}, flusher, logger)

	sess := sessions.GetOrCreate("")
	drilldowns.Store(sess.ID, &store.DrilldownEntry{Query: "show projects by region"})

	time.Sleep(5 * time.Millisecond)
	if evicted := sessions.Cleanup(); evicted != 1 {
		t.Fatalf("Cleanup() = %d, want 1", evicted)
	}
	if _, found := drilldowns.Get(sess.ID); found {
		t.Error("drilldown slot survived idle eviction")
	}
}
