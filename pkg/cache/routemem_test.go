package cache

import (
	"math"
	"testing"
	"time"

	"datachat-be/pkg/store"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"How many projects?", "how many projects"},
		{"  total   budget,  by region!  ", "total budget by region"},
		{"status:active", "status active"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRouteMemoryStoreAndLookup(t *testing.T) {
	m := NewRouteMemory(time.Minute)
	step := store.RouteStep{Backend: store.KindStructured, Operation: "aggregate"}

	if _, found := m.Lookup("how many projects", "AGGREGATION"); found {
		t.Fatal("hit on empty memory")
	}

	m.Store("How many projects?", "AGGREGATION", step, 0.92, 120)

	p, found := m.Lookup("how many projects", "AGGREGATION")
	if !found {
		t.Fatal("miss after store")
	}
	if p.Step.Backend != store.KindStructured {
		t.Errorf("Backend = %s, want %s", p.Step.Backend, store.KindStructured)
	}
	if p.Quality != 0.92 {
		t.Errorf("Quality = %.2f, want 0.92", p.Quality)
	}

	// Unseen query falls back to the category pattern
	if _, found := m.Lookup("count all the projects please", "AGGREGATION"); !found {
		t.Error("category fallback missed")
	}
	if _, found := m.Lookup("unrelated", "DISCOVERY"); found {
		t.Error("hit on unknown category")
	}
}

func TestRouteMemoryQualitySmoothing(t *testing.T) {
	m := NewRouteMemory(time.Minute)
	step := store.RouteStep{Backend: store.KindStructured}

	m.Store("q", "AGGREGATION", step, 1.0, 100)
	m.Store("q", "AGGREGATION", step, 0.5, 100)

	p, found := m.Lookup("q", "AGGREGATION")
	if !found {
		t.Fatal("miss after repeat store")
	}

	want := 0.7*1.0 + 0.3*0.5
	if math.Abs(p.Quality-want) > 1e-9 {
		t.Errorf("Quality = %.3f, want %.3f", p.Quality, want)
	}
	if p.HitCount != 1 {
		t.Errorf("HitCount = %d, want 1", p.HitCount)
	}
}
