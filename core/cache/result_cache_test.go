package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

func dropResults() *models.SimulationResults {
	return &models.SimulationResults{
		Kind:     models.KindDropTest,
		DropTest: &models.DropTestResults{MaxImpactForce: 42, SurvivalRate: 1},
	}
}

// fakeClock lets tests move the cache's notion of now.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(max int) (*ResultCache, *fakeClock) {
	c := New(max)
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	c.now = clk.now
	return c, clk
}

func TestKey_ParameterOrderIndependent(t *testing.T) {
	// GIVEN two parameter maps that are permutations of the same pairs
	a := map[string]interface{}{"drop_height": 1.0, "num_drops": 5, "gravity": -9.8}
	b := map[string]interface{}{"gravity": -9.8, "drop_height": 1.0, "num_drops": 5}

	// THEN their cache keys collide
	if Key("m1", models.KindDropTest, a) != Key("m1", models.KindDropTest, b) {
		t.Error("keys differ for permuted parameter maps")
	}
}

func TestKey_NumericRepresentationIndependent(t *testing.T) {
	a := map[string]interface{}{"num_drops": 5}
	b := map[string]interface{}{"num_drops": 5.0}
	if Key("m1", models.KindDropTest, a) != Key("m1", models.KindDropTest, b) {
		t.Error("keys differ for int vs float of the same value")
	}
}

func TestKey_DistinguishesInputs(t *testing.T) {
	p := map[string]interface{}{"drop_height": 1.0}
	base := Key("m1", models.KindDropTest, p)
	if Key("m2", models.KindDropTest, p) == base {
		t.Error("different model ids collide")
	}
	if Key("m1", models.KindStressTest, p) == base {
		t.Error("different kinds collide")
	}
	if Key("m1", models.KindDropTest, map[string]interface{}{"drop_height": 2.0}) == base {
		t.Error("different parameter values collide")
	}
}

func TestGet_MissOnUnknownKey(t *testing.T) {
	c, _ := newTestCache(4)
	if got := c.Get("nope"); got != nil {
		t.Errorf("Get on empty cache: got %v, want nil", got)
	}
}

func TestGet_HitThenTTLBoundary(t *testing.T) {
	c, clk := newTestCache(4)
	c.Set("k", dropResults(), 10*time.Second)

	// Just inside the TTL: hit
	clk.t = clk.t.Add(10*time.Second - time.Millisecond)
	if c.Get("k") == nil {
		t.Fatal("Get at storedAt+ttl-1ms: got miss, want hit")
	}

	// Just past the TTL: miss, and the entry is gone from Stats
	clk.t = clk.t.Add(2 * time.Millisecond)
	if c.Get("k") != nil {
		t.Fatal("Get at storedAt+ttl+1ms: got hit, want miss")
	}
	if s := c.Stats(); s.Size != 0 {
		t.Errorf("Stats after expiry: got size %d keys %v, want empty", s.Size, s.Keys)
	}
}

func TestSet_EvictsOldestWhenFull(t *testing.T) {
	// GIVEN a cache of 3 entries inserted a second apart
	c, clk := newTestCache(3)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), dropResults(), time.Hour)
		clk.t = clk.t.Add(time.Second)
	}

	// WHEN a fourth entry is inserted
	c.Set("k3", dropResults(), time.Hour)

	// THEN the entry with the oldest storedAt is gone and the rest remain
	if c.Get("k0") != nil {
		t.Error("k0 should have been evicted")
	}
	for _, k := range []string{"k1", "k2", "k3"} {
		if c.Get(k) == nil {
			t.Errorf("%s should still be cached", k)
		}
	}
	if s := c.Stats(); s.Size != 3 {
		t.Errorf("Stats.Size: got %d, want 3", s.Size)
	}
}

func TestSet_OverwriteDoesNotEvict(t *testing.T) {
	c, clk := newTestCache(2)
	c.Set("a", dropResults(), time.Hour)
	clk.t = clk.t.Add(time.Second)
	c.Set("b", dropResults(), time.Hour)
	clk.t = clk.t.Add(time.Second)

	c.Set("a", dropResults(), time.Hour)

	if c.Get("b") == nil {
		t.Error("overwriting an existing key must not evict another entry")
	}
}

func TestClear_EmptiesCache(t *testing.T) {
	c, _ := newTestCache(4)
	c.Set("a", dropResults(), time.Hour)
	c.Clear()
	if c.Get("a") != nil || c.Stats().Size != 0 {
		t.Error("cache not empty after Clear")
	}
}
