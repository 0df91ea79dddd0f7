package cache

import (
	"context"
	"testing"
	"time"

	"exptrack/internal/core"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLists(size int, ttl time.Duration) (*Lists[core.Category], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLists[core.Category](size, ttl)
	l.now = clock.now
	return l, clock
}

var food = []core.Category{{ID: "1", Name: "Food", Type: core.Expense}}

func TestListsLookupAndStore(t *testing.T) {
	l, _ := newTestLists(4, time.Minute)

	_, version, ok := l.Lookup("all")
	if ok {
		t.Fatal("empty cache reported a hit")
	}
	if !l.Store("all", version, food) {
		t.Fatal("Store rejected a fresh fetch")
	}
	got, _, ok := l.Lookup("all")
	if !ok || len(got) != 1 || got[0].Name != "Food" {
		t.Fatalf("Lookup = %v, %v", got, ok)
	}

	got[0].Name = "changed"
	again, _, _ := l.Lookup("all")
	if again[0].Name != "Food" {
		t.Fatal("caller mutation leaked into the cache")
	}
}

func TestListsEvictLeastRecentlyRead(t *testing.T) {
	l, _ := newTestLists(2, time.Minute)
	_, v, _ := l.Lookup("a")
	l.Store("a", v, food)
	l.Store("b", v, food)
	if _, _, ok := l.Lookup("a"); !ok {
		t.Fatal("a missing")
	}
	l.Store("c", v, food)

	if _, _, ok := l.Lookup("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, _, ok := l.Lookup("a"); !ok {
		t.Fatal("a evicted despite recent read")
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d", l.Len())
	}
}

func TestListsExpiry(t *testing.T) {
	l, clock := newTestLists(4, time.Minute)
	_, v, _ := l.Lookup("categories")
	l.Store("categories", v, food)
	l.Store("expense", v, food)

	clock.advance(30 * time.Second)
	if _, _, ok := l.Lookup("categories"); !ok {
		t.Fatal("list expired early")
	}

	clock.advance(time.Minute)
	if n := l.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
	if l.Len() != 0 {
		t.Fatalf("Len = %d after clean", l.Len())
	}
}

func TestListsZeroTTLDisablesCaching(t *testing.T) {
	l, _ := newTestLists(4, 0)
	_, v, _ := l.Lookup("all")
	if l.Store("all", v, food) {
		t.Fatal("zero TTL must not cache")
	}
	if _, _, ok := l.Lookup("all"); ok {
		t.Fatal("zero TTL produced a hit")
	}
}

func TestListsInvalidateRejectsFetchStartedBefore(t *testing.T) {
	l, _ := newTestLists(4, time.Minute)
	_, v, _ := l.Lookup("all")
	l.Store("all", v, food)

	_, before, _ := l.Lookup("missing")
	l.Invalidate()
	if l.Len() != 0 {
		t.Fatalf("Len = %d after Invalidate", l.Len())
	}
	if l.Store("all", before, food) {
		t.Fatal("fetch from before the mutation was cached")
	}

	_, after, _ := l.Lookup("all")
	if !l.Store("all", after, food) {
		t.Fatal("fetch after the mutation was rejected")
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	l, clock := newTestLists(4, time.Minute)
	_, v, _ := l.Lookup("all")
	l.Store("all", v, food)
	clock.advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(l)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d", n)
	}

	m.Start(context.Background(), time.Millisecond)
	m.Start(context.Background(), time.Millisecond)
	m.Stop()
	m.Stop()
}
