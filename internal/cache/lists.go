package cache

import (
	"container/list"
	"slices"
	"sync"
	"time"
)

// Lists holds reference lists fetched from the backend for up to ttl.
// Entries are keyed by list name; past maxLists the least recently read
// one is dropped.
//
// Every Invalidate bumps a version. A fetch that began before the bump
// cannot store its now stale result.
type Lists[T any] struct {
	mu       sync.Mutex
	maxLists int
	ttl      time.Duration
	entries  map[string]*list.Element
	recent   *list.List
	version  uint64
	now      func() time.Time
}

type listEntry[T any] struct {
	name      string
	items     []T
	expiresAt time.Time
}

func NewLists[T any](maxLists int, ttl time.Duration) *Lists[T] {
	if maxLists < 1 {
		maxLists = 1
	}
	return &Lists[T]{
		maxLists: maxLists,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		recent:   list.New(),
		now:      time.Now,
	}
}

// Lookup returns a copy of the named list when it is fresh. The version is
// returned either way and must be handed to Store after a fetch.
func (l *Lists[T]) Lookup(name string) ([]T, uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.entries[name]
	if !ok {
		return nil, l.version, false
	}
	e := elem.Value.(*listEntry[T])
	if !l.now().Before(e.expiresAt) {
		l.drop(elem)
		return nil, l.version, false
	}
	l.recent.MoveToFront(elem)
	return slices.Clone(e.items), l.version, true
}

// Store caches items fetched under version. It reports false and keeps
// nothing when caching is disabled or the lists were invalidated since.
func (l *Lists[T]) Store(name string, version uint64, items []T) bool {
	if l.ttl <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if version != l.version {
		return false
	}

	e := &listEntry[T]{name: name, items: slices.Clone(items), expiresAt: l.now().Add(l.ttl)}
	if elem, ok := l.entries[name]; ok {
		elem.Value = e
		l.recent.MoveToFront(elem)
		return true
	}
	l.entries[name] = l.recent.PushFront(e)
	if l.recent.Len() > l.maxLists {
		l.drop(l.recent.Back())
	}
	return true
}

// Invalidate drops every list after a mutation on the backend.
func (l *Lists[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.version++
	clear(l.entries)
	l.recent.Init()
}

func (l *Lists[T]) drop(elem *list.Element) {
	delete(l.entries, elem.Value.(*listEntry[T]).name)
	l.recent.Remove(elem)
}

// CleanExpired removes stale lists and returns how many it removed.
func (l *Lists[T]) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for elem := l.recent.Front(); elem != nil; {
		next := elem.Next()
		if !now.Before(elem.Value.(*listEntry[T]).expiresAt) {
			l.drop(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (l *Lists[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
