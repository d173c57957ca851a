// Package feed keeps a client-held list of records consistent with a remote
// source: fetch on open, full refetch after confirmed writes, single-record
// splices for status changes and a one-dialog-at-a-time edit state machine.
package feed

import (
	"sort"
	"sync"
)

// Record is anything with a stable identifier.
type Record interface {
	RecordID() string
}

// List is an ordered, id-unique collection safe for concurrent use.
type List[T Record] struct {
	mu    sync.RWMutex
	items []T
	less  func(a, b T) bool
}

// NewList creates a list. A nil less keeps insertion order and appends new items.
func NewList[T Record](less func(a, b T) bool) *List[T] {
	return &List[T]{less: less}
}

// Replace swaps the whole content, dropping duplicate ids (first wins).
func (l *List[T]) Replace(items []T) {
	seen := make(map[string]struct{}, len(items))
	next := make([]T, 0, len(items))
	for _, item := range items {
		id := item.RecordID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, item)
	}
	if l.less != nil {
		sort.SliceStable(next, func(i, j int) bool { return l.less(next[i], next[j]) })
	}
	l.mu.Lock()
	l.items = next
	l.mu.Unlock()
}

// Upsert replaces the entry with the same id or inserts it at its ordered position.
// It reports whether the item was newly inserted.
func (l *List[T]) Upsert(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx := l.indexLocked(item.RecordID()); idx >= 0 {
		l.items[idx] = item
		if l.less != nil {
			l.items = append(l.items[:idx], l.items[idx+1:]...)
			l.insertLocked(item)
		}
		return false
	}
	l.insertLocked(item)
	return true
}

// Patch replaces an existing entry in place and ignores unknown ids.
func (l *List[T]) Patch(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(item.RecordID())
	if idx < 0 {
		return false
	}
	l.items[idx] = item
	return true
}

// Remove deletes the entry with the given id, leaving the others in place.
func (l *List[T]) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return false
	}
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	return true
}

// Get returns the entry with the given id.
func (l *List[T]) Get(id string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.indexLocked(id); idx >= 0 {
		return l.items[idx], true
	}
	var zero T
	return zero, false
}

// Snapshot returns a copy of the current content.
func (l *List[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of entries.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List[T]) indexLocked(id string) int {
	for i, item := range l.items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

func (l *List[T]) insertLocked(item T) {
	if l.less == nil {
		l.items = append(l.items, item)
		return
	}
	idx := sort.Search(len(l.items), func(i int) bool { return l.less(item, l.items[i]) })
	l.items = append(l.items, item)
	copy(l.items[idx+1:], l.items[idx:])
	l.items[idx] = item
}
