package vulkan

import (
	"sort"
	"sync"

	"github.com/spaghettifunk/vks/engine/renderer/metadata"
)

// table maps engine handles onto native objects. Handles are never reused
// and zero is never issued.
type table[T any] struct {
	mu    sync.Mutex
	next  metadata.Handle
	items map[metadata.Handle]T
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[metadata.Handle]T)}
}

func (t *table[T]) put(v T) metadata.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.items[t.next] = v
	return t.next
}

func (t *table[T]) get(h metadata.Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[h]
	return v, ok
}

// take removes and returns the entry for h.
func (t *table[T]) take(h metadata.Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[h]
	if ok {
		delete(t.items, h)
	}
	return v, ok
}

func (t *table[T]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// drain removes every entry and returns them in issue order.
func (t *table[T]) drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	handles := make([]metadata.Handle, 0, len(t.items))
	for h := range t.items {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	out := make([]T, 0, len(handles))
	for _, h := range handles {
		out = append(out, t.items[h])
		delete(t.items, h)
	}
	return out
}
