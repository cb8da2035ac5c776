package service

import (
	"sort"
	"sync"
)

// scopeLock serialises writes that share a scheduling scope (class/day or
// teacher/day) so two concurrent requests cannot both pass conflict validation
// for the same slot. Keys are acquired in sorted order to avoid deadlocks.
type scopeLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLock() *scopeLock {
	return &scopeLock{locks: make(map[string]*sync.Mutex)}
}

// acquire locks every key and returns the release function.
func (l *scopeLock) acquire(keys []string) func() {
	unique := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, seen := unique[key]; seen {
			continue
		}
		unique[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, key := range ordered {
		l.mu.Lock()
		m, ok := l.locks[key]
		if !ok {
			m = &sync.Mutex{}
			l.locks[key] = m
		}
		l.mu.Unlock()

		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
