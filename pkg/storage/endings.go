package storage

import (
	"sort"
	"sync"

	"github.com/zyedidia/generic/mapset"

	"github.com/jwebster45206/scene-engine/pkg/state"
)

// MemoryEndings is an in-process ending store. Servers seed it from
// Storage.LoadEndings and write List back after each action.
type MemoryEndings struct {
	mu  sync.RWMutex
	set mapset.Set[string]
}

var _ state.EndingStore = (*MemoryEndings)(nil)

func NewMemoryEndings(ids ...string) *MemoryEndings {
	e := &MemoryEndings{set: mapset.New[string]()}
	for _, id := range ids {
		e.set.Put(id)
	}
	return e
}

func (e *MemoryEndings) IsAchieved(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set.Has(id)
}

func (e *MemoryEndings) MarkAchieved(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.Put(id)
}

func (e *MemoryEndings) MarkNotAchieved(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.Remove(id)
}

func (e *MemoryEndings) CountAchieved() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set.Size()
}

// List returns the achieved ending IDs sorted.
func (e *MemoryEndings) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, e.set.Size())
	e.set.Each(func(id string) {
		ids = append(ids, id)
	})
	sort.Strings(ids)
	return ids
}
