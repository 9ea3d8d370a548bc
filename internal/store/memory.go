package store

import (
	"sort"
	"sync"
)

// subscriberBuffer is the channel buffer size given to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Regions are keyed by ID, with each Replace swapping the previous contents.
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	regions     map[string]Snapshot
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions:     make(map[string]Snapshot),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Replace stores snap as the full contents of region snap.ID and notifies
// all subscribers. The children slice is copied.
func (m *MemoryStore) Replace(snap Snapshot) {
	snap.Children = copyChildren(snap.Children)

	m.mu.Lock()
	m.regions[snap.ID] = snap
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// Get returns a copy of the region identified by id.
func (m *MemoryStore) Get(id string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.regions[id]
	if !ok {
		return Snapshot{}, false
	}
	snap.Children = copyChildren(snap.Children)
	return snap, true
}

// GetAll returns copies of all regions sorted by ID.
func (m *MemoryStore) GetAll() []Snapshot {
	m.mu.RLock()
	results := make([]Snapshot, 0, len(m.regions))
	for _, snap := range m.regions {
		snap.Children = copyChildren(snap.Children)
		results = append(results, snap)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving
// replaced regions.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers without
// blocking.
func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the message
		}
	}
}

// copyChildren returns a copy of the slice; an empty input yields an empty,
// non-nil slice so regions serialize as [] rather than null.
func copyChildren(children []Child) []Child {
	cp := make([]Child, len(children))
	copy(cp, children)
	return cp
}
