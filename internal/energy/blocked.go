package energy

import "sync"

// BlockedSet tracks devices currently held OFF by the load-shedding
// policy.
//
// Membership is a veto: the schedule reconciler will not switch a
// blocked device back ON. The policy never clears entries itself;
// a device leaves the set only through an explicit manual ON command
// or a process restart. The set is memory-only by design, so a restart
// un-blocks everything.
type BlockedSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewBlockedSet creates an empty blocked set.
func NewBlockedSet() *BlockedSet {
	return &BlockedSet{ids: make(map[string]struct{})}
}

// Add marks a device as blocked. Adding an already-blocked device is a
// no-op, so repeated shedding evaluations are idempotent.
func (b *BlockedSet) Add(deviceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids[deviceID] = struct{}{}
}

// Remove clears a device's blocked state. Called when an operator
// manually switches the device ON.
func (b *BlockedSet) Remove(deviceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ids, deviceID)
}

// Contains reports whether a device is currently blocked.
func (b *BlockedSet) Contains(deviceID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.ids[deviceID]
	return ok
}

// IDs returns a snapshot of all blocked device identifiers.
func (b *BlockedSet) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.ids))
	for id := range b.ids {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of blocked devices.
func (b *BlockedSet) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}
