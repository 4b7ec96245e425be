package registry

import (
	"sync"
	"time"

	"geopush/internal/domain"
)

// PendingRegistry maps message hashes to decoded messages awaiting delivery.
// Params: in-memory entry map and injected clock function.
// Returns: process-wide volatile store without external dependencies.
type PendingRegistry struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries map[string]pendingEntry
}

type pendingEntry struct {
	message  domain.Message
	storedAt time.Time
}

// New creates an empty pending registry.
// Params: now function (defaults to time.Now when nil).
// Returns: initialized registry.
func New(now func() time.Time) *PendingRegistry {
	if now == nil {
		now = time.Now
	}
	return &PendingRegistry{
		now:     now,
		entries: make(map[string]pendingEntry),
	}
}

// Put stores one message under its hash, replacing any existing entry.
// Params: message hash and decoded message.
// Returns: entry upserted in place.
func (r *PendingRegistry) Put(hash string, message domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[hash] = pendingEntry{message: message, storedAt: r.now()}
}

// Get returns the pending message for one hash.
// Params: message hash.
// Returns: stored message and existence flag.
func (r *PendingRegistry) Get(hash string) (domain.Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[hash]
	if !ok {
		return domain.Message{}, false
	}
	return entry.message, true
}

// Remove deletes one entry; removing a missing key is a no-op.
// Params: message hash.
// Returns: entry removed when present.
func (r *PendingRegistry) Remove(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, hash)
}

// Len returns the number of pending entries.
// Params: none.
// Returns: current entry count.
func (r *PendingRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Compact evicts entries older than the idle TTL.
// Params: current time and TTL threshold (0 disables eviction).
// Returns: number of evicted entries.
func (r *PendingRegistry) Compact(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for hash, entry := range r.entries {
		if now.Sub(entry.storedAt) < ttl {
			continue
		}
		delete(r.entries, hash)
		removed++
	}
	return removed
}
