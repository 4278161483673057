package frontier

import "sync"

// VisitedStore tracks the hashes of URLs the frontier has already accepted.
// Implementations must be safe for concurrent use. A durable store lets the
// crawler survive restarts without re-visiting every known URL.
type VisitedStore interface {
	// Add records a URL hash as seen.
	Add(hash uint64) error

	// Seen reports whether a URL hash has been recorded before.
	Seen(hash uint64) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// Static and compile-time check to ensure memoryVisited implements
// VisitedStore.
var _ VisitedStore = (*memoryVisited)(nil)

// memoryVisited is the default, non-durable visited set.
type memoryVisited struct {
	mu   sync.RWMutex
	seen map[uint64]struct{}
}

// NewInMemoryVisited creates a visited store that lives and dies with the
// process.
func NewInMemoryVisited() VisitedStore {
	return &memoryVisited{seen: make(map[uint64]struct{})}
}

func (v *memoryVisited) Add(hash uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seen[hash] = struct{}{}

	return nil
}

func (v *memoryVisited) Seen(hash uint64) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	_, exists := v.seen[hash]

	return exists, nil
}

func (v *memoryVisited) Close() error { return nil }
