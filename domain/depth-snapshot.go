package domain

import "sync"

// DepthSnapshot is the most recently observed top of the order book.
// Price levels stay in the venue's wire form, best price first.
type DepthSnapshot struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// DepthSnapshotStore holds the latest depth snapshot for one subscription.
// Every update is a whole replacement, there is no incremental merge.
type DepthSnapshotStore struct {
	mu       sync.RWMutex
	snapshot DepthSnapshot
}

func NewDepthSnapshotStore() *DepthSnapshotStore {
	return &DepthSnapshotStore{}
}

func (s *DepthSnapshotStore) Replace(snapshot DepthSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

func (s *DepthSnapshotStore) Snapshot() DepthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
