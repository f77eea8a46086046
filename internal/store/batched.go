package store

import "sync"

// BatchedStore buffers unit writes from concurrent workers so they can be
// committed to SQLite in a single transaction by Store.CommitBatch.
type BatchedStore struct {
	mu sync.Mutex

	Units []Unit
}

// NewBatchedStore creates an empty write buffer.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{}
}

// UpsertUnit buffers u. A later write for the same path wins at commit.
func (b *BatchedStore) UpsertUnit(u *Unit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Units = append(b.Units, *u)
	return nil
}
