package store

import "fmt"

// CommitBatch writes every buffered unit of batch within a single
// transaction and empties the buffer. Nothing is written if any row fails.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()
	if len(batch.Units) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range batch.Units {
		if err := upsertUnit(tx, &batch.Units[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	batch.Units = nil
	return nil
}
