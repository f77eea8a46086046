package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_BuffersUntilCommit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore()

	require.NoError(t, batch.UpsertUnit(testUnit("/a.js")))
	require.Len(t, batch.Units, 1)

	committed, err := s.UnitByPath("/a.js")
	require.NoError(t, err)
	assert.Nil(t, committed)

	require.NoError(t, s.CommitBatch(batch))
	committed, err = s.UnitByPath("/a.js")
	require.NoError(t, err)
	require.NotNil(t, committed)
	assert.Equal(t, "/a.js", committed.Path)
}

func TestBatchedStore_LatestWriteWins(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore()

	first := testUnit("/a.js")
	second := testUnit("/a.js")
	second.Hash = "second"
	require.NoError(t, batch.UpsertUnit(first))
	require.NoError(t, batch.UpsertUnit(second))

	require.NoError(t, s.CommitBatch(batch))
	got, err := s.UnitByPath("/a.js")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Hash)
}

func TestCommitBatch_WritesAllAndResets(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, batch.UpsertUnit(testUnit(fmt.Sprintf("/u%02d.js", i))))
		}()
	}
	wg.Wait()
	assert.Len(t, batch.Units, 20)

	require.NoError(t, s.CommitBatch(batch))
	assert.Empty(t, batch.Units)

	units, err := s.Units()
	require.NoError(t, err)
	assert.Len(t, units, 20)
}

func TestCommitBatch_Empty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.CommitBatch(NewBatchedStore()))
}
