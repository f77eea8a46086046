package tslop

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/tslop/internal/store"
)

// TransformFilesParallel transforms files using a three-phase parallel
// pipeline:
//
//	Phase A (serial):   Read, hash and check the cache.
//	Phase B (parallel): Parse and rewrite via worker pool (one parser per unit).
//	Phase C (serial):   Commit the batch to SQLite, notify observers in input order.
func (e *Engine) TransformFilesParallel(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	var errs []error

	// ---- Phase A: Serial preparation ----
	var items []workItem
	for i, path := range paths {
		item, done, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if done != nil {
			results[i] = done
			continue
		}
		item.index = i
		items = append(items, item)
	}

	// ---- Phase B: Parallel rewrite ----
	var batch *store.BatchedStore
	if e.store != nil {
		batch = store.NewBatchedStore()
	}

	if len(items) > 0 {
		numWorkers := min(runtime.NumCPU(), len(items))
		if numWorkers < 1 {
			numWorkers = 1
		}

		workCh := make(chan workItem, len(items))
		for _, item := range items {
			workCh <- item
		}
		close(workCh)

		type result struct {
			item workItem
			res  *Result
			err  error
		}
		resultCh := make(chan result, len(items))

		var wg sync.WaitGroup
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for item := range workCh {
					res, err := e.rewriteUnit(ctx, item.path, item.lang, item.content)
					if err == nil && batch != nil {
						err = batch.UpsertUnit(e.cacheRecord(res, item.hash))
					}
					resultCh <- result{item: item, res: res, err: err}
				}
			}()
		}

		go func() {
			wg.Wait()
			close(resultCh)
		}()

		for r := range resultCh {
			if r.err != nil {
				errs = append(errs, fmt.Errorf("transform %s: %w", r.item.path, r.err))
				continue
			}
			results[r.item.index] = r.res
		}
	}

	// ---- Phase C: Serial commit and notification ----
	if batch != nil {
		if err := e.store.CommitBatch(batch); err != nil {
			errs = append(errs, fmt.Errorf("commit: %w", err))
		}
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		if err := e.notify(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return results, fmt.Errorf("parallel transform had %d error(s): %w", len(errs), errs[0])
	}
	return results, nil
}
