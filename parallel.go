package lpca

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// forEachRowRange splits [0, n) into contiguous ranges, one per worker, and
// calls fn on each range concurrently. Ranges never overlap, so fn may write
// to disjoint parts of a shared output slice without synchronization. It
// returns once every range is done. With workers <= 1 it runs fn(0, n) inline.
func forEachRowRange(n, workers int, fn func(start, end int)) {
	if workers <= 1 || n <= 1 {
		fn(0, n)
		return
	}

	var g errgroup.Group
	rowsPerWorker := (n + workers - 1) / workers
	for start := 0; start < n; start += rowsPerWorker {
		start, end := start, min(start+rowsPerWorker, n)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// fitModels fits one local model per cluster concurrently. members[j] lists
// the rows of cluster j; a nil entry skips that cluster and leaves its model
// nil. Each fit reads only its own rows, so fits share nothing.
func fitModels(x *mat.Dense, members [][]int, q int, cf CorrectionFactor, workers int) ([]*LocalModel, error) {
	models := make([]*LocalModel, len(members))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for j, rows := range members {
		if rows == nil {
			continue
		}
		j, rows := j, rows
		g.Go(func() error {
			m, err := fitCluster(x, rows, q, cf)
			if err != nil {
				return fmt.Errorf("cluster %d: %w", j, err)
			}
			models[j] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return models, nil
}
